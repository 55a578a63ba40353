// Package geocode looks up approximate coordinates for a resolved place name.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Point is a formatted coordinate pair, five decimals each.
type Point struct {
	Lat string
	Lon string
}

// Geocoder resolves a free-text query to a point. ok is false when nothing matched.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (Point, bool, error)
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint at most once per interval.
type Nominatim struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewNominatim returns a client limited to one request per second, the public
// instance's usage policy.
func NewNominatim(endpoint, userAgent string, client *http.Client, logger *slog.Logger) *Nominatim {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Nominatim{
		endpoint:  endpoint,
		userAgent: userAgent,
		http:      client,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		logger:    logger,
	}
}

// WithInterval changes the minimum gap between requests.
func (n *Nominatim) WithInterval(d time.Duration) *Nominatim {
	n.limiter = rate.NewLimiter(rate.Every(d), 1)
	return n
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Lookup(ctx context.Context, query string) (Point, bool, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return Point{}, false, err
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Point{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := n.http.Do(req)
	if err != nil {
		return Point{}, false, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			n.logger.Warn("geocode.http.response_body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		return Point{}, false, fmt.Errorf("nominatim: non-2xx status: %d", resp.StatusCode)
	}
	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, false, fmt.Errorf("decode nominatim response: %w", err)
	}
	n.logger.Debug("geocode.lookup", "query", query, "hits", len(places), "elapsed_ms", time.Since(start).Milliseconds())
	if len(places) == 0 {
		return Point{}, false, nil
	}
	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(places[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Point{}, false, nil
	}
	return Point{Lat: format(lat), Lon: format(lon)}, true, nil
}

func format(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }

// Queries builds the lookup cascade from most to least specific, skipping
// combinations with a missing part.
func Queries(country, state, location string) []string {
	country, state, location = strings.TrimSpace(country), strings.TrimSpace(state), strings.TrimSpace(location)
	var qs []string
	if location != "" && state != "" && country != "" {
		qs = append(qs, location+", "+state+", "+country)
	}
	if location != "" && country != "" {
		qs = append(qs, location+", "+country)
	}
	if state != "" && country != "" {
		qs = append(qs, state+", "+country)
	}
	if country != "" {
		qs = append(qs, country)
	}
	return qs
}

// Resolve walks the cascade and returns the first hit. Lookup errors only
// move on to the next query; no hit yields an empty point.
func Resolve(ctx context.Context, g Geocoder, country, state, location string, logger *slog.Logger) Point {
	if g == nil {
		return Point{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, q := range Queries(country, state, location) {
		p, ok, err := g.Lookup(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return Point{}
			}
			logger.Warn("geocode.lookup.failed", "query", q, "error", err)
			continue
		}
		if ok {
			return p
		}
	}
	return Point{}
}
