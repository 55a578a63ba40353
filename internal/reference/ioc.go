package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/resolve"
)

var (
	ErrNoStationTable = errors.New("station list table not found; page markup may have changed")
	ErrNoColumn       = errors.New("station list column not found")
)

// IOCRetry is the policy for the station list download.
var IOCRetry = common.RetryPolicy{Tries: 3, Initial: time.Second, Multiplier: 1.7}

// StationDirectory scrapes the IOC sea level station list. The raw page is
// cached on disk so later runs resolve against the same snapshot.
type StationDirectory struct {
	url       string
	cachePath string
	http      *http.Client
	retry     common.RetryPolicy
	logger    *slog.Logger
}

func NewStationDirectory(url, cachePath string, client *http.Client, logger *slog.Logger) *StationDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &StationDirectory{url: url, cachePath: cachePath, http: client, retry: IOCRetry, logger: logger}
}

// WithRetry overrides the retry policy.
func (d *StationDirectory) WithRetry(p common.RetryPolicy) *StationDirectory {
	d.retry = p
	return d
}

// Load returns the station index, reading the cached page when present.
func (d *StationDirectory) Load(ctx context.Context) (resolve.StationIndex, error) {
	page, fromCache, err := d.fetch(ctx)
	if err != nil {
		return resolve.StationIndex{}, err
	}
	stations, err := ParseStations(bytes.NewReader(page))
	if err != nil {
		return resolve.StationIndex{}, err
	}
	idx := resolve.NewStationIndex(stations)
	d.logger.Info("reference.ioc.loaded", "rows", len(stations), "pairs", idx.Len(), "from_cache", fromCache)
	return idx, nil
}

func (d *StationDirectory) fetch(ctx context.Context) ([]byte, bool, error) {
	if d.cachePath != "" {
		b, err := os.ReadFile(d.cachePath)
		if err == nil {
			return b, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("read station cache: %w", err)
		}
	}

	var page []byte
	err := common.Retry(ctx, d.retry, func() error {
		b, err := getBytes(ctx, d.http, d.url, d.logger)
		page = b
		return err
	}, func(err error, wait time.Duration) {
		d.logger.Warn("reference.ioc.retry", "url", d.url, "error", err, "wait_ms", wait.Milliseconds())
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetch station list: %w", err)
	}

	if d.cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(d.cachePath), 0o755); err != nil {
			return nil, false, fmt.Errorf("create cache dir: %w", err)
		}
		if err := os.WriteFile(d.cachePath, page, 0o644); err != nil {
			return nil, false, fmt.Errorf("write station cache: %w", err)
		}
	}
	return page, false, nil
}

// ParseStations finds the first table whose headers mention CODE, COUNTRY and
// LOCATION and returns one Station per data row.
func ParseStations(r io.Reader) ([]resolve.Station, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse station page: %w", err)
	}

	var table *html.Node
	var headers []string
	for _, t := range findAll(doc, "table") {
		ths := findAll(t, "th")
		if len(ths) == 0 {
			continue
		}
		hs := make([]string, len(ths))
		for i, th := range ths {
			hs[i] = resolve.Key(nodeText(th))
		}
		joined := strings.Join(hs, " ")
		if strings.Contains(joined, "CODE") && strings.Contains(joined, "COUNTRY") && strings.Contains(joined, "LOCATION") {
			table, headers = t, hs
			break
		}
	}
	if table == nil {
		return nil, ErrNoStationTable
	}

	iCode, err := columnIndex(headers, "CODE")
	if err != nil {
		return nil, err
	}
	iCountry, err := columnIndex(headers, "COUNTRY")
	if err != nil {
		return nil, err
	}
	iLocation, err := columnIndex(headers, "LOCATION")
	if err != nil {
		return nil, err
	}
	need := max(iCode, iCountry, iLocation)

	var out []resolve.Station
	for _, tr := range findAll(table, "tr") {
		tds := findAll(tr, "td")
		if len(tds) <= need {
			continue
		}
		code := nodeText(tds[iCode])
		if code == "" {
			continue
		}
		out = append(out, resolve.Station{
			Code:     code,
			Country:  nodeText(tds[iCountry]),
			Location: nodeText(tds[iLocation]),
		})
	}
	return out, nil
}

// columnIndex prefers an exact header match, then the first header containing name.
func columnIndex(headers []string, name string) (int, error) {
	for i, h := range headers {
		if h == name {
			return i, nil
		}
	}
	for i, h := range headers {
		if strings.Contains(h, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNoColumn, name)
}

// findAll returns every descendant element of n named tag, in document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && ch.Data == tag {
				out = append(out, ch)
			}
			walk(ch)
		}
	}
	walk(n)
	return out
}

// nodeText joins the trimmed text fragments under n with single spaces.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			if s := strings.TrimSpace(c.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
