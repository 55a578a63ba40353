// Package reference loads the authoritative vocabularies a run resolves
// against: the NOAA marigram descriptors and the IOC tide-station list.
package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

// StatusError is a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: non-2xx status: %d", e.URL, e.Status)
}

// getBytes fetches url and returns the body. 4xx responses other than 429
// are marked permanent so retries stop.
func getBytes(ctx context.Context, client *http.Client, url string, logger *slog.Logger) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")

	logger.Debug("reference.http.request", "req_id", reqID, "url", url)
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("reference.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("reference.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	logger.Debug("reference.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		serr := &StatusError{URL: url, Status: resp.StatusCode}
		if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, common.Permanent(serr)
		}
		return nil, serr
	}
	return raw, nil
}
