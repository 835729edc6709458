// Package imagery checks report thumbnails and fetches map tiles over HTTP.
package imagery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Copubah/dirty-nairobi/internal/observability"
)

// Checker implements mapview.ImageChecker with HEAD requests.
type Checker struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewChecker creates a thumbnail checker.
func NewChecker(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Checker {
	return &Checker{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Available reports whether url serves an image. A 404 or 410 is a definite
// "no"; any other non-2xx status or transport failure is an error.
func (c *Checker) Available(ctx context.Context, url string) (bool, error) {
	start := time.Now()
	ok, err := c.head(ctx, url)
	c.metrics.ImageCheckDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.ImageChecks.WithLabelValues("error").Inc()
		c.logger.Debug("thumbnail check failed", "url", url, "error", err)
	case ok:
		c.metrics.ImageChecks.WithLabelValues("ok").Inc()
	default:
		c.metrics.ImageChecks.WithLabelValues("broken").Inc()
		c.logger.Debug("thumbnail missing", "url", url)
	}
	return ok, err
}

func (c *Checker) head(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("thumbnail request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("thumbnail server error: status %d", resp.StatusCode)
	}
}
