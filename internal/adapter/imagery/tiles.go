package imagery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TileFetcher implements surface.TileFetcher with plain GET requests. The
// body is discarded; the request only warms the tile server and any caches
// in between.
type TileFetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewTileFetcher creates a tile fetcher. OpenStreetMap tile servers reject
// requests without a descriptive User-Agent.
func NewTileFetcher(timeout time.Duration, userAgent string) *TileFetcher {
	return &TileFetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// FetchTile loads one tile and reports whether it arrived.
func (f *TileFetcher) FetchTile(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tile server error: status %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("read tile: %w", err)
	}
	return nil
}
