// Package photoapi reads geotagged photo reports from the Dirty Nairobi REST API.
package photoapi

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

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// Filter narrows a photo listing. Zero Limit means the server default.
type Filter struct {
	Description string
	Limit       int
	Offset      int
}

// Client talks to the photo API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a photo API client rooted at baseURL (for example
// http://localhost:8000/api/v1).
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ListPhotos returns one page of photo reports, newest first as served.
func (c *Client) ListPhotos(ctx context.Context, f Filter) ([]domain.Report, error) {
	var reports []domain.Report
	if err := c.get(ctx, "/photos", f.query(), &reports); err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

// CountPhotos returns how many photos match the description filter.
func (c *Client) CountPhotos(ctx context.Context, description string) (int, error) {
	params := url.Values{}
	if d := strings.TrimSpace(description); d != "" {
		params.Set("description", d)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/photos/count", params, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (f Filter) query() url.Values {
	params := url.Values{}
	if d := strings.TrimSpace(f.Description); d != "" {
		params.Set("description", d)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		params.Set("offset", strconv.Itoa(f.Offset))
	}
	return params
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("photo API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("photo API error: status %d: %s", resp.StatusCode, apiDetail(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiDetail extracts the API's {"detail": "..."} message, falling back to the raw body.
func apiDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(body))
}
