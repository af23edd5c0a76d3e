// Package fetch retrieves raw feed payloads over HTTP and provides a short
// TTL cache so zones sharing an upstream endpoint don't multiply load.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// Fetcher retrieves the raw bytes of a feed endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client is the plain HTTP Fetcher. It owns no retry policy; retrying is
// the coordinator's call.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a feed client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "datex-zone-monitor/1.0",
		logger:     logger,
	}
}

// Fetch performs a GET against the feed URL. Transport failures, timeouts,
// and non-2xx statuses all surface as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, &domain.FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}

	c.logger.Debug("feed fetched", "url", url, "bytes", len(body))
	return body, nil
}
