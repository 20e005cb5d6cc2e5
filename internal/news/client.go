// Package news collects sector analyst news and private company health
// items and persists them next to the price documents.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"SectorSentinel/internal/collector"
)

// ErrMissingAPIKey is returned when the news API is used without a key.
var ErrMissingAPIKey = errors.New("NEWS_API_KEY not set")

const browserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Option configures a news client.
type Option func(*client)

// WithBaseURL points the client at a different endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.http = h }
}

// WithQueryDelay spaces consecutive requests by at least d. Zero disables spacing.
func WithQueryDelay(d time.Duration) Option {
	return func(c *client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(baseURL string, delay time.Duration, opts []Option) client {
	c := client{baseURL: baseURL, http: collector.NewHTTPClient("", 15*time.Second)}
	WithQueryDelay(delay)(&c)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("User-Agent", browserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &collector.HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
