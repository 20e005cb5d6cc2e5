package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds each provider request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second per provider.
	DefaultRateLimit = 5

	userAgent = "Mozilla/5.0 (compatible; SectorSentinel/1.0)"
)

// NewHTTPClient returns a client that routes through proxyURL when set.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Option configures a provider.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// WithBaseURL points the provider at a different host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRateLimit caps the provider at requestsPerSecond. Zero or negative disables limiting.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(o *options) {
		if requestsPerSecond <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func newOptions(baseURL string, opts []Option) options {
	o := options{
		baseURL:    baseURL,
		httpClient: NewHTTPClient("", DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// HTTPError is a non-200 response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, body)
}

// get waits for the limiter and performs a GET, returning the body of a 200
// response or an *HTTPError.
func (o *options) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// classify maps a request error to a status. Only 429, 5xx and transport
// failures are transient.
func classify(err error) Status {
	var he *HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusTooManyRequests, he.StatusCode >= 500:
			return StatusTransient
		default:
			return StatusAbsent
		}
	}
	return StatusTransient
}
