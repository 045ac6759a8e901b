// Package base provides shared HTTP client infrastructure for Essbase REST calls.
package base

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/olgasafonova/essbase-mcp-server/internal/infra"
	"github.com/olgasafonova/essbase-mcp-server/metrics"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// MaxConcurrentRequests limits parallel outbound API calls
	MaxConcurrentRequests = 8

	// DefaultUserAgent identifies the server to Essbase
	DefaultUserAgent = "essbase-mcp-server/1.0"

	// maxBodySize caps how much of a response body is read
	maxBodySize = 10 << 20
)

// Client provides common HTTP client infrastructure with bounded concurrency
// and per-host circuit breaking. Requests are never retried.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
	Semaphore  chan struct{}

	breakerOpts []infra.BreakerOption
	mu          sync.Mutex
	breakers    map[string]*infra.CircuitBreaker
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.HTTPClient = newHTTPClient(d)
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.UserAgent = ua
		}
	}
}

// WithMaxConcurrent sets how many requests may be in flight at once
func WithMaxConcurrent(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.Semaphore = make(chan struct{}, n)
		}
	}
}

// WithBreakerOptions configures the circuit breaker created for each host
func WithBreakerOptions(opts ...infra.BreakerOption) ClientOption {
	return func(client *Client) {
		client.breakerOpts = append(client.breakerOpts, opts...)
	}
}

// NewClient creates a new base client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient: newHTTPClient(DefaultTimeout),
		Logger:     slog.Default(),
		UserAgent:  DefaultUserAgent,
		Semaphore:  make(chan struct{}, MaxConcurrentRequests),
		breakers:   make(map[string]*infra.CircuitBreaker),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

// Breaker returns the circuit breaker for host, creating it on first use
func (c *Client) Breaker(host string) *infra.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.breakers == nil {
		c.breakers = make(map[string]*infra.CircuitBreaker)
	}
	cb, ok := c.breakers[host]
	if !ok {
		opts := append([]infra.BreakerOption{
			infra.WithStateChange(func(from, to infra.CircuitState) {
				metrics.CircuitBreakerTransitions.WithLabelValues(to.String()).Inc()
				c.Logger.Warn("Circuit breaker state changed", "host", host, "from", from.String(), "to", to.String())
			}),
		}, c.breakerOpts...)
		cb = infra.NewCircuitBreaker(opts...)
		c.breakers[host] = cb
	}
	return cb
}

// CircuitBreakerStats returns the circuit breaker state for host
func (c *Client) CircuitBreakerStats(host string) infra.CircuitBreakerStats {
	return c.Breaker(host).Stats()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	default:
	}

	metrics.RateLimitWaits.Inc()
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// RequestConfig configures a single HTTP GET request
type RequestConfig struct {
	URL      string
	User     string
	Password string
	Accept   string // defaults to application/json
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// DoRequest performs an authenticated GET. Any HTTP answer, including 4xx
// and 5xx, is returned to the caller; only transport failures are errors.
func (c *Client) DoRequest(ctx context.Context, cfg RequestConfig) (*Response, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}

	cb := c.Breaker(u.Host)
	if !cb.Allow() {
		stats := cb.Stats()
		return nil, &infra.ErrCircuitOpen{
			Host:     u.Host,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}

	if err := c.AcquireSlot(ctx); err != nil {
		cb.RecordCanceled()
		return nil, err
	}
	defer c.ReleaseSlot()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		cb.RecordCanceled()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	accept := cfg.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.UserAgent)
	if cfg.User != "" || cfg.Password != "" {
		req.SetBasicAuth(cfg.User, cfg.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			cb.RecordCanceled()
		} else {
			cb.RecordFailure()
		}
		c.Logger.Warn("Essbase request failed", "url", cfg.URL, "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readAndClose(resp)
	if err != nil {
		cb.RecordFailure()
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
	return body, err
}

// Truncate shortens a string to maxLen, adding "..." if truncated
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with tuned transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
