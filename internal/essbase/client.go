package essbase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olgasafonova/essbase-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
	"github.com/olgasafonova/essbase-mcp-server/internal/infra"
	"github.com/olgasafonova/essbase-mcp-server/internal/outline"
	"github.com/olgasafonova/essbase-mcp-server/metrics"
	"github.com/olgasafonova/essbase-mcp-server/tracing"
)

const (
	// DefaultSearchLimit is the number of outline hits requested per name
	DefaultSearchLimit = 5

	// maxErrorBody caps the response text quoted in API errors
	maxErrorBody = 500
)

// Client provides access to the Essbase REST API
type Client struct {
	*base.Client
	searchLimit int
	concurrency int
}

// ClientOption configures the Client
type ClientOption func(*clientSettings)

type clientSettings struct {
	baseOpts    []base.ClientOption
	searchLimit int
	concurrency int
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithHTTPClient(c))
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithLogger(l))
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithTimeout(d))
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithUserAgent(ua))
	}
}

// WithMaxConcurrent bounds outbound requests across all calls
func WithMaxConcurrent(n int) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithMaxConcurrent(n))
	}
}

// WithBreakerOptions configures the per-host circuit breakers
func WithBreakerOptions(opts ...infra.BreakerOption) ClientOption {
	return func(s *clientSettings) {
		s.baseOpts = append(s.baseOpts, base.WithBreakerOptions(opts...))
	}
}

// WithSearchLimit sets how many outline hits are requested per name
func WithSearchLimit(n int) ClientOption {
	return func(s *clientSettings) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithSearchConcurrency sets how many names of one batch are looked up in parallel
func WithSearchConcurrency(n int) ClientOption {
	return func(s *clientSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewClient creates a new Essbase REST client
func NewClient(opts ...ClientOption) *Client {
	s := &clientSettings{
		searchLimit: DefaultSearchLimit,
		concurrency: outline.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Client{
		Client:      base.NewClient(s.baseOpts...),
		searchLimit: s.searchLimit,
		concurrency: s.concurrency,
	}
}

// Connect checks that the profile reaches an Essbase REST API. It returns
// the profile with its URL normalized to the REST root.
func (c *Client) Connect(ctx context.Context, p Profile) (Profile, error) {
	if err := ValidateProfile(p); err != nil {
		return Profile{}, err
	}
	root, _ := RESTBaseURL(p.URL)
	aboutURL := root + "/about"

	resp, err := c.get(ctx, "connect", p, aboutURL, "", "")
	if err != nil {
		return Profile{}, err
	}
	if err := c.checkStatus("connect", aboutURL, resp, nil); err != nil {
		return Profile{}, err
	}
	if !strings.HasPrefix(resp.ContentType, "application/json") {
		return Profile{}, fmt.Errorf("GET %s: unexpected Content-Type %q", aboutURL, resp.ContentType)
	}

	return Profile{URL: root, User: p.User, Password: p.Password}, nil
}

// ListApplications returns the names of the applications the user can access
func (c *Client) ListApplications(ctx context.Context, p Profile) ([]string, error) {
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	root, _ := RESTBaseURL(p.URL)
	resourceURL := root + "/applications/actions/name/ALL"

	resp, err := c.get(ctx, "list_applications", p, resourceURL, "", "")
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("list_applications", resourceURL, resp, nil); err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(resp.Body, &names); err == nil {
		return names, nil
	}
	var items itemsResponse
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse application list: %w", err)
	}
	return items.names(), nil
}

// ListDatabases returns the database names of an application
func (c *Client) ListDatabases(ctx context.Context, a Application) ([]string, error) {
	if err := ValidateApplication(a); err != nil {
		return nil, err
	}
	root, _ := RESTBaseURL(a.URL)
	resourceURL := root + "/applications/" + url.PathEscape(a.App) + "/databases"

	resp, err := c.get(ctx, "list_databases", a.Profile(), resourceURL, a.App, "")
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("list_databases", resourceURL, resp, apierrors.NewNotFoundError("application", a.App)); err != nil {
		return nil, err
	}

	var items itemsResponse
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse database list: %w", err)
	}
	return items.names(), nil
}

// ListDimensions returns the dimension names of a database. A response
// without items yields an empty list.
func (c *Client) ListDimensions(ctx context.Context, d Database) ([]string, error) {
	if err := ValidateDatabase(d); err != nil {
		return nil, err
	}
	root, _ := RESTBaseURL(d.URL)
	resourceURL := root + "/applications/" + url.PathEscape(d.App) + "/databases/" + url.PathEscape(d.DB) + "/dimensions"

	resp, err := c.get(ctx, "list_dimensions", d.Profile(), resourceURL, d.App, d.DB)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("list_dimensions", resourceURL, resp, apierrors.NewNotFoundError("database", d.App+"/"+d.DB)); err != nil {
		return nil, err
	}

	var items itemsResponse
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dimension list: %w", err)
	}
	return items.names(), nil
}

// SearchOutline returns the outline members and aliases matching keyword
// as a whole word, capped at the configured search limit.
func (c *Client) SearchOutline(ctx context.Context, d Database, keyword string) ([]outline.Candidate, error) {
	root, err := RESTBaseURL(d.URL)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("links", "none")
	params.Set("fields", "MEMBERSANDALIASES")
	params.Set("limit", strconv.Itoa(c.searchLimit))
	params.Set("matchWholeWord", "true")
	params.Set("keyword", keyword)
	resourceURL := root + "/outline/" + url.PathEscape(d.App) + "/" + url.PathEscape(d.DB) + "?" + params.Encode()

	resp, err := c.get(ctx, "search_outline", d.Profile(), resourceURL, d.App, d.DB)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("search_outline", resourceURL, resp, nil); err != nil {
		return nil, err
	}

	var result outlineSearchResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse outline search: %w", err)
	}
	return result.Items, nil
}

// SearchMembers resolves each name to one outline member. Results follow
// the order of names; a failed or empty lookup yields a nil member and
// never fails the batch.
func (c *Client) SearchMembers(ctx context.Context, d Database, names []string) ([]outline.Resolution, error) {
	if err := ValidateDatabase(d); err != nil {
		return nil, err
	}

	lookup := func(ctx context.Context, name string) ([]outline.Candidate, error) {
		return c.SearchOutline(ctx, d, name)
	}
	resolver := outline.NewResolver(lookup,
		outline.WithConcurrency(c.concurrency),
		outline.WithLogger(c.Logger),
	)

	ctx, span := tracing.StartSearchSpan(ctx, d.App, d.DB, len(names))
	results := resolver.ResolveMembers(ctx, names)
	resolved := 0
	for _, r := range results {
		metrics.RecordResolution(r.Member != nil)
		if r.Member != nil {
			resolved++
		}
	}
	tracing.EndSearchSpan(span, resolved)
	return results, nil
}

// get performs a traced and metered GET against the Essbase REST API
func (c *Client) get(ctx context.Context, action string, p Profile, resourceURL, app, db string) (*base.Response, error) {
	ctx, span := tracing.StartAPISpan(ctx, action, app, db)

	start := time.Now()
	resp, err := c.Client.DoRequest(ctx, base.RequestConfig{
		URL:      resourceURL,
		User:     p.User,
		Password: p.Password,
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		tracing.EndAPISpan(span, 0, err)
		metrics.RecordAPICall(action, duration, false, "transport")
		return nil, err
	}
	tracing.EndAPISpan(span, resp.StatusCode, nil)

	success := resp.StatusCode < 400
	errorCode := ""
	if !success {
		errorCode = strconv.Itoa(resp.StatusCode)
	}
	metrics.RecordAPICall(action, duration, success, errorCode)
	return resp, nil
}

// checkStatus converts a non-success response into an error. A 404 maps
// to notFound when given.
func (c *Client) checkStatus(action, resourceURL string, resp *base.Response, notFound *apierrors.NotFoundError) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		metrics.AuthFailures.WithLabelValues("unauthorized").Inc()
	case http.StatusForbidden:
		metrics.AuthFailures.WithLabelValues("forbidden").Inc()
	case http.StatusNotFound:
		if notFound != nil {
			return notFound
		}
	}

	c.Logger.Debug("Essbase API error",
		"action", action,
		"url", resourceURL,
		"status", resp.StatusCode)

	return &apierrors.APIError{
		Method:     http.MethodGet,
		URL:        resourceURL,
		StatusCode: resp.StatusCode,
		Body:       base.Truncate(strings.TrimSpace(string(resp.Body)), maxErrorBody),
	}
}
