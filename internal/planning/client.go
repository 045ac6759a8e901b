package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olgasafonova/essbase-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
	"github.com/olgasafonova/essbase-mcp-server/metrics"
	"github.com/olgasafonova/essbase-mcp-server/tracing"
)

// maxErrorBody caps the response text quoted in API errors
const maxErrorBody = 500

// Client provides access to the EPM Planning REST API
type Client struct {
	*base.Client
}

// ClientOption configures the Client
type ClientOption = base.ClientOption

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return base.WithHTTPClient(c)
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return base.WithLogger(l)
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return base.WithTimeout(d)
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return base.WithUserAgent(ua)
}

// WithMaxConcurrent bounds outbound requests across all calls
func WithMaxConcurrent(n int) ClientOption {
	return base.WithMaxConcurrent(n)
}

// NewClient creates a new Planning REST client
func NewClient(opts ...ClientOption) *Client {
	return &Client{Client: base.NewClient(opts...)}
}

// Connect checks that the profile reaches a Planning REST API and returns
// the profile with its URL normalized to the REST root.
func (c *Client) Connect(ctx context.Context, p Profile) (Profile, error) {
	if err := ValidateProfile(p); err != nil {
		return Profile{}, err
	}
	root, _ := RESTBaseURL(p.URL)

	resp, err := c.get(ctx, "connect", p, root)
	if err != nil {
		return Profile{}, err
	}
	if err := c.checkStatus("connect", root, resp); err != nil {
		return Profile{}, err
	}
	if !strings.HasPrefix(resp.ContentType, "application/json") {
		return Profile{}, fmt.Errorf("GET %s: unexpected Content-Type %q", root, resp.ContentType)
	}

	return Profile{URL: root, User: p.User, Password: p.Password}, nil
}

// ListApplications returns the Planning applications assigned to the user
func (c *Client) ListApplications(ctx context.Context, p Profile) ([]string, error) {
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	root, _ := RESTBaseURL(p.URL)
	resourceURL := root + "/applications"

	resp, err := c.get(ctx, "list_applications", p, resourceURL)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("list_applications", resourceURL, resp); err != nil {
		return nil, err
	}

	var apps applicationsResponse
	if err := json.Unmarshal(resp.Body, &apps); err != nil {
		return nil, fmt.Errorf("failed to parse Planning application list: %w", err)
	}
	return apps.names(), nil
}

// get performs a traced and metered GET against the Planning REST API
func (c *Client) get(ctx context.Context, action string, p Profile, resourceURL string) (*base.Response, error) {
	action = "planning_" + action
	ctx, span := tracing.StartAPISpan(ctx, action, "", "")

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

// checkStatus converts a non-2xx response into an APIError
func (c *Client) checkStatus(action, resourceURL string, resp *base.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		metrics.AuthFailures.WithLabelValues("unauthorized").Inc()
	case http.StatusForbidden:
		metrics.AuthFailures.WithLabelValues("forbidden").Inc()
	}

	c.Logger.Debug("Planning API error",
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
