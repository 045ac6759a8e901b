// Package metrics provides Prometheus metrics for the Essbase MCP server.
// It tracks tool calls, Essbase REST calls, member resolution outcomes and
// the HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "essbase_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.001, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// EssbaseAPILatency measures Essbase REST call latency by action
	EssbaseAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "essbase_api_latency_seconds",
		Help:      "Essbase REST API call latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// EssbaseAPIRequestsTotal counts Essbase REST calls
	EssbaseAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "essbase_api_requests_total",
		Help:      "Total Essbase REST API requests by action and status",
	}, []string{"action", "status"})

	// EssbaseAPIErrors counts Essbase REST errors by HTTP status or failure kind
	EssbaseAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "essbase_api_errors_total",
		Help:      "Essbase REST API errors by action and error code",
	}, []string{"action", "error_code"})

	// MemberResolutions counts member resolution outcomes
	MemberResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "member_resolutions_total",
		Help:      "Member search outcomes (resolved, unresolved)",
	}, []string{"outcome"})

	// CircuitBreakerTransitions counts circuit breaker state changes
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "circuit_breaker_transitions_total",
		Help:      "Circuit breaker state transitions by target state",
	}, []string{"to"})

	// RateLimitRejections counts requests rejected due to rate limiting
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected due to rate limiting",
	})

	// RateLimitWaits counts requests that had to wait for a request slot
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Requests that waited for the outbound request semaphore",
	})

	// AuthFailures counts authentication failures
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_failures_total",
		Help:      "Authentication failure count by reason",
	}, []string{"reason"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// HTTPRequestsTotal counts HTTP transport requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPRequestDuration measures HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency distribution",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, status(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records an Essbase REST call
func RecordAPICall(action string, duration float64, success bool, errorCode string) {
	EssbaseAPIRequestsTotal.WithLabelValues(action, status(success)).Inc()
	EssbaseAPILatency.WithLabelValues(action).Observe(duration)
	if errorCode != "" {
		EssbaseAPIErrors.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordResolution records the outcome of resolving one entity name
func RecordResolution(resolved bool) {
	outcome := "resolved"
	if !resolved {
		outcome = "unresolved"
	}
	MemberResolutions.WithLabelValues(outcome).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
