package main

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olgasafonova/essbase-mcp-server/metrics"
)

// limiterTTL is how long an idle client's limiter is kept
const limiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter holds one token bucket per client IP. Idle buckets are
// evicted in the background until Close is called.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter allowing perSecond requests per client
// with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		ttl:      limiterTTL,
		stopCh:   make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether a request from ip is within limits.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter.Allow()
}

// Evict removes limiters idle for longer than the TTL.
func (rl *RateLimiter) Evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.ttl)
	for ip, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Evict()
		case <-rl.stopCh:
			return
		}
	}
}

// SecurityConfig configures the HTTP security middleware
type SecurityConfig struct {
	// RateLimit is requests per second per client; 0 disables limiting
	RateLimit float64
	// RateBurst is the per-client burst size
	RateBurst int
	// MaxBodySize caps request bodies in bytes; 0 disables the cap
	MaxBodySize int64
	// BearerToken, when set, is required in the Authorization header
	BearerToken string
}

// SecurityMiddleware guards the MCP HTTP endpoint with rate limiting, a
// body size cap and optional bearer token auth.
type SecurityMiddleware struct {
	next        http.Handler
	logger      *slog.Logger
	config      SecurityConfig
	rateLimiter *RateLimiter
}

// NewSecurityMiddleware wraps next with the configured checks.
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	sm := &SecurityMiddleware{
		next:   next,
		logger: logger,
		config: config,
	}
	if config.RateLimit > 0 {
		sm.rateLimiter = NewRateLimiter(config.RateLimit, config.RateBurst)
	}
	return sm
}

// Close releases the rate limiter.
func (sm *SecurityMiddleware) Close() {
	if sm.rateLimiter != nil {
		sm.rateLimiter.Close()
	}
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	}()

	ip := clientIP(r)

	if sm.rateLimiter != nil && !sm.rateLimiter.Allow(ip) {
		metrics.RateLimitRejections.Inc()
		sm.logger.Warn("Rate limit exceeded", "client_ip", ip)
		http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if sm.config.BearerToken != "" && !validBearer(r.Header.Get("Authorization"), sm.config.BearerToken) {
		metrics.AuthFailures.WithLabelValues("bearer_token").Inc()
		sm.logger.Warn("Unauthorized request", "client_ip", ip)
		rec.Header().Set("WWW-Authenticate", `Bearer realm="essbase-mcp"`)
		http.Error(rec, "unauthorized", http.StatusUnauthorized)
		return
	}

	if sm.config.MaxBodySize > 0 {
		if r.ContentLength > sm.config.MaxBodySize {
			http.Error(rec, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(rec, r.Body, sm.config.MaxBodySize)
	}

	sm.next.ServeHTTP(rec, r)
}

// validBearer compares the Authorization header against the token in
// constant time.
func validBearer(header, token string) bool {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	got := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// clientIP returns the request's remote IP without the port. RemoteAddr is
// already rewritten by chi's RealIP middleware when proxies set headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
