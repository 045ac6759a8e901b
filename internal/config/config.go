// Package config loads server settings from defaults, an optional YAML file
// and environment variables. CLI flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfigPath    = "ESSBASE_MCP_CONFIG"
	EnvHTTPAddr      = "ESSBASE_MCP_HTTP_ADDR"
	EnvToken         = "ESSBASE_MCP_TOKEN"
	EnvRateLimit     = "ESSBASE_MCP_RATE_LIMIT"
	EnvLogLevel      = "ESSBASE_MCP_LOG_LEVEL"
	EnvTimeout       = "ESSBASE_TIMEOUT"
	EnvSearchLimit   = "ESSBASE_SEARCH_LIMIT"
	EnvConcurrency   = "ESSBASE_CONCURRENCY"
	EnvMaxConcurrent = "ESSBASE_MAX_CONCURRENT"
	EnvUserAgent     = "ESSBASE_USER_AGENT"

	EnvTraceExporter   = "ESSBASE_MCP_TRACE_EXPORTER"
	EnvTraceSampleRate = "ESSBASE_MCP_TRACE_SAMPLE_RATE"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Trace exporters accepted by TraceExporter
var traceExporters = []string{"none", "otlp", "stderr"}

// Config holds the server settings
type Config struct {
	// HTTPAddr enables the streamable HTTP transport when set (e.g. ":8080").
	// Empty means stdio.
	HTTPAddr string `yaml:"http_addr"`

	// Token is the bearer token required in HTTP mode. Empty disables auth.
	Token string `yaml:"token"`

	// RateLimit is the per-client request rate in HTTP mode (requests/second).
	// Zero disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the per-client burst size in HTTP mode
	RateBurst int `yaml:"rate_burst"`

	// MaxBodyBytes caps HTTP request bodies
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Timeout for Essbase REST requests
	Timeout time.Duration `yaml:"timeout"`

	// SearchLimit is the number of outline hits requested per member name
	SearchLimit int `yaml:"search_limit"`

	// Concurrency bounds parallel lookups within one member search
	Concurrency int `yaml:"concurrency"`

	// MaxConcurrent bounds outbound Essbase requests across all calls
	MaxConcurrent int `yaml:"max_concurrent"`

	// UserAgent identifies the server to Essbase
	UserAgent string `yaml:"user_agent"`

	// TraceExporter is none, otlp or stderr. Setting OTEL_EXPORTER_OTLP_ENDPOINT
	// switches none to otlp.
	TraceExporter string `yaml:"trace_exporter"`

	// TraceEndpoint is the OTLP/HTTP collector address (host:port)
	TraceEndpoint string `yaml:"trace_endpoint"`

	// TraceSampleRate is the fraction of root traces kept, 0 to 1
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		RateLimit:     10,
		RateBurst:     20,
		MaxBodyBytes:  1 << 20,
		LogLevel:      "info",
		Timeout:       30 * time.Second,
		SearchLimit:   5,
		Concurrency:   4,
		MaxConcurrent: 8,
		UserAgent:     "essbase-mcp-server/1.0",

		TraceExporter:   "none",
		TraceSampleRate: 1,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and the process environment. An empty path falls back to
// ESSBASE_MCP_CONFIG; when both are empty no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the settings of a YAML file. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPAddr); ok {
		c.HTTPAddr = v
	}
	if v, ok := lookup(EnvToken); ok {
		c.Token = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvUserAgent); ok && v != "" {
		c.UserAgent = v
	}

	if v, ok := lookup(EnvTraceExporter); ok && v != "" {
		c.TraceExporter = strings.ToLower(v)
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok && v != "" {
		c.TraceEndpoint = v
		if c.TraceExporter == "" || c.TraceExporter == "none" {
			c.TraceExporter = "otlp"
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{EnvRateLimit, &c.RateLimit},
		{EnvTraceSampleRate, &c.TraceSampleRate},
	}
	for _, f := range floats {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvSearchLimit, &c.SearchLimit},
		{EnvConcurrency, &c.Concurrency},
		{EnvMaxConcurrent, &c.MaxConcurrent},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = n
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.SearchLimit < 1 {
		errs = append(errs, fmt.Errorf("search_limit must be at least 1, got %d", c.SearchLimit))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_burst must be at least 1, got %d", c.RateBurst))
	}
	if c.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(traceExporters, c.TraceExporter) {
		errs = append(errs, fmt.Errorf("trace_exporter must be one of %s, got %q", strings.Join(traceExporters, ", "), c.TraceExporter))
	}
	if c.TraceExporter == "otlp" && c.TraceEndpoint == "" {
		errs = append(errs, fmt.Errorf("trace_endpoint is required with the otlp exporter"))
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		errs = append(errs, fmt.Errorf("trace_sample_rate must be between 0 and 1, got %g", c.TraceSampleRate))
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
