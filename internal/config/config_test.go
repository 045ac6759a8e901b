package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.SearchLimit)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":9090"
log_level: debug
timeout: 45s
search_limit: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 8, cfg.SearchLimit)
	// untouched keys keep defaults
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "essbase-mcp-server/1.0", cfg.UserAgent)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not, a, duration"), 0o600))
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvHTTPAddr:      ":8080",
		EnvToken:         "s3cret",
		EnvRateLimit:     "2.5",
		EnvLogLevel:      "warn",
		EnvTimeout:       "5s",
		EnvSearchLimit:   "10",
		EnvConcurrency:   "2",
		EnvMaxConcurrent: "16",
		EnvUserAgent:     "custom/1.0",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.Token)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.SearchLimit)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 16, cfg.MaxConcurrent)
	assert.Equal(t, "custom/1.0", cfg.UserAgent)
}

func TestApplyEnv_Tracing(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		EnvOTLPEndpoint:    "collector:4318",
		EnvTraceSampleRate: "0.25",
	})))
	assert.Equal(t, "otlp", cfg.TraceExporter, "an OTLP endpoint should switch tracing on")
	assert.Equal(t, "collector:4318", cfg.TraceEndpoint)
	assert.Equal(t, 0.25, cfg.TraceSampleRate)
	require.NoError(t, cfg.Validate())

	cfg = Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		EnvTraceExporter: "STDERR",
		EnvOTLPEndpoint:  "collector:4318",
	})))
	assert.Equal(t, "stderr", cfg.TraceExporter, "an explicit exporter wins over the endpoint")
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{EnvRateLimit, "fast"},
		{EnvTimeout, "30"},
		{EnvSearchLimit, "five"},
		{EnvConcurrency, "1.5"},
		{EnvTraceSampleRate, "half"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envMap(map[string]string{tt.key: tt.value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_limit: 8\nlog_level: debug\n"), 0o600))

	t.Setenv(EnvSearchLimit, "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.SearchLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7070\"\n"), 0o600))

	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero search limit", func(c *Config) { c.SearchLimit = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero max concurrent", func(c *Config) { c.MaxConcurrent = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown trace exporter", func(c *Config) { c.TraceExporter = "jaeger" }},
		{"otlp without endpoint", func(c *Config) { c.TraceExporter = "otlp" }},
		{"sample rate above one", func(c *Config) { c.TraceSampleRate = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ZeroRateLimitDisablesLimiting(t *testing.T) {
	cfg := Default()
	cfg.RateLimit = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.ok, err == nil)
			assert.Equal(t, tt.want, got)
		})
	}
}
