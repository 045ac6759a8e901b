// Essbase MCP Server - A Model Context Protocol server for Oracle Essbase
// Provides tools for browsing applications, databases and dimensions,
// resolving member names, and building MDX set expressions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/olgasafonova/essbase-mcp-server/internal/config"
	"github.com/olgasafonova/essbase-mcp-server/internal/essbase"
	"github.com/olgasafonova/essbase-mcp-server/internal/planning"
	"github.com/olgasafonova/essbase-mcp-server/tools"
	"github.com/olgasafonova/essbase-mcp-server/tracing"
)

const (
	ServerName    = "essbase-mcp-server"
	ServerVersion = "1.0.0"
)

const serverInstructions = `Essbase MCP Server provides tools for exploring Oracle Essbase cubes and building MDX.

Every Essbase tool takes the connection profile {url, user, pwd}; credentials travel with each call and nothing is stored.

Typical flow:
1. essbase_connect: verify the profile and get the normalized REST URL
2. essbase_list_applications / essbase_list_databases / essbase_list_dimensions: browse the catalog
3. essbase_search_members: resolve business terms to outline members (null when unknown)
4. essbase_member_range_mdx / essbase_set_mdx: build set expressions from resolved members

For EPM Planning servers use planning_connect, then planning_list_applications.`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cliFlags holds command-line overrides; they win over file and environment
type cliFlags struct {
	configPath string
	httpAddr   string
	token      string
	rateLimit  float64
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   ServerName,
		Short: "MCP server for Oracle Essbase",
		Long: `essbase-mcp-server exposes Essbase REST endpoints (applications, databases,
dimensions, outline member search) and an MDX set builder as MCP tools.

It serves MCP over stdio by default; --http serves streamable HTTP instead.`,
		Version:      ServerVersion,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	f.StringVar(&flags.httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :8080) instead of stdio")
	f.StringVar(&flags.token, "token", "", "bearer token required for HTTP requests")
	f.Float64Var(&flags.rateLimit, "rate-limit", 0, "per-client requests per second in HTTP mode (0 disables)")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

// loadConfig merges defaults, config file, environment and changed flags.
func loadConfig(cmd *cobra.Command, flags cliFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("http") {
		cfg.HTTPAddr = flags.httpAddr
	}
	if changed("token") {
		cfg.Token = flags.token
	}
	if changed("rate-limit") {
		cfg.RateLimit = flags.rateLimit
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceVersion: ServerVersion,
		Exporter:       cfg.TraceExporter,
		OTLPEndpoint:   cfg.TraceEndpoint,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	client := essbase.NewClient(
		essbase.WithLogger(logger),
		essbase.WithTimeout(cfg.Timeout),
		essbase.WithUserAgent(cfg.UserAgent),
		essbase.WithMaxConcurrent(cfg.MaxConcurrent),
		essbase.WithSearchLimit(cfg.SearchLimit),
		essbase.WithSearchConcurrency(cfg.Concurrency),
	)
	defer client.Close()

	planningClient := planning.NewClient(
		planning.WithLogger(logger),
		planning.WithTimeout(cfg.Timeout),
		planning.WithUserAgent(cfg.UserAgent),
		planning.WithMaxConcurrent(cfg.MaxConcurrent),
	)
	defer planningClient.Close()

	server := newServer(client, planningClient, logger)

	if cfg.HTTPAddr == "" {
		logger.Info("Starting Essbase MCP Server",
			"name", ServerName,
			"version", ServerVersion,
			"transport", "stdio",
		)
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	return serveHTTP(ctx, server, cfg, logger)
}

// newServer creates the MCP server with every tool registered.
func newServer(client *essbase.Client, planningClient *planning.Client, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions,
	})

	tools.NewHandlerRegistry(client, planningClient, logger).RegisterAll(server)
	return server
}

// newHTTPHandler routes /mcp through the security middleware and exposes
// /health and /metrics. The returned func releases the middleware.
func newHTTPHandler(server *mcp.Server, cfg config.Config, logger *slog.Logger) (http.Handler, func()) {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	security := NewSecurityMiddleware(mcpHandler, logger, SecurityConfig{
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		MaxBodySize: cfg.MaxBodyBytes,
		BearerToken: cfg.Token,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/mcp", security)

	return r, security.Close
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"name":    ServerName,
		"version": ServerVersion,
	})
}

func serveHTTP(ctx context.Context, server *mcp.Server, cfg config.Config, logger *slog.Logger) error {
	handler, closeHandler := newHTTPHandler(server, cfg, logger)
	defer closeHandler()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Token == "" {
		logger.Warn("HTTP mode without bearer token; anyone who can reach the port can call tools")
	}
	logger.Info("Starting Essbase MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"transport", "http",
		"addr", cfg.HTTPAddr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
