package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olgasafonova/essbase-mcp-server/internal/essbase"
	"github.com/olgasafonova/essbase-mcp-server/internal/mdx"
	"github.com/olgasafonova/essbase-mcp-server/internal/planning"
	"github.com/olgasafonova/essbase-mcp-server/metrics"
	"github.com/olgasafonova/essbase-mcp-server/tracing"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	essbaseClient  *essbase.Client
	planningClient *planning.Client
	logger         *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(essbaseClient *essbase.Client, planningClient *planning.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		essbaseClient:  essbaseClient,
		planningClient: planningClient,
		logger:         logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "Connect":
		return h.register(server, tool, spec, h.essbaseClient.ConnectMCP)
	case "ListApplications":
		return h.register(server, tool, spec, h.essbaseClient.ListApplicationsMCP)
	case "ListDatabases":
		return h.register(server, tool, spec, h.essbaseClient.ListDatabasesMCP)
	case "ListDimensions":
		return h.register(server, tool, spec, h.essbaseClient.ListDimensionsMCP)
	case "SearchMembers":
		return h.register(server, tool, spec, h.essbaseClient.SearchMembersMCP)
	case "MemberRangeMDX":
		return h.register(server, tool, spec, mdx.RangeExpressionMCP)
	case "SetMDX":
		return h.register(server, tool, spec, mdx.SetExpressionMCP)

	// Planning
	case "PlanningConnect":
		return h.register(server, tool, spec, h.planningClient.ConnectMCP)
	case "PlanningListApplications":
		return h.register(server, tool, spec, h.planningClient.ListApplicationsMCP)
	}

	h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
	return false
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	} else {
		annotations.OpenWorldHint = ptr(false)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the method with panic recovery, metrics, a tool span and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (res *mcp.CallToolResult, out Result, err error) {
		ctx, span := tracing.StartToolSpan(ctx, spec.Name, spec.Category, spec.ReadOnly)
		start := time.Now()
		defer func() {
			tracing.EndToolSpan(span, time.Since(start), err)
		}()
		defer h.recoverPanic(spec.Name, &err)

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		result, err := method(ctx, args)
		duration := time.Since(start).Seconds()

		if err != nil {
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Debug("Tool failed", "tool", spec.Name, "error", err)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	})
}

// recoverPanic recovers from panics in tool handlers and turns them into
// a tool error.
func (h *HandlerRegistry) recoverPanic(toolName string, errp *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if errp != nil {
			*errp = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details. Credentials are never logged.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	switch a := args.(type) {
	case essbase.ConnectArgs:
		attrs = append(attrs, "user", a.Profile.User)
	case essbase.ListApplicationsArgs:
		attrs = append(attrs, "user", a.Profile.User)
	case essbase.ListDatabasesArgs:
		attrs = append(attrs, "app", a.Application.App)
	case essbase.ListDimensionsArgs:
		attrs = append(attrs, "app", a.Database.App, "db", a.Database.DB)
	case essbase.SearchMembersArgs:
		attrs = append(attrs, "app", a.Database.App, "db", a.Database.DB, "names", len(a.EntityNames))
	case planning.ConnectArgs:
		attrs = append(attrs, "user", a.Profile.User)
	case planning.ListApplicationsArgs:
		attrs = append(attrs, "user", a.Profile.User)
	}

	switch r := result.(type) {
	case essbase.ConnectResult:
		attrs = append(attrs, "url", r.Profile.URL)
	case essbase.ListApplicationsResult:
		attrs = append(attrs, "applications", r.Count)
	case essbase.ListDatabasesResult:
		attrs = append(attrs, "databases", r.Count)
	case essbase.ListDimensionsResult:
		attrs = append(attrs, "dimensions", r.Count)
	case essbase.SearchMembersResult:
		attrs = append(attrs, "resolved", r.Resolved, "unresolved", r.Unresolved)
	case mdx.ExpressionResult:
		attrs = append(attrs, "expression_length", len(r.Expression))
	case planning.ConnectResult:
		attrs = append(attrs, "url", r.Profile.URL)
	case planning.ListApplicationsResult:
		attrs = append(attrs, "applications", r.Count)
	}

	h.logger.Info("Tool executed", attrs...)
}

// register calls the generic register with the concrete method type.
func (h *HandlerRegistry) register(server *mcp.Server, tool *mcp.Tool, spec ToolSpec, method any) bool {
	switch m := method.(type) {
	case func(context.Context, essbase.ConnectArgs) (essbase.ConnectResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, essbase.ListApplicationsArgs) (essbase.ListApplicationsResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, essbase.ListDatabasesArgs) (essbase.ListDatabasesResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, essbase.ListDimensionsArgs) (essbase.ListDimensionsResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, essbase.SearchMembersArgs) (essbase.SearchMembersResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, mdx.RangeExpressionArgs) (mdx.ExpressionResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, mdx.SetExpressionArgs) (mdx.ExpressionResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, planning.ConnectArgs) (planning.ConnectResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, planning.ListApplicationsArgs) (planning.ListApplicationsResult, error):
		register(h, server, tool, spec, m)
	default:
		h.logger.Error("Unknown method type, tool not registered", "tool", spec.Name)
		return false
	}
	return true
}
