// Package tracing emits OpenTelemetry spans for MCP tool calls, Essbase
// REST requests and member search batches.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope and default service name
const TracerName = "essbase-mcp-server"

// Exporter kinds
const (
	ExporterNone   = "none"
	ExporterOTLP   = "otlp"
	ExporterStderr = "stderr"
)

// Span attribute keys
const (
	AttrToolName       = attribute.Key("mcp.tool.name")
	AttrToolCategory   = attribute.Key("mcp.tool.category")
	AttrToolReadOnly   = attribute.Key("mcp.tool.readonly")
	AttrToolDuration   = attribute.Key("mcp.tool.duration_seconds")
	AttrAction         = attribute.Key("essbase.api.action")
	AttrApplication    = attribute.Key("essbase.application")
	AttrDatabase       = attribute.Key("essbase.database")
	AttrStatusCode     = attribute.Key("http.response.status_code")
	AttrSearchNames    = attribute.Key("essbase.search.names")
	AttrSearchResolved = attribute.Key("essbase.search.resolved")
)

// Config selects where spans go. The zero Exporter means none.
type Config struct {
	ServiceVersion string
	Exporter       string
	OTLPEndpoint   string
	SampleRate     float64
}

type setupOptions struct {
	writer     io.Writer
	processors []sdktrace.SpanProcessor
}

// Option adjusts Setup
type Option func(*setupOptions)

// WithWriter sets the destination of the stderr exporter
func WithWriter(w io.Writer) Option {
	return func(o *setupOptions) {
		o.writer = w
	}
}

// WithSpanProcessor adds a processor next to the configured exporter
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *setupOptions) {
		o.processors = append(o.processors, sp)
	}
}

// Setup installs the global tracer provider and returns its shutdown func.
// With no exporter and no extra processors tracing stays a no-op.
func Setup(ctx context.Context, cfg Config, opts ...Option) (func(context.Context) error, error) {
	// stdout carries the stdio MCP protocol
	o := setupOptions{writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	exporter, err := newExporter(ctx, cfg, o.writer)
	if err != nil {
		return nil, err
	}
	if exporter == nil && len(o.processors) == 0 {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(TracerName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, sp := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("otlp trace exporter needs an endpoint")
		}
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case ExporterStderr:
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// newSampler samples everything at rate >= 1, nothing at rate <= 0 and a
// ratio of root traces otherwise. Child spans follow their parent.
func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Tracer returns the server's tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartToolSpan starts the span of one MCP tool call
func StartToolSpan(ctx context.Context, name, category string, readOnly bool) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "mcp.tool."+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			AttrToolName.String(name),
			AttrToolCategory.String(category),
			AttrToolReadOnly.Bool(readOnly),
		),
	)
}

// EndToolSpan records the outcome of a tool call and ends its span
func EndToolSpan(span trace.Span, elapsed time.Duration, err error) {
	span.SetAttributes(AttrToolDuration.Float64(elapsed.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartAPISpan starts the client span of one Essbase REST request. Empty
// application or database names are left off.
func StartAPISpan(ctx context.Context, action, app, db string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrAction.String(action)}
	attrs = append(attrs, resourceAttrs(app, db)...)
	return Tracer().Start(ctx, "essbase."+action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndAPISpan records the HTTP status (when one arrived) or the transport
// error and ends the span. 4xx and 5xx answers mark the span as failed.
func EndAPISpan(span trace.Span, statusCode int, err error) {
	if statusCode > 0 {
		span.SetAttributes(AttrStatusCode.Int(statusCode))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case statusCode >= 400:
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(statusCode))
	}
	span.End()
}

// StartSearchSpan starts the span grouping the lookups of one member search
func StartSearchSpan(ctx context.Context, app, db string, names int) (context.Context, trace.Span) {
	attrs := append(resourceAttrs(app, db), AttrSearchNames.Int(names))
	return Tracer().Start(ctx, "essbase.search_members", trace.WithAttributes(attrs...))
}

// EndSearchSpan records how many names resolved and ends the span
func EndSearchSpan(span trace.Span, resolved int) {
	span.SetAttributes(AttrSearchResolved.Int(resolved))
	span.End()
}

func resourceAttrs(app, db string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if app != "" {
		attrs = append(attrs, AttrApplication.String(app))
	}
	if db != "" {
		attrs = append(attrs, AttrDatabase.String(db))
	}
	return attrs
}
