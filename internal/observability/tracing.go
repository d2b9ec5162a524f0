// Package observability provides OpenTelemetry tracing for depcruise runs.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the depcruise tracer.
	TracerName = "github.com/cdanielsen/dep-cruiser-no-ancestor"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "depcruise")
	ServiceName string

	ServiceVersion string

	// Environment is the deployment environment (dev, ci, ...)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "depcruise",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span kinds recorded under depcruise.span.kind.
const (
	SpanKindRun      = "run"
	SpanKindBuild    = "build"
	SpanKindEvaluate = "evaluate"
	SpanKindStore    = "store"
)

// StartRunSpan starts the root span of one lint run.
func StartRunSpan(ctx context.Context, runID string, entryCount int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "cruise.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("depcruise.span.kind", SpanKindRun),
			attribute.String("depcruise.run_id", runID),
			attribute.Int("cruise.entry_count", entryCount),
		),
	)
}

// StartBuildSpan starts a span for the graph build.
func StartBuildSpan(ctx context.Context, workers int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "cruise.build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("depcruise.span.kind", SpanKindBuild),
			attribute.Int("build.workers", workers),
		),
	)
}

// RecordBuildResult records graph size on a build span.
func RecordBuildResult(span trace.Span, modules, edges, warnings, cycles int) {
	span.SetAttributes(
		attribute.Int("build.module_count", modules),
		attribute.Int("build.edge_count", edges),
		attribute.Int("build.warning_count", warnings),
		attribute.Int("build.cycle_count", cycles),
	)
}

// StartEvaluateSpan starts a span for rule evaluation.
func StartEvaluateSpan(ctx context.Context, forbidden, allowed int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "cruise.evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("depcruise.span.kind", SpanKindEvaluate),
			attribute.Int("evaluate.forbidden_rules", forbidden),
			attribute.Int("evaluate.allowed_rules", allowed),
		),
	)
}

// RecordEvaluateResult records violation counts on an evaluate span. Error
// level violations mark the span as failed.
func RecordEvaluateResult(span trace.Span, errs, warns, infos, ignored int) {
	span.SetAttributes(
		attribute.Int("evaluate.error_count", errs),
		attribute.Int("evaluate.warn_count", warns),
		attribute.Int("evaluate.info_count", infos),
		attribute.Int("evaluate.ignored_count", ignored),
	)
	if errs > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d error violations", errs))
	}
}

// StartStoreSpan starts a span for persisting a run to a graph store.
func StartStoreSpan(ctx context.Context, backend, runID string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "store.save_run",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("depcruise.span.kind", SpanKindStore),
			attribute.String("db.system", backend),
			attribute.String("depcruise.run_id", runID),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
