package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a recording provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "depcruise" {
		t.Fatalf("expected service name 'depcruise', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	// Should be no-op, shutdown should succeed
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{2.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestRunSpansAreNested(t *testing.T) {
	rec := recordSpans(t)
	ctx := context.Background()

	ctx, run := StartRunSpan(ctx, "run-1", 2)
	_, build := StartBuildSpan(ctx, 4)
	RecordBuildResult(build, 10, 12, 1, 0)
	build.End()
	_, eval := StartEvaluateSpan(ctx, 3, 0)
	RecordEvaluateResult(eval, 0, 2, 0, 1)
	eval.End()
	run.End()

	spans := rec.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	names := []string{spans[0].Name(), spans[1].Name(), spans[2].Name()}
	want := []string{"cruise.build", "cruise.evaluate", "cruise.run"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("span %d = %s, want %s", i, names[i], want[i])
		}
	}
	runID := spans[2].SpanContext().SpanID()
	for _, s := range spans[:2] {
		if s.Parent().SpanID() != runID {
			t.Errorf("%s should be a child of cruise.run", s.Name())
		}
	}
	if v, ok := attr(spans[0].Attributes(), "build.edge_count"); !ok || v.AsInt64() != 12 {
		t.Errorf("build.edge_count = %v", v)
	}
	if spans[1].Status().Code == codes.Error {
		t.Error("warnings alone should not fail the evaluate span")
	}
}

func TestRecordEvaluateResult_Errors(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartEvaluateSpan(context.Background(), 1, 0)
	RecordEvaluateResult(span, 2, 0, 0, 0)
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "2 error violations" {
		t.Errorf("unexpected description %q", s.Status().Description)
	}
}

func TestStartStoreSpan(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartStoreSpan(context.Background(), "neo4j", "run-9")
	span.End()

	s := rec.Ended()[0]
	if v, ok := attr(s.Attributes(), "db.system"); !ok || v.AsString() != "neo4j" {
		t.Errorf("db.system = %v", v)
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartRunSpan(context.Background(), "run", 0)

	// Should not panic with nil
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || len(s.Events()) != 1 {
		t.Errorf("error not recorded: status=%v events=%d", s.Status().Code, len(s.Events()))
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
