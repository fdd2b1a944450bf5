package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: sampler, SampleRatio: 1}, exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled tracer reports enabled")
	}

	_, span := tracer.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a recording span")
	}
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&config.TracingConfig{Enabled: true, Exporter: "zipkin", Endpoint: "localhost:9411"}); err == nil {
		t.Error("expected error for unsupported exporter")
	}
	if _, err := New(&config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "localhost:4317", OTLP: config.OTLPConfig{Insecure: true}}); err == nil {
		t.Error("expected error for unknown sampler")
	}
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer

	ctx, span := tracer.Start(context.Background(), "nil")
	span.End()
	if ctx == nil {
		t.Fatal("Start returned nil context")
	}
	if tracer.Enabled() {
		t.Error("nil tracer reports enabled")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTracer_ChildSpansAndAttributes(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, SamplerAlways)

	policy := &retention.Policy{
		ID:          "pol-1",
		OwnerID:     "owner-1",
		Status:      retention.StatusActive,
		Disposition: retention.Disposition{Action: retention.ActionDelete},
	}
	completed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := &retention.ExecutionRecord{
		ID:               "exec-1",
		Status:           retention.ExecutionCompletedWithErrors,
		Trigger:          retention.TriggerScheduled,
		RecordsProcessed: 5,
		RecordsFailed:    1,
		CompletedAt:      &completed,
	}

	ctx, tick := tracer.Start(context.Background(), "retention.tick")
	_, exec := tracer.Start(ctx, "retention.execute", trace.WithAttributes(PolicyAttributes(policy)...))
	SetExecutionAttributes(exec, rec)
	SetError(exec, errors.New("1 record failed"))
	exec.End()
	tick.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}

	execSpan, tickSpan := spans[0], spans[1]
	if execSpan.Parent.SpanID() != tickSpan.SpanContext.SpanID() {
		t.Error("execute span is not a child of the tick span")
	}
	if execSpan.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", execSpan.Status.Code)
	}

	attrs := attrMap(execSpan.Attributes)
	if attrs[AttrPolicyID].AsString() != "pol-1" {
		t.Errorf("policy id = %v", attrs[AttrPolicyID])
	}
	if attrs[AttrExecutionStatus].AsString() != "completed_with_errors" {
		t.Errorf("execution status = %v", attrs[AttrExecutionStatus])
	}
	if attrs[AttrRecordsFailed].AsInt64() != 1 {
		t.Errorf("records failed = %v", attrs[AttrRecordsFailed])
	}
	if attrs[AttrHoldActive].AsBool() {
		t.Error("hold should be inactive")
	}
}

func TestTracer_NeverSampler(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, SamplerNever)

	_, span := tracer.Start(context.Background(), "dropped")
	span.End()
	_ = tracer.ForceFlush(context.Background())

	if n := len(exporter.GetSpans()); n != 0 {
		t.Errorf("exported %d spans with never sampler", n)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{strategy: SamplerAlways, ratio: 1},
		{strategy: SamplerNever, ratio: 1},
		{strategy: SamplerRatio, ratio: 0.1},
		{strategy: SamplerParentBased, ratio: 0.5},
		{strategy: "", ratio: 1},
		{strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{strategy: "random", ratio: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			_, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			}
		})
	}
}

func TestInjectExtract(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	tracer, _ := newRecordingTracer(t, SamplerAlways)
	ctx, span := tracer.Start(context.Background(), "retention.governance_sync")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("traceparent header not injected")
	}

	extracted := Extract(context.Background(), headers)
	if TraceID(extracted) != TraceID(ctx) {
		t.Errorf("extracted trace id %q, want %q", TraceID(extracted), TraceID(ctx))
	}
	if TraceID(context.Background()) != "" {
		t.Error("TraceID of empty context should be empty")
	}
}
