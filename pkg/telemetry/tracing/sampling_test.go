package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestCreateSampler_KeepsDisposals(t *testing.T) {
	sampler, err := createSampler(SamplerRatio, 0)
	if err != nil {
		t.Fatalf("createSampler() error = %v", err)
	}
	if !strings.HasPrefix(sampler.Description(), "DisposalsAlways{") {
		t.Errorf("Description() = %q", sampler.Description())
	}

	traceID := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	tests := []struct {
		name  string
		attrs []attribute.KeyValue
		want  sdktrace.SamplingDecision
	}{
		{name: "tick", attrs: nil, want: sdktrace.Drop},
		{name: "dry run", attrs: []attribute.KeyValue{AttrDryRun.Bool(true)}, want: sdktrace.Drop},
		{name: "real disposal", attrs: []attribute.KeyValue{AttrPolicyID.String("p"), AttrDryRun.Bool(false)}, want: sdktrace.RecordAndSample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sampler.ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       traceID,
				Name:          "retention.execute",
				Attributes:    tt.attrs,
			})
			if res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v", res.Decision, tt.want)
			}
		})
	}
}

func TestCreateSampler_NeverMeansNever(t *testing.T) {
	sampler, err := createSampler(SamplerNever, 1)
	if err != nil {
		t.Fatalf("createSampler() error = %v", err)
	}
	res := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		Attributes:    []attribute.KeyValue{AttrDryRun.Bool(false)},
	})
	if res.Decision != sdktrace.Drop {
		t.Errorf("Decision = %v, want Drop", res.Decision)
	}
}
