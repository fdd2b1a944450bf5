package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	SamplerAlways      = "always"
	SamplerNever       = "never"
	SamplerRatio       = "ratio"
	SamplerParentBased = "parent_based"
)

// createSampler builds the sampler named by strategy. Except for "never",
// spans follow their parent's decision, and a span that starts a real
// disposal (retention.execution.dry_run=false) is always kept whatever the
// ratio: destroyed records must be traceable.
//
// "ratio" and "parent_based" are the same sampler; "ratio" is kept for
// configs written before parent-based sampling became the default.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	var base sdktrace.Sampler
	switch strategy {
	case SamplerNever:
		return sdktrace.NeverSample(), nil
	case SamplerAlways:
		base = sdktrace.AlwaysSample()
	case SamplerRatio, SamplerParentBased, "":
		base = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy %q (want always, never, ratio or parent_based)", strategy)
	}
	return disposalSampler{next: sdktrace.ParentBased(base)}, nil
}

type disposalSampler struct {
	next sdktrace.Sampler
}

func (s disposalSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, kv := range p.Attributes {
		if kv.Key == AttrDryRun && !kv.Value.AsBool() {
			return sdktrace.SamplingResult{
				Decision:   sdktrace.RecordAndSample,
				Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
			}
		}
	}
	return s.next.ShouldSample(p)
}

func (s disposalSampler) Description() string {
	return "DisposalsAlways{" + s.next.Description() + "}"
}
