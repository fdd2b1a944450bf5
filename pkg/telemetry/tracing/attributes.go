package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/retention"
)

// Span attribute keys.
const (
	AttrPolicyID         = attribute.Key("retention.policy_id")
	AttrPolicyOwner      = attribute.Key("retention.owner_id")
	AttrPolicyStatus     = attribute.Key("retention.status")
	AttrAction           = attribute.Key("retention.action")
	AttrHoldActive       = attribute.Key("retention.legal_hold.active")
	AttrExecutionID      = attribute.Key("retention.execution.id")
	AttrExecutionStatus  = attribute.Key("retention.execution.status")
	AttrTrigger          = attribute.Key("retention.execution.trigger")
	AttrDryRun           = attribute.Key("retention.execution.dry_run")
	AttrForced           = attribute.Key("retention.execution.forced")
	AttrRecordsProcessed = attribute.Key("retention.records.processed")
	AttrRecordsFailed    = attribute.Key("retention.records.failed")
	AttrDuePolicies      = attribute.Key("retention.scheduler.due_policies")
)

// PolicyAttributes describes a policy on a span.
func PolicyAttributes(p *retention.Policy) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyID.String(p.ID),
		AttrPolicyOwner.String(p.OwnerID),
		AttrPolicyStatus.String(string(p.Status)),
		AttrAction.String(string(p.Disposition.Action)),
		AttrHoldActive.Bool(p.LegalHold.IsActive),
	}
}

// SetExecutionAttributes records the outcome of an execution on span.
func SetExecutionAttributes(span trace.Span, rec *retention.ExecutionRecord) {
	span.SetAttributes(
		AttrExecutionID.String(rec.ID),
		AttrExecutionStatus.String(string(rec.Status)),
		AttrTrigger.String(string(rec.Trigger)),
		AttrDryRun.Bool(rec.DryRun),
		AttrForced.Bool(rec.Forced),
		AttrRecordsProcessed.Int64(rec.RecordsProcessed),
		AttrRecordsFailed.Int64(rec.RecordsFailed),
	)
}
