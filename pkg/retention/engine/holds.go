package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// ApplyLegalHold places a legal hold on a policy, pausing it. Applying a
// hold to a policy that is already held refreshes the hold details but
// keeps its id and original application time. An archived policy records
// the hold and stays archived.
func (e *Engine) ApplyLegalHold(ctx context.Context, id string, req HoldRequest) (*Result, error) {
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.CaseReference) == "" {
		return nil, &retention.ValidationError{Errors: []retention.FieldError{
			{Field: "legal_hold.name", Message: "a hold name or case reference is required"},
		}}
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithPolicyID(ctx, id)
	ctx = logging.WithActor(ctx, req.AppliedBy)

	now := e.now()
	hold := retention.LegalHold{
		HoldID:        uuid.New().String(),
		Name:          req.Name,
		CaseReference: req.CaseReference,
		Reason:        req.Reason,
		AppliedBy:     req.AppliedBy,
		ExpiresAt:     req.ExpiresAt,
	}
	refreshed := p.LegalHold.IsActive
	if refreshed {
		hold.HoldID = p.LegalHold.HoldID
		hold.AppliedAt = p.LegalHold.AppliedAt
	}

	previous := p.Status
	p.ApplyHold(hold, now)

	if err := e.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	e.metrics.RecordHold("apply")
	if p.Status != previous {
		e.metrics.RecordTransition(string(p.Status))
	}

	label := retention.HoldLabel(p.LegalHold)
	e.logger.InfoContext(ctx, "legal hold applied",
		"hold_id", p.LegalHold.HoldID,
		"hold", label,
		"refreshed", refreshed,
		"status", p.Status,
	)

	msg := fmt.Sprintf("legal hold %q applied", label)
	if refreshed {
		msg = fmt.Sprintf("legal hold %q updated", label)
	}
	return &Result{Success: true, Message: msg, LegalHold: label, Policy: p}, nil
}

// ReleaseLegalHold lifts the active legal hold of a policy. By default the
// policy becomes active again with its NextRun recomputed from now; with
// Reactivate set to false it stays paused for a manual reason. Releasing a
// policy without an active hold changes nothing and is not an error.
func (e *Engine) ReleaseLegalHold(ctx context.Context, id string, opts ReleaseOptions) (*Result, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithPolicyID(ctx, id)
	ctx = logging.WithActor(ctx, opts.ReleasedBy)

	label := retention.HoldLabel(p.LegalHold)
	previous := p.Status
	now := e.now()
	if !p.ReleaseHold(opts.ReleasedBy, opts.reactivate(), now) {
		return &Result{Success: false, Message: "policy has no active legal hold", Policy: p}, nil
	}
	if p.Status == retention.StatusActive {
		reschedule(p, now)
	}

	if err := e.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	e.metrics.RecordHold("release")
	if p.Status != previous {
		e.metrics.RecordTransition(string(p.Status))
	}
	e.logger.InfoContext(ctx, "legal hold released",
		"hold", label,
		"status", p.Status,
		"next_run", p.Schedule.NextRun,
	)

	return &Result{
		Success:   true,
		Message:   fmt.Sprintf("legal hold %q released, policy is %s", label, p.Status),
		LegalHold: label,
		Policy:    p,
	}, nil
}
