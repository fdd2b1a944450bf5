package engine

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// ActivatePolicy moves a draft or manually paused policy to active and
// schedules its next run from now.
func (e *Engine) ActivatePolicy(ctx context.Context, id string) (*retention.Policy, error) {
	return e.transition(ctx, id, "activate", (*retention.Policy).Activate)
}

// PausePolicy pauses an active policy. The scheduler skips it until it is
// resumed.
func (e *Engine) PausePolicy(ctx context.Context, id string) (*retention.Policy, error) {
	return e.transition(ctx, id, "pause", (*retention.Policy).Pause)
}

// ResumePolicy reactivates a manually paused policy. A policy paused by a
// legal hold must be released with ReleaseLegalHold instead.
func (e *Engine) ResumePolicy(ctx context.Context, id string) (*retention.Policy, error) {
	return e.transition(ctx, id, "resume", (*retention.Policy).Resume)
}

// ArchivePolicy retires a policy for good. It is refused while a legal
// hold is active.
func (e *Engine) ArchivePolicy(ctx context.Context, id string) (*retention.Policy, error) {
	return e.transition(ctx, id, "archive", (*retention.Policy).Archive)
}

// transition applies a lifecycle method under the policy lock. Invalid
// transitions return a *retention.TransitionError and save nothing.
func (e *Engine) transition(ctx context.Context, id, op string, apply func(*retention.Policy, time.Time) error) (*retention.Policy, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := p.Status
	now := e.now()
	if err := apply(p, now); err != nil {
		return nil, err
	}
	if p.Status == previous {
		return p, nil
	}
	if p.Status == retention.StatusActive {
		reschedule(p, now)
	}

	if err := e.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	e.metrics.RecordTransition(string(p.Status))
	e.logger.InfoContext(logging.WithPolicyID(ctx, id), "policy "+op+"d",
		"from", previous,
		"to", p.Status,
		"next_run", p.Schedule.NextRun,
	)
	return p, nil
}
