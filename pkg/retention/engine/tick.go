package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// RunScheduledPolicies executes every policy due at now: active, not under
// a legal hold and with NextRun at or before now. Policies run concurrently,
// at most MaxConcurrency at a time. A failing policy never stops the others.
//
// Each policy is re-read under its lock before it runs, so overlapping
// ticks execute a policy at most once per due date; the loser is reported
// as skipped. Results are ordered by policy id.
func (e *Engine) RunScheduledPolicies(ctx context.Context, now time.Time) ([]TickResult, error) {
	ctx, span := e.tracer.Start(ctx, "retention.tick")
	defer span.End()

	started := time.Now()
	due, err := e.repo.Due(ctx, now)
	if err != nil {
		tracing.SetError(span, err)
		return nil, fmt.Errorf("failed to query due policies: %w", err)
	}
	span.SetAttributes(tracing.AttrDuePolicies.Int(len(due)))

	results := make([]TickResult, len(due))
	sem := make(chan struct{}, e.config.MaxConcurrency)
	var wg sync.WaitGroup

	for i, p := range due {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = TickResult{PolicyID: id, Error: ctx.Err().Error()}
				return
			}
			results[i] = e.runDue(ctx, id, now)
		}(i, p.ID)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].PolicyID < results[j].PolicyID })

	var succeeded, failed int
	for _, r := range results {
		switch {
		case r.Skipped:
		case r.Success:
			succeeded++
		default:
			failed++
		}
	}

	duration := time.Since(started)
	e.metrics.RecordTick(len(due), succeeded, failed, duration, now)
	span.SetAttributes(
		attribute.Int("retention.scheduler.succeeded", succeeded),
		attribute.Int("retention.scheduler.failed", failed),
	)
	e.refreshInventory(ctx)

	if len(due) > 0 {
		e.logger.InfoContext(ctx, "scheduled tick completed",
			"due", len(due),
			"succeeded", succeeded,
			"failed", failed,
			"duration_ms", duration.Milliseconds(),
		)
	}
	return results, nil
}

// runDue executes one policy found due by a tick.
func (e *Engine) runDue(ctx context.Context, id string, now time.Time) TickResult {
	unlock := e.locks.Lock(id)
	defer unlock()

	result := TickResult{PolicyID: id}

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !stillDue(p, now) {
		result.Skipped = true
		result.Success = true
		return result
	}

	res, err := e.execute(ctx, p, retention.TriggerScheduled, false, now)
	if err != nil {
		e.logger.ErrorContext(ctx, "scheduled execution failed", "policy_id", id, "error", err)
		result.Error = err.Error()
		return result
	}

	result.Success = res.Success
	if res.Execution != nil {
		result.DryRun = res.Execution.DryRun
		result.RecordsProcessed = res.Execution.RecordsProcessed
		result.Error = res.Execution.Error
	} else if !res.Success {
		result.Error = res.Message
	}
	return result
}

func stillDue(p *retention.Policy, now time.Time) bool {
	return p.Status == retention.StatusActive &&
		!p.LegalHold.IsActive &&
		p.Schedule.NextRun != nil &&
		!p.Schedule.NextRun.After(now)
}

// refreshInventory updates the policy inventory gauges.
func (e *Engine) refreshInventory(ctx context.Context) {
	if e.metrics == nil {
		return
	}
	policies, err := e.repo.List(ctx, retention.Filter{})
	if err != nil {
		e.logger.WarnContext(ctx, "failed to refresh policy inventory", "error", err)
		return
	}

	byStatus := make(map[string]int)
	var holds, approvals int
	for _, p := range policies {
		byStatus[string(p.Status)]++
		if p.LegalHold.IsActive {
			holds++
		}
		if p.Disposition.RequireApproval && openEntry(p) != nil {
			approvals++
		}
	}
	e.metrics.UpdateInventory(byStatus, holds, approvals)
}
