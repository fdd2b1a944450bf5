package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// ExecutePolicy runs the disposition of one policy now.
//
// A policy under legal hold, or not active, is refused: the result has
// Success false and no execution record is written. Otherwise exactly one
// execution record is appended, even when the disposition fails.
//
// Whether the run disposes of records or only counts them (a dry run)
// depends on the approval gate, the AutoDispose setting and opts.Force.
func (e *Engine) ExecutePolicy(ctx context.Context, id string, opts ExecuteOptions) (*Result, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, p, retention.TriggerManual, opts.Force, e.now())
}

// execute runs one execution of p. The caller must hold p's lock; p is
// updated in place and saved.
func (e *Engine) execute(ctx context.Context, p *retention.Policy, trigger retention.Trigger, force bool, now time.Time) (*Result, error) {
	ctx = logging.WithPolicyID(ctx, p.ID)
	ctx = logging.WithTrigger(ctx, string(trigger))

	decision := retention.CanExecute(p)
	if !decision.Allowed {
		reason := "not_active"
		if decision.HoldName != "" || p.LegalHold.IsActive {
			reason = "legal_hold"
		}
		e.metrics.RecordBlocked(reason)
		e.logger.InfoContext(ctx, "execution blocked", "reason", decision.Reason)
		return &Result{
			Success:   false,
			Message:   decision.Reason,
			LegalHold: decision.HoldName,
			Policy:    p,
		}, nil
	}

	// Scheduled runs never dispose of gated data: an approval is spent by
	// ApproveDisposition with ExecuteNow or by an operator's manual run.
	var approval *retention.PendingRecord
	var real bool
	if p.Disposition.RequireApproval {
		if trigger != retention.TriggerScheduled {
			approval = p.OpenApproval()
		}
		real = approval != nil
	} else {
		real = e.config.AutoDispose || force
	}

	rec := &retention.ExecutionRecord{
		ID:        uuid.New().String(),
		PolicyID:  p.ID,
		StartedAt: now,
		Status:    retention.ExecutionRunning,
		Trigger:   trigger,
		DryRun:    !real,
		Forced:    force,
	}
	ctx = logging.WithExecutionID(ctx, rec.ID)

	ctx, span := e.tracer.Start(ctx, "retention.execute",
		trace.WithAttributes(tracing.PolicyAttributes(p)...),
		trace.WithAttributes(
			tracing.AttrTrigger.String(string(trigger)),
			tracing.AttrDryRun.Bool(rec.DryRun),
			tracing.AttrForced.Bool(force),
		),
	)
	defer span.End()

	if err := e.repo.AppendExecution(ctx, p.ID, rec); err != nil {
		tracing.SetError(span, err)
		return nil, retention.NewExecutionError(p.ID, rec.ID, fmt.Errorf("failed to record execution: %w", err))
	}

	started := time.Now()
	var summary retention.DueSummary
	if real {
		summary = e.dispose(ctx, p, rec, now)
	} else {
		summary = e.dryRun(ctx, p, rec, now)
	}
	duration := time.Since(started)

	completed := e.now()
	if completed.Before(rec.StartedAt) {
		completed = rec.StartedAt
	}
	rec.CompletedAt = &completed

	// an approval covers a disposal that happened; an empty run keeps it
	if approval != nil && rec.Status != retention.ExecutionFailed && rec.RecordsProcessed > 0 {
		p.ConsumeApproval(rec.ID, completed)
		e.metrics.RecordApproval("consumed")
	}
	if !real && p.Disposition.RequireApproval && rec.Status != retention.ExecutionFailed {
		e.awaitApproval(ctx, p, summary)
	}

	if err := e.repo.CompleteExecution(ctx, p.ID, rec); err != nil {
		tracing.SetError(span, err)
		return nil, retention.NewExecutionError(p.ID, rec.ID, fmt.Errorf("failed to complete execution: %w", err))
	}

	p.Executions = append(p.Executions, *rec)
	p.Statistics.Apply(*rec)
	p.Schedule.LastRun = &now
	reschedule(p, now)
	p.UpdatedAt = completed

	if err := e.repo.Save(ctx, p); err != nil {
		tracing.SetError(span, err)
		return nil, retention.NewExecutionError(p.ID, rec.ID, fmt.Errorf("failed to save policy: %w", err))
	}

	e.metrics.RecordExecution(p.ID, string(p.Disposition.Action), string(rec.Status), string(trigger), rec.DryRun,
		duration, rec.RecordsProcessed, rec.RecordsDeleted+rec.RecordsArchived, rec.RecordsFailed, rec.DataVolume)
	tracing.SetExecutionAttributes(span, rec)

	attrs := []any{
		"status", rec.Status,
		"dry_run", rec.DryRun,
		"records_processed", rec.RecordsProcessed,
		"records_failed", rec.RecordsFailed,
		"duration_ms", duration.Milliseconds(),
		"next_run", p.Schedule.NextRun,
	}
	switch rec.Status {
	case retention.ExecutionFailed:
		tracing.SetError(span, errors.New(rec.Error))
		e.logger.ErrorContext(ctx, "execution failed", append(attrs, "error", rec.Error)...)
	case retention.ExecutionCompletedWithErrors:
		tracing.SetError(span, errors.New(rec.Error))
		e.logger.WarnContext(ctx, "execution completed with errors", attrs...)
	default:
		tracing.SetError(span, nil)
		e.logger.InfoContext(ctx, "execution completed", attrs...)
	}

	return &Result{
		Success:   rec.Status != retention.ExecutionFailed,
		Message:   executionMessage(rec),
		Execution: rec,
		Policy:    p,
	}, nil
}

// dryRun counts the due records without disposing of them.
func (e *Engine) dryRun(ctx context.Context, p *retention.Policy, rec *retention.ExecutionRecord, now time.Time) retention.DueSummary {
	summary, err := e.countDue(ctx, p, now)
	if err != nil {
		rec.Status = retention.ExecutionFailed
		rec.Error = fmt.Sprintf("count due records: %v", err)
		return summary
	}
	rec.Status = retention.ExecutionCompleted
	rec.RecordsProcessed = summary.Count
	return summary
}

// dispose counts the due records, then disposes of them within the
// execution timeout. A failed or timed out disposal marks every due record
// failed; per-record failures make the execution completed_with_errors.
func (e *Engine) dispose(ctx context.Context, p *retention.Policy, rec *retention.ExecutionRecord, now time.Time) retention.DueSummary {
	summary, err := e.countDue(ctx, p, now)
	if err != nil {
		rec.Status = retention.ExecutionFailed
		rec.Error = fmt.Sprintf("count due records: %v", err)
		return summary
	}

	dctx, cancel := context.WithTimeout(ctx, e.config.ExecutionTimeout)
	defer cancel()

	dctx, span := e.tracer.Start(dctx, "retention.dispose")
	defer span.End()

	result, err := e.store.DisposeRecords(dctx, retention.DisposalRequest{
		PolicyID:        p.ID,
		Scope:           p.Scope,
		Rule:            p.Rule,
		Action:          p.Disposition.Action,
		ArchiveLocation: p.Disposition.ArchiveLocation,
		Now:             now,
	})
	tracing.SetError(span, err)
	if err != nil {
		e.metrics.RecordDatastoreError("dispose")
		rec.Status = retention.ExecutionFailed
		rec.RecordsFailed = summary.Count
		if errors.Is(err, context.DeadlineExceeded) {
			rec.Error = fmt.Sprintf("disposition timed out after %s", e.config.ExecutionTimeout)
		} else {
			rec.Error = fmt.Sprintf("dispose records: %v", err)
		}
		return summary
	}

	rec.RecordsProcessed = result.Processed
	rec.RecordsFailed = result.Failed
	rec.DataVolume = result.Volume
	if p.Disposition.Action == retention.ActionArchive {
		rec.RecordsArchived = result.Succeeded
	} else {
		rec.RecordsDeleted = result.Succeeded
	}

	rec.Status = retention.ExecutionCompleted
	if result.Failed > 0 {
		rec.Status = retention.ExecutionCompletedWithErrors
		rec.Error = fmt.Sprintf("%d of %d records failed", result.Failed, result.Processed)
	}
	return summary
}

func (e *Engine) countDue(ctx context.Context, p *retention.Policy, now time.Time) (retention.DueSummary, error) {
	ctx, span := e.tracer.Start(ctx, "retention.count_due")
	defer span.End()

	summary, err := e.store.CountDueRecords(ctx, p.Scope, p.Rule, now)
	tracing.SetError(span, err)
	if err != nil {
		e.metrics.RecordDatastoreError("count")
	}
	return summary, err
}

// awaitApproval records that a gated policy has due records waiting for
// approval, refreshing the open pending entry if there is one. A policy
// that is already approved is left alone.
func (e *Engine) awaitApproval(ctx context.Context, p *retention.Policy, summary retention.DueSummary) {
	if summary.Count == 0 || p.OpenApproval() != nil {
		return
	}
	e.metrics.RecordBlocked("approval_required")

	for i := range p.PendingRecords {
		entry := &p.PendingRecords[i]
		if entry.Status == retention.ApprovalPending {
			entry.RecordCount = summary.Count
			entry.DueDate = summary.OldestDueDate
			return
		}
	}
	p.PendingRecords = append(p.PendingRecords, retention.PendingRecord{
		ID:          uuid.New().String(),
		Status:      retention.ApprovalPending,
		RecordCount: summary.Count,
		DueDate:     summary.OldestDueDate,
	})
	e.logger.InfoContext(ctx, "disposition awaiting approval", "record_count", summary.Count)
}

func executionMessage(rec *retention.ExecutionRecord) string {
	switch {
	case rec.Status == retention.ExecutionFailed:
		return "execution failed: " + rec.Error
	case rec.DryRun:
		return fmt.Sprintf("dry run: %d records due", rec.RecordsProcessed)
	case rec.Status == retention.ExecutionCompletedWithErrors:
		return fmt.Sprintf("disposed of %d records, %d failed", rec.RecordsDeleted+rec.RecordsArchived, rec.RecordsFailed)
	default:
		return fmt.Sprintf("disposed of %d records", rec.RecordsDeleted+rec.RecordsArchived)
	}
}
