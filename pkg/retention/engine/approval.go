package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// GetPendingDispositions lists the active, approval-gated policies of an
// owner that have records due now, asking the data store for the current
// count and oldest due date of each. Policies under legal hold are left
// out. Approved is set while an approval waits to be consumed. An empty
// ownerID lists every owner.
//
// The query reads without policy locks and may lag a concurrent execution.
func (e *Engine) GetPendingDispositions(ctx context.Context, ownerID string) ([]PendingDisposition, error) {
	policies, err := e.repo.List(ctx, retention.Filter{OwnerID: ownerID, Status: retention.StatusActive})
	if err != nil {
		return nil, err
	}

	now := e.now()
	var pending []PendingDisposition
	for _, p := range policies {
		if !p.Disposition.RequireApproval || p.LegalHold.IsActive {
			continue
		}
		summary, err := e.countDue(ctx, p, now)
		if err != nil {
			return nil, fmt.Errorf("failed to count due records of %s: %w", p.ID, err)
		}
		if summary.Count == 0 {
			continue
		}
		pending = append(pending, PendingDisposition{
			PolicyID:    p.ID,
			PolicyName:  p.Name,
			OwnerID:     p.OwnerID,
			Action:      p.Disposition.Action,
			RecordCount: summary.Count,
			DueDate:     summary.OldestDueDate,
			Approvers:   p.Disposition.Approvers,
			Approved:    p.OpenApproval() != nil,
		})
	}
	return pending, nil
}

// openEntry returns the approved or pending entry of a policy, preferring
// an approval.
func openEntry(p *retention.Policy) *retention.PendingRecord {
	if entry := p.OpenApproval(); entry != nil {
		return entry
	}
	for i := range p.PendingRecords {
		if p.PendingRecords[i].Status == retention.ApprovalPending {
			return &p.PendingRecords[i]
		}
	}
	return nil
}

// ApproveDisposition approves the next disposition of a policy that
// requires approval. With ExecuteNow that disposition runs immediately,
// under the same lock, as a forced execution. Without it the approval
// waits for an operator's ExecutePolicy; scheduled ticks only count
// records. The approval is consumed by the first real disposition that
// succeeds and processes at least one record.
//
// The request is refused (Success false) when the policy does not require
// approval, cannot execute (legal hold or not active) or the approver is
// not one of the policy's approvers.
func (e *Engine) ApproveDisposition(ctx context.Context, id string, req ApprovalRequest) (*Result, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithPolicyID(ctx, id)
	ctx = logging.WithActor(ctx, req.Approver)

	refuse := func(msg, hold string) *Result {
		e.metrics.RecordApproval("rejected")
		e.logger.InfoContext(ctx, "approval refused", "reason", msg)
		return &Result{Success: false, Message: msg, LegalHold: hold, Policy: p}
	}

	if !p.Disposition.RequireApproval {
		return refuse("policy does not require approval", ""), nil
	}
	if decision := retention.CanExecute(p); !decision.Allowed {
		return refuse(decision.Reason, decision.HoldName), nil
	}
	approver := strings.TrimSpace(req.Approver)
	if approver == "" {
		return refuse("approver is required", ""), nil
	}
	if len(p.Disposition.Approvers) > 0 && !slices.Contains(p.Disposition.Approvers, approver) {
		return refuse(fmt.Sprintf("%s is not an approver of this policy", approver), ""), nil
	}

	now := e.now()
	msg := "disposition approved"
	if p.OpenApproval() != nil {
		msg = "disposition already approved"
	} else {
		entry := e.pendingEntry(ctx, p, now)
		approvedAt := now
		entry.Status = retention.ApprovalApproved
		entry.Approver = approver
		entry.Notes = req.Notes
		entry.ApprovedAt = &approvedAt
		p.UpdatedAt = now

		if err := e.repo.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save policy: %w", err)
		}
		e.metrics.RecordApproval("approved")
		e.logger.InfoContext(ctx, "disposition approved",
			"approval_id", entry.ID,
			"record_count", entry.RecordCount,
		)
	}

	if !req.ExecuteNow {
		return &Result{Success: true, Message: msg, Policy: p}, nil
	}

	result, err := e.execute(ctx, p, retention.TriggerApproval, true, now)
	if err != nil {
		return nil, err
	}
	result.Message = msg + "; " + result.Message
	return result, nil
}

// pendingEntry returns the entry an approval should be written to: the
// open pending entry, or a new one sized from the current due records.
func (e *Engine) pendingEntry(ctx context.Context, p *retention.Policy, now time.Time) *retention.PendingRecord {
	for i := range p.PendingRecords {
		if p.PendingRecords[i].Status == retention.ApprovalPending {
			return &p.PendingRecords[i]
		}
	}

	entry := retention.PendingRecord{ID: uuid.New().String()}
	summary, err := e.countDue(ctx, p, now)
	if err != nil {
		e.logger.WarnContext(ctx, "could not size approval", "error", err)
	} else {
		entry.RecordCount = summary.Count
		entry.DueDate = summary.OldestDueDate
	}
	p.PendingRecords = append(p.PendingRecords, entry)
	return &p.PendingRecords[len(p.PendingRecords)-1]
}
