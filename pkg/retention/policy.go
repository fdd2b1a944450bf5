package retention

import "time"

// Activate moves a draft or manually paused policy to active.
// Callers must recompute the schedule afterwards.
func (p *Policy) Activate(now time.Time) error {
	switch p.Status {
	case StatusActive:
		return nil
	case StatusArchived:
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusActive, Reason: "archived is terminal"}
	}
	if p.LegalHold.IsActive {
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusActive, Reason: "legal hold is active"}
	}
	p.Status = StatusActive
	p.PausedReason = PausedNone
	p.UpdatedAt = now
	return nil
}

// Pause manually pauses an active policy.
func (p *Policy) Pause(now time.Time) error {
	switch p.Status {
	case StatusPaused:
		return nil
	case StatusActive:
	default:
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusPaused, Reason: "only active policies can be paused"}
	}
	p.Status = StatusPaused
	p.PausedReason = PausedManual
	p.UpdatedAt = now
	return nil
}

// Resume reactivates a manually paused policy. A legal hold can only be
// lifted through ReleaseHold.
func (p *Policy) Resume(now time.Time) error {
	if p.Status != StatusPaused {
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusActive, Reason: "policy is not paused"}
	}
	if p.LegalHold.IsActive || p.PausedReason == PausedLegalHold {
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusActive, Reason: "legal hold is active"}
	}
	p.Status = StatusActive
	p.PausedReason = PausedNone
	p.UpdatedAt = now
	return nil
}

// Archive retires a policy permanently.
func (p *Policy) Archive(now time.Time) error {
	if p.Status == StatusArchived {
		return nil
	}
	if p.LegalHold.IsActive {
		return &TransitionError{PolicyID: p.ID, From: p.Status, To: StatusArchived, Reason: "legal hold is active"}
	}
	p.Status = StatusArchived
	p.PausedReason = PausedNone
	p.Schedule.NextRun = nil
	p.UpdatedAt = now
	return nil
}

// ApplyHold places a legal hold on the policy and pauses it. Applying a
// hold to a held policy refreshes the hold metadata. Archived policies
// keep their terminal status but still record the hold.
func (p *Policy) ApplyHold(hold LegalHold, now time.Time) {
	applied := now
	if hold.AppliedAt != nil {
		applied = *hold.AppliedAt
	}
	hold.IsActive = true
	hold.AppliedAt = &applied
	hold.ReleasedAt = nil
	hold.ReleasedBy = ""
	p.LegalHold = hold

	if p.Status != StatusArchived {
		p.Status = StatusPaused
		p.PausedReason = PausedLegalHold
	}
	p.UpdatedAt = now
}

// ReleaseHold lifts an active legal hold. It returns false and leaves the
// policy untouched when no hold is active. With reactivate the policy goes
// back to active (callers must recompute the schedule); without it the
// policy stays paused, now for a manual reason.
func (p *Policy) ReleaseHold(releasedBy string, reactivate bool, now time.Time) bool {
	if !p.LegalHold.IsActive {
		return false
	}
	released := now
	p.LegalHold.IsActive = false
	p.LegalHold.ReleasedBy = releasedBy
	p.LegalHold.ReleasedAt = &released

	if p.Status != StatusArchived {
		if reactivate {
			p.Status = StatusActive
			p.PausedReason = PausedNone
		} else {
			p.Status = StatusPaused
			p.PausedReason = PausedManual
		}
	}
	p.UpdatedAt = now
	return true
}

// OpenApproval returns the oldest approved entry not yet consumed by a
// disposition, or nil.
func (p *Policy) OpenApproval() *PendingRecord {
	for i := range p.PendingRecords {
		if p.PendingRecords[i].Status == ApprovalApproved {
			return &p.PendingRecords[i]
		}
	}
	return nil
}

// ConsumeApproval marks the open approval as used by an execution.
// It returns false if there is nothing to consume.
func (p *Policy) ConsumeApproval(executionID string, now time.Time) bool {
	entry := p.OpenApproval()
	if entry == nil {
		return false
	}
	consumed := now
	entry.Status = ApprovalConsumed
	entry.ExecutionID = executionID
	entry.ConsumedAt = &consumed
	return true
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	c.Scope.DataCategories = cloneStrings(p.Scope.DataCategories)
	c.Scope.DataSources = cloneStrings(p.Scope.DataSources)
	c.Disposition.Approvers = cloneStrings(p.Disposition.Approvers)
	c.Compliance.Regulations = cloneStrings(p.Compliance.Regulations)
	c.Schedule.DayOfWeek = cloneInt(p.Schedule.DayOfWeek)
	c.Schedule.DayOfMonth = cloneInt(p.Schedule.DayOfMonth)
	c.Schedule.LastRun = cloneTime(p.Schedule.LastRun)
	c.Schedule.NextRun = cloneTime(p.Schedule.NextRun)
	c.LegalHold.AppliedAt = cloneTime(p.LegalHold.AppliedAt)
	c.LegalHold.ExpiresAt = cloneTime(p.LegalHold.ExpiresAt)
	c.LegalHold.ReleasedAt = cloneTime(p.LegalHold.ReleasedAt)
	c.Statistics.LastExecutionAt = cloneTime(p.Statistics.LastExecutionAt)

	if p.Executions != nil {
		c.Executions = make([]ExecutionRecord, len(p.Executions))
		for i, r := range p.Executions {
			r.CompletedAt = cloneTime(r.CompletedAt)
			c.Executions[i] = r
		}
	}
	if p.PendingRecords != nil {
		c.PendingRecords = make([]PendingRecord, len(p.PendingRecords))
		for i, r := range p.PendingRecords {
			r.DueDate = cloneTime(r.DueDate)
			r.ApprovedAt = cloneTime(r.ApprovedAt)
			r.ConsumedAt = cloneTime(r.ConsumedAt)
			c.PendingRecords[i] = r
		}
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
