package retention

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestPolicy(status Status) *Policy {
	p := &Policy{
		ID:      "pol-1",
		OwnerID: "owner-1",
		Name:    "customer records",
		Rule:    RetentionRule{Duration: 30},
		Status:  status,
	}
	ApplyDefaults(p)
	return p
}

func TestPolicy_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		from       Status
		reason     PausedReason
		held       bool
		op         func(p *Policy) error
		wantStatus Status
		wantErr    bool
	}{
		{name: "activate draft", from: StatusDraft, op: func(p *Policy) error { return p.Activate(testNow) }, wantStatus: StatusActive},
		{name: "activate active is a no-op", from: StatusActive, op: func(p *Policy) error { return p.Activate(testNow) }, wantStatus: StatusActive},
		{name: "activate archived", from: StatusArchived, op: func(p *Policy) error { return p.Activate(testNow) }, wantStatus: StatusArchived, wantErr: true},
		{name: "activate held", from: StatusPaused, reason: PausedLegalHold, held: true, op: func(p *Policy) error { return p.Activate(testNow) }, wantStatus: StatusPaused, wantErr: true},
		{name: "pause active", from: StatusActive, op: func(p *Policy) error { return p.Pause(testNow) }, wantStatus: StatusPaused},
		{name: "pause draft", from: StatusDraft, op: func(p *Policy) error { return p.Pause(testNow) }, wantStatus: StatusDraft, wantErr: true},
		{name: "resume manual pause", from: StatusPaused, reason: PausedManual, op: func(p *Policy) error { return p.Resume(testNow) }, wantStatus: StatusActive},
		{name: "resume under hold", from: StatusPaused, reason: PausedLegalHold, held: true, op: func(p *Policy) error { return p.Resume(testNow) }, wantStatus: StatusPaused, wantErr: true},
		{name: "resume active", from: StatusActive, op: func(p *Policy) error { return p.Resume(testNow) }, wantStatus: StatusActive, wantErr: true},
		{name: "archive paused", from: StatusPaused, reason: PausedManual, op: func(p *Policy) error { return p.Archive(testNow) }, wantStatus: StatusArchived},
		{name: "archive under hold", from: StatusPaused, reason: PausedLegalHold, held: true, op: func(p *Policy) error { return p.Archive(testNow) }, wantStatus: StatusPaused, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPolicy(tt.from)
			p.PausedReason = tt.reason
			p.LegalHold.IsActive = tt.held

			err := tt.op(p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Errorf("expected *TransitionError, got %T", err)
				}
			}
			if p.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", p.Status, tt.wantStatus)
			}
		})
	}
}

func TestPolicy_ApplyHold(t *testing.T) {
	p := newTestPolicy(StatusActive)

	p.ApplyHold(LegalHold{HoldID: "h1", Name: "Case 1", AppliedBy: "legal"}, testNow)

	if !p.LegalHold.IsActive {
		t.Fatal("hold not active after ApplyHold")
	}
	if p.Status != StatusPaused || p.PausedReason != PausedLegalHold {
		t.Errorf("status = %s/%s, want paused/legal_hold", p.Status, p.PausedReason)
	}
	if p.LegalHold.AppliedAt == nil || !p.LegalHold.AppliedAt.Equal(testNow) {
		t.Errorf("AppliedAt = %v, want %v", p.LegalHold.AppliedAt, testNow)
	}

	// Re-applying refreshes metadata without error.
	later := testNow.Add(time.Hour)
	p.ApplyHold(LegalHold{HoldID: "h2", Name: "Case 2"}, later)
	if p.LegalHold.Name != "Case 2" || !p.LegalHold.AppliedAt.Equal(later) {
		t.Errorf("hold not refreshed: %+v", p.LegalHold)
	}
	if p.Status != StatusPaused {
		t.Errorf("status = %s, want paused", p.Status)
	}
}

func TestPolicy_ApplyHoldArchived(t *testing.T) {
	p := newTestPolicy(StatusArchived)
	p.ApplyHold(LegalHold{Name: "late hold"}, testNow)

	if !p.LegalHold.IsActive {
		t.Error("hold should be recorded on archived policy")
	}
	if p.Status != StatusArchived {
		t.Errorf("status = %s, want archived", p.Status)
	}
	if d := CanExecute(p); d.Allowed || d.HoldName != "late hold" {
		t.Errorf("CanExecute() = %+v, want blocked by the hold", d)
	}

	if !p.ReleaseHold("legal", true, testNow) {
		t.Fatal("ReleaseHold() = false")
	}
	if p.Status != StatusArchived {
		t.Errorf("status after release = %s, archived is terminal", p.Status)
	}
}

func TestPolicy_ReleaseHold(t *testing.T) {
	t.Run("reactivate", func(t *testing.T) {
		p := newTestPolicy(StatusActive)
		p.ApplyHold(LegalHold{Name: "Case"}, testNow)

		if !p.ReleaseHold("counsel", true, testNow.Add(time.Hour)) {
			t.Fatal("ReleaseHold returned false for an active hold")
		}
		if p.LegalHold.IsActive {
			t.Error("hold still active")
		}
		if p.Status != StatusActive || p.PausedReason != PausedNone {
			t.Errorf("status = %s/%q, want active", p.Status, p.PausedReason)
		}
		if p.LegalHold.ReleasedBy != "counsel" || p.LegalHold.ReleasedAt == nil {
			t.Errorf("release metadata missing: %+v", p.LegalHold)
		}
	})

	t.Run("stay paused", func(t *testing.T) {
		p := newTestPolicy(StatusActive)
		p.ApplyHold(LegalHold{Name: "Case"}, testNow)

		p.ReleaseHold("counsel", false, testNow)
		if p.Status != StatusPaused || p.PausedReason != PausedManual {
			t.Errorf("status = %s/%s, want paused/manual", p.Status, p.PausedReason)
		}
		if err := p.Resume(testNow); err != nil {
			t.Errorf("Resume after release: %v", err)
		}
	})

	t.Run("no active hold mutates nothing", func(t *testing.T) {
		p := newTestPolicy(StatusActive)
		before := p.Clone()

		if p.ReleaseHold("counsel", true, testNow) {
			t.Fatal("ReleaseHold returned true without an active hold")
		}
		if p.UpdatedAt != before.UpdatedAt || p.Status != before.Status || p.LegalHold != before.LegalHold {
			t.Errorf("policy mutated: %+v", p)
		}
	})
}

func TestPolicy_ConsumeApproval(t *testing.T) {
	p := newTestPolicy(StatusActive)
	if p.ConsumeApproval("exec-0", testNow) {
		t.Fatal("consumed approval from empty list")
	}

	p.PendingRecords = []PendingRecord{
		{ID: "a1", Status: ApprovalConsumed},
		{ID: "a2", Status: ApprovalApproved},
		{ID: "a3", Status: ApprovalApproved},
	}

	if open := p.OpenApproval(); open == nil || open.ID != "a2" {
		t.Fatalf("OpenApproval = %+v, want a2", open)
	}
	if !p.ConsumeApproval("exec-1", testNow) {
		t.Fatal("ConsumeApproval returned false")
	}
	if got := p.PendingRecords[1]; got.Status != ApprovalConsumed || got.ExecutionID != "exec-1" {
		t.Errorf("a2 = %+v, want consumed by exec-1", got)
	}
	if open := p.OpenApproval(); open == nil || open.ID != "a3" {
		t.Errorf("OpenApproval after consume = %+v, want a3", open)
	}
}

func TestPolicy_Clone(t *testing.T) {
	dom := 31
	next := testNow.Add(time.Hour)
	p := newTestPolicy(StatusActive)
	p.Scope.DataCategories = []string{"email"}
	p.Schedule.DayOfMonth = &dom
	p.Schedule.NextRun = &next
	p.Executions = []ExecutionRecord{{ID: "e1"}}

	c := p.Clone()
	c.Scope.DataCategories[0] = "chat"
	*c.Schedule.DayOfMonth = 1
	*c.Schedule.NextRun = testNow
	c.Executions[0].ID = "changed"

	if p.Scope.DataCategories[0] != "email" {
		t.Error("clone shares DataCategories")
	}
	if *p.Schedule.DayOfMonth != 31 {
		t.Error("clone shares DayOfMonth")
	}
	if !p.Schedule.NextRun.Equal(next) {
		t.Error("clone shares NextRun")
	}
	if p.Executions[0].ID != "e1" {
		t.Error("clone shares Executions")
	}
}
