package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/engine"
	"mercator-hq/custodian/pkg/retention/source"
)

const timeLayout = "2006-01-02 15:04 MST"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// policyList renders policies one per row.
type policyList []*retention.Policy

func (l policyList) Header() []string {
	return []string{"ID", "NAME", "OWNER", "STATUS", "ACTION", "NEXT RUN", "LEGAL HOLD"}
}

func (l policyList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		status := string(p.Status)
		if p.PausedReason != retention.PausedNone {
			status += " (" + string(p.PausedReason) + ")"
		}
		hold := "-"
		if p.LegalHold.IsActive {
			hold = p.LegalHold.Name
		}
		rows = append(rows, []string{
			p.ID, p.Name, p.OwnerID, status,
			string(p.Disposition.Action), formatTime(p.Schedule.NextRun), hold,
		})
	}
	return rows
}

// policyView renders one policy in detail. JSON output is the policy itself.
type policyView struct {
	*retention.Policy
}

func (v policyView) String() string {
	p := v.Policy
	var b strings.Builder
	fmt.Fprintf(&b, "Policy %s\n", p.ID)
	fmt.Fprintf(&b, "  Name:        %s\n", p.Name)
	fmt.Fprintf(&b, "  Owner:       %s\n", p.OwnerID)
	fmt.Fprintf(&b, "  Status:      %s", p.Status)
	if p.PausedReason != retention.PausedNone {
		fmt.Fprintf(&b, " (%s)", p.PausedReason)
	}
	b.WriteString("\n")
	if p.ExternalID != "" {
		fmt.Fprintf(&b, "  External ID: %s\n", p.ExternalID)
	}
	fmt.Fprintf(&b, "  Scope:       categories=%s sources=%s classification=%s\n",
		orDash(strings.Join(p.Scope.DataCategories, ",")),
		orDash(strings.Join(p.Scope.DataSources, ",")),
		orDash(p.Scope.Classification))
	if p.Scope.Filter != "" {
		fmt.Fprintf(&b, "  Filter:      %s\n", p.Scope.Filter)
	}
	fmt.Fprintf(&b, "  Retention:   %d %s from %s\n", p.Rule.Duration, p.Rule.Unit, p.Rule.StartEvent)
	fmt.Fprintf(&b, "  Disposition: %s", p.Disposition.Action)
	if p.Disposition.ArchiveLocation != "" {
		fmt.Fprintf(&b, " to %s", p.Disposition.ArchiveLocation)
	}
	if p.Disposition.RequireApproval {
		fmt.Fprintf(&b, ", approval by %s", orDash(strings.Join(p.Disposition.Approvers, ",")))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Schedule:    %s at %s %s\n", p.Schedule.Frequency, p.Schedule.Time, orDash(p.Schedule.Timezone))
	fmt.Fprintf(&b, "  Last run:    %s\n", formatTime(p.Schedule.LastRun))
	fmt.Fprintf(&b, "  Next run:    %s\n", formatTime(p.Schedule.NextRun))
	if p.LegalHold.IsActive {
		fmt.Fprintf(&b, "  Legal hold:  %s (%s) applied by %s at %s",
			p.LegalHold.Name, orDash(p.LegalHold.CaseReference),
			orDash(p.LegalHold.AppliedBy), formatTime(p.LegalHold.AppliedAt))
		if p.LegalHold.ExpiresAt != nil {
			fmt.Fprintf(&b, ", expires %s", formatTime(p.LegalHold.ExpiresAt))
		}
		b.WriteString("\n")
	}
	if open := p.OpenApproval(); open != nil {
		fmt.Fprintf(&b, "  Approval:    %s (%d records)\n", open.Status, open.RecordCount)
	}
	s := p.Statistics
	fmt.Fprintf(&b, "  Executions:  %d (%d dry runs), %d processed, %d deleted, %d archived, %d failed",
		s.TotalExecutions, s.DryRunExecutions, s.TotalRecordsProcessed,
		s.TotalRecordsDeleted, s.TotalRecordsArchived, s.TotalRecordsFailed)
	return b.String()
}

// executionList renders ledger entries one per row.
type executionList []retention.ExecutionRecord

func (l executionList) Header() []string {
	return []string{"ID", "POLICY", "STARTED", "STATUS", "TRIGGER", "MODE", "PROCESSED", "DELETED", "ARCHIVED", "FAILED", "ERROR"}
}

func (l executionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		mode := "dispose"
		if r.DryRun {
			mode = "dry_run"
		}
		started := r.StartedAt
		rows = append(rows, []string{
			r.ID, r.PolicyID, formatTime(&started), string(r.Status), string(r.Trigger), mode,
			itoa(r.RecordsProcessed), itoa(r.RecordsDeleted), itoa(r.RecordsArchived), itoa(r.RecordsFailed),
			orDash(r.Error),
		})
	}
	return rows
}

// pendingList renders dispositions waiting at the approval gate.
type pendingList []engine.PendingDisposition

func (l pendingList) Header() []string {
	return []string{"POLICY", "NAME", "OWNER", "ACTION", "RECORDS", "DUE", "APPROVERS", "APPROVED"}
}

func (l pendingList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{
			p.PolicyID, p.PolicyName, p.OwnerID, string(p.Action), itoa(p.RecordCount),
			formatTime(p.DueDate), orDash(strings.Join(p.Approvers, ",")), strconv.FormatBool(p.Approved),
		})
	}
	return rows
}

// tickList renders the outcome of one scheduler tick.
type tickList []engine.TickResult

func (l tickList) Header() []string {
	return []string{"POLICY", "RESULT", "MODE", "PROCESSED", "ERROR"}
}

func (l tickList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		result := "ok"
		switch {
		case r.Skipped:
			result = "skipped"
		case !r.Success:
			result = "failed"
		}
		mode := "dispose"
		if r.DryRun {
			mode = "dry_run"
		}
		rows = append(rows, []string{r.PolicyID, result, mode, itoa(r.RecordsProcessed), orDash(r.Error)})
	}
	return rows
}

// resultView renders an engine result. JSON output is the result itself.
type resultView struct {
	*engine.Result
}

func (v resultView) String() string {
	r := v.Result
	var b strings.Builder
	mark := "✓"
	if !r.Success {
		mark = "✗"
	}
	fmt.Fprintf(&b, "%s %s", mark, r.Message)
	if r.LegalHold != "" {
		fmt.Fprintf(&b, "\n  Legal hold: %s", r.LegalHold)
	}
	if e := r.Execution; e != nil {
		mode := "dispose"
		if e.DryRun {
			mode = "dry run"
		}
		fmt.Fprintf(&b, "\n  Execution:  %s (%s, %s)", e.ID, e.Status, mode)
		fmt.Fprintf(&b, "\n  Records:    %d processed, %d deleted, %d archived, %d failed",
			e.RecordsProcessed, e.RecordsDeleted, e.RecordsArchived, e.RecordsFailed)
		if e.Error != "" {
			fmt.Fprintf(&b, "\n  Error:      %s", e.Error)
		}
	}
	if p := r.Policy; p != nil {
		fmt.Fprintf(&b, "\n  Status:     %s", p.Status)
		fmt.Fprintf(&b, "\n  Next run:   %s", formatTime(p.Schedule.NextRun))
	}
	return b.String()
}

// dashboardView renders the dashboard of an owner.
type dashboardView struct {
	*engine.Dashboard
}

func (v dashboardView) String() string {
	d := v.Dashboard
	var b strings.Builder
	owner := d.OwnerID
	if owner == "" {
		owner = "all owners"
	}
	fmt.Fprintf(&b, "Retention dashboard for %s (%s)\n", owner, d.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(&b, "  Policies: %d total", d.TotalPolicies)
	for _, s := range []retention.Status{retention.StatusActive, retention.StatusPaused, retention.StatusDraft, retention.StatusArchived} {
		fmt.Fprintf(&b, ", %d %s", d.ByStatus[s], s)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Records:  %d processed, %d deleted, %d archived, %d failed\n",
		d.Totals.TotalRecordsProcessed, d.Totals.TotalRecordsDeleted,
		d.Totals.TotalRecordsArchived, d.Totals.TotalRecordsFailed)

	fmt.Fprintf(&b, "\nLegal holds (%d active)\n", len(d.ActiveHolds))
	for _, h := range d.ActiveHolds {
		fmt.Fprintf(&b, "  %s  %s  applied by %s\n", h.PolicyID, h.Hold, orDash(h.AppliedBy))
	}
	if len(d.ExpiredHolds) > 0 {
		fmt.Fprintf(&b, "\nExpired holds awaiting release (%d)\n", len(d.ExpiredHolds))
		for _, h := range d.ExpiredHolds {
			fmt.Fprintf(&b, "  %s  %s  expired %s\n", h.PolicyID, h.Hold, formatTime(h.ExpiresAt))
		}
	}

	fmt.Fprintf(&b, "\nPending approvals (%d)\n", len(d.PendingApprovals))
	for _, p := range d.PendingApprovals {
		fmt.Fprintf(&b, "  %s  %d records  approved=%t\n", p.PolicyID, p.RecordCount, p.Approved)
	}

	fmt.Fprintf(&b, "\nUpcoming dispositions (%d)\n", len(d.Upcoming))
	for _, u := range d.Upcoming {
		next := u.NextRun
		fmt.Fprintf(&b, "  %s  %s  %s in %d days\n", u.PolicyID, u.Action, formatTime(&next), u.DaysUntil)
	}

	fmt.Fprintf(&b, "\nRecent executions (%d)\n", len(d.RecentExecutions))
	for _, row := range executionList(d.RecentExecutions).Rows() {
		fmt.Fprintf(&b, "  %s  %s  %s  %s  %s processed\n", row[2], row[1], row[3], row[5], row[6])
	}
	return strings.TrimRight(b.String(), "\n")
}

// syncView renders the outcome of applying definition files.
type syncView struct {
	*source.Report
}

func (v syncView) String() string {
	r := v.Report
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %d created, %d updated, %d unchanged, %d failed",
		len(r.Created), len(r.Updated), len(r.Unchanged), len(r.Failed))
	for _, group := range []struct {
		label string
		ids   []string
	}{{"created", r.Created}, {"updated", r.Updated}, {"failed", r.Failed}} {
		for _, id := range group.ids {
			fmt.Fprintf(&b, "\n  %-9s %s", group.label, id)
		}
	}
	return b.String()
}
