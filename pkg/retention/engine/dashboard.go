package engine

import (
	"context"
	"sort"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Dashboard summarizes the retention state of one owner.
type Dashboard struct {
	OwnerID     string    `json:"owner_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalPolicies int                      `json:"total_policies"`
	ByStatus      map[retention.Status]int `json:"by_status"`

	ActiveHolds []HoldSummary `json:"active_holds"`

	// ExpiredHolds are active holds past their expiry date. Holds are
	// never released automatically; these need a human decision.
	ExpiredHolds []HoldSummary `json:"expired_holds"`

	PendingApprovals []PendingDisposition `json:"pending_approvals"`

	// Upcoming lists active policies whose next run falls within their
	// notice window (Disposition.NotifyDaysBefore).
	Upcoming []UpcomingDisposition `json:"upcoming"`

	// RecentExecutions are the most recent executions across all
	// policies, newest first.
	RecentExecutions []retention.ExecutionRecord `json:"recent_executions"`

	// Totals sums the statistics of every policy.
	Totals retention.Statistics `json:"totals"`
}

// HoldSummary describes a legal hold on a policy.
type HoldSummary struct {
	PolicyID   string     `json:"policy_id"`
	PolicyName string     `json:"policy_name"`
	Hold       string     `json:"hold"`
	AppliedBy  string     `json:"applied_by,omitempty"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// UpcomingDisposition is a scheduled disposition inside its notice window.
type UpcomingDisposition struct {
	PolicyID   string           `json:"policy_id"`
	PolicyName string           `json:"policy_name"`
	Action     retention.Action `json:"action"`
	NextRun    time.Time        `json:"next_run"`
	DaysUntil  int              `json:"days_until"`
}

// GetDashboard builds the dashboard of an owner. An empty ownerID covers
// every owner. Like GetPendingDispositions it reads without policy locks.
func (e *Engine) GetDashboard(ctx context.Context, ownerID string) (*Dashboard, error) {
	policies, err := e.repo.List(ctx, retention.Filter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}

	now := e.now()
	d := &Dashboard{
		OwnerID:       ownerID,
		GeneratedAt:   now,
		TotalPolicies: len(policies),
		ByStatus:      make(map[retention.Status]int),
	}

	var recent []retention.ExecutionRecord
	for _, p := range policies {
		d.ByStatus[p.Status]++
		addStatistics(&d.Totals, p.Statistics)

		if p.LegalHold.IsActive {
			hold := HoldSummary{
				PolicyID:   p.ID,
				PolicyName: p.Name,
				Hold:       retention.HoldLabel(p.LegalHold),
				AppliedBy:  p.LegalHold.AppliedBy,
				AppliedAt:  p.LegalHold.AppliedAt,
				ExpiresAt:  p.LegalHold.ExpiresAt,
			}
			if p.LegalHold.Expired(now) {
				d.ExpiredHolds = append(d.ExpiredHolds, hold)
			} else {
				d.ActiveHolds = append(d.ActiveHolds, hold)
			}
		}

		if up, ok := upcoming(p, now); ok {
			d.Upcoming = append(d.Upcoming, up)
		}

		history, err := e.repo.Executions(ctx, p.ID, e.config.HistoryLimit)
		if err != nil {
			return nil, err
		}
		recent = append(recent, history...)
	}

	d.PendingApprovals, err = e.GetPendingDispositions(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sort.Slice(d.Upcoming, func(i, j int) bool { return d.Upcoming[i].NextRun.Before(d.Upcoming[j].NextRun) })
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].StartedAt.After(recent[j].StartedAt) })
	if len(recent) > e.config.HistoryLimit {
		recent = recent[:e.config.HistoryLimit]
	}
	d.RecentExecutions = recent

	return d, nil
}

func upcoming(p *retention.Policy, now time.Time) (UpcomingDisposition, bool) {
	days := p.Disposition.NotifyDaysBefore
	if p.Status != retention.StatusActive || p.LegalHold.IsActive || days <= 0 || p.Schedule.NextRun == nil {
		return UpcomingDisposition{}, false
	}
	next := *p.Schedule.NextRun
	if next.After(now.AddDate(0, 0, days)) {
		return UpcomingDisposition{}, false
	}
	return UpcomingDisposition{
		PolicyID:   p.ID,
		PolicyName: p.Name,
		Action:     p.Disposition.Action,
		NextRun:    next,
		DaysUntil:  int(next.Sub(now).Hours() / 24),
	}, true
}

func addStatistics(total *retention.Statistics, s retention.Statistics) {
	total.TotalExecutions += s.TotalExecutions
	total.DryRunExecutions += s.DryRunExecutions
	total.TotalRecordsProcessed += s.TotalRecordsProcessed
	total.TotalRecordsDeleted += s.TotalRecordsDeleted
	total.TotalRecordsArchived += s.TotalRecordsArchived
	total.TotalRecordsFailed += s.TotalRecordsFailed
	total.TotalDataVolume += s.TotalDataVolume
	if s.LastExecutionAt != nil && (total.LastExecutionAt == nil || s.LastExecutionAt.After(*total.LastExecutionAt)) {
		last := *s.LastExecutionAt
		total.LastExecutionAt = &last
	}
}
