package metrics

import (
	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy lifecycle, legal holds and approvals.
//
// Metrics:
//   - custodian_retention_executions_blocked_total: Executions refused by the guard, by reason
//   - custodian_retention_legal_holds_total: Hold operations by operation
//   - custodian_retention_approvals_total: Approval requests by result
//   - custodian_retention_lifecycle_transitions_total: Status transitions by target status
//   - custodian_retention_policies: Policies by status
//   - custodian_retention_active_legal_holds: Policies with an active legal hold
//   - custodian_retention_pending_approvals: Dispositions waiting for approval
type PolicyMetrics struct {
	blockedTotal     *prometheus.CounterVec
	holdsTotal       *prometheus.CounterVec
	approvalsTotal   *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec

	policies         *prometheus.GaugeVec
	activeHolds      prometheus.Gauge
	pendingApprovals prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		blockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "executions_blocked_total",
				Help:      "Total number of executions refused before running",
			},
			[]string{"reason"},
		),

		holdsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "legal_holds_total",
				Help:      "Total number of legal hold operations",
			},
			[]string{"operation"},
		),

		approvalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "approvals_total",
				Help:      "Total number of disposition approval requests",
			},
			[]string{"result"},
		),

		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lifecycle_transitions_total",
				Help:      "Total number of policy status transitions",
			},
			[]string{"to"},
		),

		policies: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policies",
				Help:      "Number of policies by status",
			},
			[]string{"status"},
		),

		activeHolds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_legal_holds",
				Help:      "Number of policies under an active legal hold",
			},
		),

		pendingApprovals: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pending_approvals",
				Help:      "Number of dispositions waiting for approval",
			},
		),
	}

	registry.MustRegister(
		pm.blockedTotal,
		pm.holdsTotal,
		pm.approvalsTotal,
		pm.transitionsTotal,
		pm.policies,
		pm.activeHolds,
		pm.pendingApprovals,
	)

	return pm
}

// RecordBlocked records an execution refused before running.
// reason is "legal_hold", "not_active" or "approval_required".
func (pm *PolicyMetrics) RecordBlocked(reason string) {
	pm.blockedTotal.WithLabelValues(reason).Inc()
}

// RecordHold records a legal hold operation ("apply" or "release").
func (pm *PolicyMetrics) RecordHold(operation string) {
	pm.holdsTotal.WithLabelValues(operation).Inc()
}

// RecordApproval records an approval request ("approved" or "rejected").
func (pm *PolicyMetrics) RecordApproval(result string) {
	pm.approvalsTotal.WithLabelValues(result).Inc()
}

// RecordTransition records a status transition.
func (pm *PolicyMetrics) RecordTransition(to string) {
	pm.transitionsTotal.WithLabelValues(to).Inc()
}

// SetInventory replaces the policy gauges with a fresh snapshot.
func (pm *PolicyMetrics) SetInventory(byStatus map[string]int, activeHolds, pendingApprovals int) {
	pm.policies.Reset()
	for status, n := range byStatus {
		pm.policies.WithLabelValues(status).Set(float64(n))
	}
	pm.activeHolds.Set(float64(activeHolds))
	pm.pendingApprovals.Set(float64(pendingApprovals))
}
