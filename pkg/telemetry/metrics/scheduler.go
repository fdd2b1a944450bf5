package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks scheduler ticks and collaborator calls.
type SchedulerMetrics struct {
	ticksTotal        prometheus.Counter
	tickDuration      prometheus.Histogram
	tickPolicies      *prometheus.CounterVec
	duePolicies       prometheus.Gauge
	lastTickTimestamp prometheus.Gauge

	governanceSyncs *prometheus.CounterVec
	datastoreErrors *prometheus.CounterVec
}

// NewSchedulerMetrics creates and registers scheduler metrics with the provided registry.
func NewSchedulerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchedulerMetrics {
	sm := &SchedulerMetrics{
		ticksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduler_ticks_total",
				Help:      "Total number of scheduler ticks",
			},
		),

		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduler_tick_duration_seconds",
				Help:      "Duration of scheduler ticks in seconds",
				Buckets:   cfg.ExecutionDurationBuckets,
			},
		),

		tickPolicies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduler_policies_total",
				Help:      "Total number of policies run by the scheduler, by result",
			},
			[]string{"result"},
		),

		duePolicies: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduler_due_policies",
				Help:      "Number of policies found due in the last tick",
			},
		),

		lastTickTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scheduler_last_tick_timestamp_seconds",
				Help:      "Unix time of the last completed scheduler tick",
			},
		),

		governanceSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "governance_syncs_total",
				Help:      "Total number of governance sync attempts, by result",
			},
			[]string{"result"},
		),

		datastoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "datastore_errors_total",
				Help:      "Total number of failed data store calls, by operation",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		sm.ticksTotal,
		sm.tickDuration,
		sm.tickPolicies,
		sm.duePolicies,
		sm.lastTickTimestamp,
		sm.governanceSyncs,
		sm.datastoreErrors,
	)

	return sm
}

// RecordTick records a completed tick.
func (sm *SchedulerMetrics) RecordTick(due, succeeded, failed int, duration time.Duration, at time.Time) {
	sm.ticksTotal.Inc()
	sm.tickDuration.Observe(duration.Seconds())
	sm.duePolicies.Set(float64(due))
	if succeeded > 0 {
		sm.tickPolicies.WithLabelValues("success").Add(float64(succeeded))
	}
	if failed > 0 {
		sm.tickPolicies.WithLabelValues("failure").Add(float64(failed))
	}
	sm.lastTickTimestamp.Set(float64(at.Unix()))
}

// RecordGovernanceSync records a governance sync attempt ("success" or "error").
func (sm *SchedulerMetrics) RecordGovernanceSync(result string) {
	sm.governanceSyncs.WithLabelValues(result).Inc()
}

// RecordDatastoreError records a data store call that returned an error.
func (sm *SchedulerMetrics) RecordDatastoreError(operation string) {
	sm.datastoreErrors.WithLabelValues(operation).Inc()
}
