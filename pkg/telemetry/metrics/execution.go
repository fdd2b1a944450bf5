package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExecutionMetrics tracks disposition executions.
//
// Metrics:
//   - custodian_retention_executions_total: Executions by status, trigger and mode
//   - custodian_retention_execution_duration_seconds: Execution wall time
//   - custodian_retention_execution_records: Records processed per execution
//   - custodian_retention_records_disposed_total: Records deleted or archived by policy
//   - custodian_retention_records_failed_total: Records that failed disposal by policy
//   - custodian_retention_bytes_disposed_total: Bytes disposed of by action
type ExecutionMetrics struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	executionRecords  *prometheus.HistogramVec
	recordsDisposed   *prometheus.CounterVec
	recordsFailed     *prometheus.CounterVec
	bytesDisposed     *prometheus.CounterVec
}

// NewExecutionMetrics creates and registers execution metrics with the provided registry.
func NewExecutionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExecutionMetrics {
	em := &ExecutionMetrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "executions_total",
				Help:      "Total number of policy executions",
			},
			[]string{"status", "trigger", "mode"},
		),

		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "execution_duration_seconds",
				Help:      "Duration of policy executions in seconds",
				Buckets:   cfg.ExecutionDurationBuckets,
			},
			[]string{"status"},
		),

		executionRecords: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "execution_records",
				Help:      "Number of records processed per execution",
				Buckets:   cfg.RecordCountBuckets,
			},
			[]string{"mode"},
		),

		recordsDisposed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_disposed_total",
				Help:      "Total number of records deleted or archived",
			},
			[]string{"policy_id", "action"},
		),

		recordsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_failed_total",
				Help:      "Total number of records that could not be disposed of",
			},
			[]string{"policy_id"},
		),

		bytesDisposed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bytes_disposed_total",
				Help:      "Total bytes of data disposed of",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(
		em.executionsTotal,
		em.executionDuration,
		em.executionRecords,
		em.recordsDisposed,
		em.recordsFailed,
		em.bytesDisposed,
	)

	return em
}

// RecordExecution records one completed execution.
func (em *ExecutionMetrics) RecordExecution(status, trigger string, dryRun bool, duration time.Duration, processed int64) {
	mode := modeLabel(dryRun)
	em.executionsTotal.WithLabelValues(status, trigger, mode).Inc()
	em.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
	em.executionRecords.WithLabelValues(mode).Observe(float64(processed))
}

// RecordDisposal records the per-policy outcome of a real disposal.
func (em *ExecutionMetrics) RecordDisposal(policyID, action string, disposed, failed, bytes int64) {
	if disposed > 0 {
		em.recordsDisposed.WithLabelValues(policyID, action).Add(float64(disposed))
	}
	if failed > 0 {
		em.recordsFailed.WithLabelValues(policyID).Add(float64(failed))
	}
	if bytes > 0 {
		em.bytesDisposed.WithLabelValues(action).Add(float64(bytes))
	}
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "dispose"
}
