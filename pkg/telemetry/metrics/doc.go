// Package metrics provides Prometheus metrics for the retention engine.
//
// # Metrics Categories
//
//   - Execution Metrics: executions by status/trigger/mode, duration, records
//     processed, records disposed and failed per policy, bytes disposed
//   - Policy Metrics: blocked executions, legal hold operations, approvals,
//     lifecycle transitions, and inventory gauges
//   - Scheduler Metrics: ticks, tick duration, due policies, governance syncs
//     and data store errors
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordExecution("pol-1", "delete", "completed", "scheduled",
//		false, time.Second, 120, 118, 2, 4096)
//	collector.RecordBlocked("legal_hold")
//
//	http.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and records nothing.
//
// # Cardinality Management
//
// policy_id is the only label with unbounded values. After 1000 distinct
// policies, further ids are recorded as "other".
package metrics
