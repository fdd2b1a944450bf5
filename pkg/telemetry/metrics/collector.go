package metrics

import (
	"sync"
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherPolicy is the policy_id label used once the cardinality limit is reached.
const OtherPolicy = "other"

// Collector owns every retention metric. A nil *Collector and a collector
// built with Enabled=false both record nothing, so callers never branch on
// whether metrics are configured.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	executionMetrics *ExecutionMetrics
	policyMetrics    *PolicyMetrics
	schedulerMetrics *SchedulerMetrics

	// policy_id is the only unbounded label
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "custodian",
//		Subsystem: "retention",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.ExecutionDurationBuckets) == 0 {
		cfg.ExecutionDurationBuckets = append([]float64(nil), config.DefaultExecutionDurationBuckets...)
	}
	if len(cfg.RecordCountBuckets) == 0 {
		cfg.RecordCountBuckets = append([]float64(nil), config.DefaultRecordCountBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.executionMetrics = NewExecutionMetrics(cfg, registry)
	c.policyMetrics = NewPolicyMetrics(cfg, registry)
	c.schedulerMetrics = NewSchedulerMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordExecution records a completed execution and, for real disposals,
// the per-policy record counts.
//
// Example:
//
//	collector.RecordExecution("pol-1", "delete", "completed", "scheduled", false,
//		1200*time.Millisecond, 3, 3, 0, 800)
func (c *Collector) RecordExecution(policyID, action, status, trigger string, dryRun bool, duration time.Duration, processed, disposed, failed, bytes int64) {
	if !c.enabled() {
		return
	}

	c.executionMetrics.RecordExecution(status, trigger, dryRun, duration, processed)
	if dryRun {
		return
	}
	if !c.cardinalityLimiter.Allow(policyID) {
		policyID = OtherPolicy
	}
	c.executionMetrics.RecordDisposal(policyID, action, disposed, failed, bytes)
}

// RecordBlocked records an execution refused before it ran.
func (c *Collector) RecordBlocked(reason string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.RecordBlocked(reason)
}

// RecordHold records a legal hold operation.
func (c *Collector) RecordHold(operation string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.RecordHold(operation)
}

// RecordApproval records an approval request outcome.
func (c *Collector) RecordApproval(result string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.RecordApproval(result)
}

// RecordTransition records a lifecycle status transition.
func (c *Collector) RecordTransition(to string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.RecordTransition(to)
}

// UpdateInventory replaces the policy inventory gauges.
func (c *Collector) UpdateInventory(byStatus map[string]int, activeHolds, pendingApprovals int) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.SetInventory(byStatus, activeHolds, pendingApprovals)
}

// RecordTick records a completed scheduler tick.
func (c *Collector) RecordTick(due, succeeded, failed int, duration time.Duration, at time.Time) {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.RecordTick(due, succeeded, failed, duration, at)
}

// RecordGovernanceSync records a governance sync attempt.
func (c *Collector) RecordGovernanceSync(err error) {
	if !c.enabled() {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.schedulerMetrics.RecordGovernanceSync(result)
}

// RecordDatastoreError records a failed data store call.
func (c *Collector) RecordDatastoreError(operation string) {
	if !c.enabled() {
		return
	}
	c.schedulerMetrics.RecordDatastoreError(operation)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values seen before are
// always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
