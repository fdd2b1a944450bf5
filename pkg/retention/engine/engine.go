package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/schedule"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// Config contains the engine settings.
type Config struct {
	// AutoDispose lets executions of policies without an approval gate
	// dispose of records. When false they are dry runs unless forced.
	AutoDispose bool

	// ExecutionTimeout bounds a single DisposeRecords call.
	ExecutionTimeout time.Duration

	// MaxConcurrency bounds the policies executed at once by a tick.
	MaxConcurrency int

	// HistoryLimit is the number of recent executions shown by the
	// dashboard.
	HistoryLimit int

	// GovernanceTimeout bounds one governance sync call.
	GovernanceTimeout time.Duration
}

// DefaultConfig returns the engine configuration built from config defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.NewDefault())
}

// ConfigFrom extracts the engine settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		AutoDispose:       cfg.Engine.AutoDisposeEnabled(),
		ExecutionTimeout:  cfg.Engine.ExecutionTimeout,
		MaxConcurrency:    cfg.Scheduler.MaxConcurrency,
		HistoryLimit:      cfg.Engine.HistoryLimit,
		GovernanceTimeout: cfg.Governance.Timeout,
	}
}

// Dependencies are the collaborators of an Engine. Repository and
// DataStore are required; the rest are optional.
type Dependencies struct {
	Repository retention.Repository
	DataStore  retention.DataStore

	// Governance mirrors new policies into an external system.
	Governance retention.GovernanceSync

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Engine is the retention and disposition engine. It owns policy state
// transitions and is safe for concurrent use: every write to a policy
// happens under that policy's lock.
type Engine struct {
	config     Config
	repo       retention.Repository
	store      retention.DataStore
	governance retention.GovernanceSync
	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	now        func() time.Time
	logger     *slog.Logger

	locks *keyedMutex

	// syncs tracks background governance calls so Close can wait for them.
	syncs sync.WaitGroup
}

// New creates a new Engine.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Repository == nil {
		return nil, errors.New("repository cannot be nil")
	}
	if deps.DataStore == nil {
		return nil, errors.New("data store cannot be nil")
	}

	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = config.DefaultEngineExecutionTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = config.DefaultSchedulerMaxConcurrency
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = config.DefaultEngineHistoryLimit
	}
	if cfg.GovernanceTimeout <= 0 {
		cfg.GovernanceTimeout = config.DefaultGovernanceTimeout
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		config:     cfg,
		repo:       deps.Repository,
		store:      deps.DataStore,
		governance: deps.Governance,
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
		now:        clock,
		logger:     slog.Default().With("component", "retention.engine"),
		locks:      newKeyedMutex(),
	}, nil
}

// Close waits for in-flight governance syncs, each bounded by the
// governance timeout. The repository and data store are owned by the
// caller and are not closed.
func (e *Engine) Close() error {
	e.syncs.Wait()
	return nil
}

// CreatePolicy validates and stores a new policy. Zero-valued fields get
// defaults, the id is generated when empty and an active policy gets its
// first NextRun. When a governance system is configured the policy is
// mirrored to it in the background.
func (e *Engine) CreatePolicy(ctx context.Context, p *retention.Policy) (*retention.Policy, error) {
	if p == nil {
		return nil, errors.New("policy cannot be nil")
	}

	now := e.now()
	policy := p.Clone()
	retention.ApplyDefaults(policy)
	if err := retention.Validate(policy); err != nil {
		return nil, err
	}

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	policy.CreatedAt = now
	policy.UpdatedAt = now
	policy.Executions = nil
	policy.PendingRecords = nil
	policy.Statistics = retention.Statistics{}
	policy.LegalHold = retention.LegalHold{}
	policy.PausedReason = retention.PausedNone
	policy.Schedule.LastRun = nil
	policy.Schedule.NextRun = nil
	if policy.Status == retention.StatusPaused {
		policy.PausedReason = retention.PausedManual
	}
	if policy.Status == retention.StatusActive {
		reschedule(policy, now)
	}

	if err := e.repo.Create(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	e.logger.InfoContext(ctx, "policy created",
		"policy_id", policy.ID,
		"owner_id", policy.OwnerID,
		"status", policy.Status,
		"action", policy.Disposition.Action,
	)
	e.metrics.RecordTransition(string(policy.Status))

	e.syncGovernance(policy)

	return policy, nil
}

// UpdatePolicy applies a partial update. The NextRun is recomputed from
// now when the schedule changed on an active policy.
func (e *Engine) UpdatePolicy(ctx context.Context, id string, update retention.PolicyUpdate) (*retention.Policy, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return p, nil
	}

	now := e.now()
	scheduleChanged := update.ApplyTo(p, now)
	if err := retention.Validate(p); err != nil {
		return nil, err
	}
	if scheduleChanged && p.Status == retention.StatusActive {
		reschedule(p, now)
	}

	if err := e.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	e.logger.InfoContext(ctx, "policy updated",
		"policy_id", id,
		"schedule_changed", scheduleChanged,
	)
	return p, nil
}

// GetPolicy returns a policy with its full execution ledger.
func (e *Engine) GetPolicy(ctx context.Context, id string) (*retention.Policy, error) {
	return e.repo.Get(ctx, id)
}

// ListPolicies returns the policies matching filter, without executions.
func (e *Engine) ListPolicies(ctx context.Context, filter retention.Filter) ([]*retention.Policy, error) {
	return e.repo.List(ctx, filter)
}

// ExecutionHistory returns the most recent limit executions of a policy,
// oldest first. A limit <= 0 returns the whole ledger.
func (e *Engine) ExecutionHistory(ctx context.Context, id string, limit int) ([]retention.ExecutionRecord, error) {
	return e.repo.Executions(ctx, id, limit)
}

// syncGovernance mirrors a new policy into the governance system. It never
// blocks the caller; failures are logged and the policy simply keeps no
// external id.
func (e *Engine) syncGovernance(p *retention.Policy) {
	if e.governance == nil {
		return
	}

	snapshot := p.Clone()
	e.syncs.Add(1)
	go func() {
		defer e.syncs.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.config.GovernanceTimeout)
		defer cancel()

		ctx = logging.WithPolicyID(ctx, snapshot.ID)
		ctx, span := e.tracer.Start(ctx, "retention.governance_sync")
		defer span.End()

		externalID, err := e.governance.CreatePolicy(ctx, snapshot)
		tracing.SetError(span, err)
		e.metrics.RecordGovernanceSync(err)
		if err != nil {
			e.logger.WarnContext(ctx, "governance sync failed", "error", err)
			return
		}
		if externalID == "" {
			return
		}

		unlock := e.locks.Lock(snapshot.ID)
		defer unlock()

		p, err := e.repo.Get(ctx, snapshot.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "governance sync: policy vanished", "error", err)
			return
		}
		p.ExternalID = externalID
		if err := e.repo.Save(ctx, p); err != nil {
			e.logger.WarnContext(ctx, "governance sync: failed to store external id", "error", err)
			return
		}
		e.logger.DebugContext(ctx, "policy mirrored to governance system", "external_id", externalID)
	}()
}

// reschedule sets NextRun to the first run strictly after now.
func reschedule(p *retention.Policy, now time.Time) {
	next := schedule.NextRun(p.Schedule, now)
	p.Schedule.NextRun = &next
}
