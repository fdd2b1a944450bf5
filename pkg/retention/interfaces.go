package retention

import (
	"context"
	"time"
)

// DueSummary describes the records currently due under a rule.
type DueSummary struct {
	Count         int64
	OldestDueDate *time.Time
}

// DisposalRequest asks a DataStore to dispose of every record in Scope that
// is due under Rule at Now.
type DisposalRequest struct {
	PolicyID        string
	Scope           Scope
	Rule            RetentionRule
	Action          Action
	ArchiveLocation string
	Now             time.Time
}

// DisposalResult tallies one disposal call. Failed records are data, not errors.
type DisposalResult struct {
	Processed int64
	Succeeded int64
	Failed    int64

	// Volume is the number of bytes disposed of.
	Volume int64
}

// DataStore is the collaborator that owns the governed records.
// Implementations must be safe for concurrent use.
type DataStore interface {
	// CountDueRecords returns how many records in scope are due at now,
	// and the due date of the oldest one.
	CountDueRecords(ctx context.Context, scope Scope, rule RetentionRule, now time.Time) (DueSummary, error)

	// DisposeRecords deletes or archives every due record in scope.
	// An error means the call as a whole failed; per-record failures are
	// reported through DisposalResult.Failed.
	DisposeRecords(ctx context.Context, req DisposalRequest) (DisposalResult, error)
}

// GovernanceSync mirrors newly created policies into an external governance
// system. It is non-authoritative: the engine never reads state back and
// treats every error as "no external id".
type GovernanceSync interface {
	CreatePolicy(ctx context.Context, policy *Policy) (string, error)
}

// Repository persists policies and their execution ledger.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Create stores a new policy. Executions on the argument are ignored.
	Create(ctx context.Context, policy *Policy) error

	// Get returns a copy of the policy, including its full execution
	// ledger. Returns a NotFoundError if the id is unknown.
	Get(ctx context.Context, id string) (*Policy, error)

	// Save replaces the stored policy state. The execution ledger is
	// not touched; use AppendExecution and CompleteExecution.
	Save(ctx context.Context, policy *Policy) error

	// List returns policies matching the filter, without executions.
	List(ctx context.Context, filter Filter) ([]*Policy, error)

	// Due returns active policies without an active legal hold whose
	// next run is at or before now.
	Due(ctx context.Context, now time.Time) ([]*Policy, error)

	// AppendExecution adds a new record to the end of a policy's ledger.
	AppendExecution(ctx context.Context, policyID string, record *ExecutionRecord) error

	// CompleteExecution sets the terminal status and counters of a
	// running record. Returns ErrExecutionCompleted if it is already
	// completed.
	CompleteExecution(ctx context.Context, policyID string, record *ExecutionRecord) error

	// Executions returns the most recent limit records, oldest first.
	// A limit <= 0 returns the whole ledger.
	Executions(ctx context.Context, policyID string, limit int) ([]ExecutionRecord, error)

	// Close releases any resources held by the repository.
	Close() error
}
