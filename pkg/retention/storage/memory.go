package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// MemoryRepository implements retention.Repository using an in-memory map.
// Executions are stored inline on the policy. Intended for tests and for
// running the engine without a database.
type MemoryRepository struct {
	policies map[string]*retention.Policy
	mu       sync.RWMutex
}

// NewMemoryRepository creates a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		policies: make(map[string]*retention.Policy),
	}
}

// Create stores a new policy.
func (r *MemoryRepository) Create(ctx context.Context, policy *retention.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[policy.ID]; exists {
		return retention.NewStorageError("memory", "create", fmt.Errorf("policy %s already exists", policy.ID))
	}

	// Create a copy to avoid mutation
	stored := policy.Clone()
	stored.Executions = nil
	r.policies[policy.ID] = stored
	return nil
}

// Get returns a copy of a policy with its full ledger.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*retention.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, retention.NewNotFoundError(id)
	}
	return p.Clone(), nil
}

// Save replaces the stored policy state, keeping the stored ledger.
func (r *MemoryRepository) Save(ctx context.Context, policy *retention.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.policies[policy.ID]
	if !ok {
		return retention.NewNotFoundError(policy.ID)
	}

	stored := policy.Clone()
	stored.Executions = existing.Executions
	r.policies[policy.ID] = stored
	return nil
}

// List returns policies matching the filter, ordered by creation time.
func (r *MemoryRepository) List(ctx context.Context, filter retention.Filter) ([]*retention.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*retention.Policy
	for _, p := range r.policies {
		if !matchesFilter(p, filter) {
			continue
		}
		c := p.Clone()
		c.Executions = nil
		results = append(results, c)
	}
	sortPolicies(results)
	return results, nil
}

// Due returns active, unheld policies whose next run is at or before now.
func (r *MemoryRepository) Due(ctx context.Context, now time.Time) ([]*retention.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*retention.Policy
	for _, p := range r.policies {
		if !isDue(p, now) {
			continue
		}
		c := p.Clone()
		c.Executions = nil
		results = append(results, c)
	}
	sortPolicies(results)
	return results, nil
}

// AppendExecution adds a record to the end of the policy's ledger.
func (r *MemoryRepository) AppendExecution(ctx context.Context, policyID string, record *retention.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.policies[policyID]
	if !ok {
		return retention.NewNotFoundError(policyID)
	}
	for _, existing := range p.Executions {
		if existing.ID == record.ID {
			return retention.NewStorageError("memory", "append_execution", fmt.Errorf("execution %s already exists", record.ID))
		}
	}

	rec := *record
	rec.PolicyID = policyID
	rec.CompletedAt = cloneTime(record.CompletedAt)
	p.Executions = append(p.Executions, rec)
	return nil
}

// CompleteExecution writes the terminal status and counters of a running record.
func (r *MemoryRepository) CompleteExecution(ctx context.Context, policyID string, record *retention.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.policies[policyID]
	if !ok {
		return retention.NewNotFoundError(policyID)
	}

	for i := range p.Executions {
		existing := &p.Executions[i]
		if existing.ID != record.ID {
			continue
		}
		if existing.Completed() {
			return retention.ErrExecutionCompleted
		}
		existing.Status = record.Status
		existing.CompletedAt = cloneTime(record.CompletedAt)
		existing.RecordsProcessed = record.RecordsProcessed
		existing.RecordsDeleted = record.RecordsDeleted
		existing.RecordsArchived = record.RecordsArchived
		existing.RecordsFailed = record.RecordsFailed
		existing.DataVolume = record.DataVolume
		existing.Error = record.Error
		return nil
	}
	return &retention.NotFoundError{Kind: "execution", ID: record.ID}
}

// Executions returns the most recent limit records, oldest first.
func (r *MemoryRepository) Executions(ctx context.Context, policyID string, limit int) ([]retention.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[policyID]
	if !ok {
		return nil, retention.NewNotFoundError(policyID)
	}
	recent := retention.Recent(p.Executions, limit)
	out := make([]retention.ExecutionRecord, len(recent))
	for i, rec := range recent {
		rec.CompletedAt = cloneTime(rec.CompletedAt)
		out[i] = rec
	}
	return out, nil
}

// Close releases resources held by the repository.
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies = make(map[string]*retention.Policy)
	return nil
}

func matchesFilter(p *retention.Policy, f retention.Filter) bool {
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

func isDue(p *retention.Policy, now time.Time) bool {
	return p.Status == retention.StatusActive &&
		!p.LegalHold.IsActive &&
		p.Schedule.NextRun != nil &&
		!p.Schedule.NextRun.After(now)
}

func sortPolicies(ps []*retention.Policy) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
