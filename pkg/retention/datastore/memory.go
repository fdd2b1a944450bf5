package datastore

import (
	"context"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Memory implements retention.DataStore over an in-memory record set.
// It is deterministic: the same records and rule always yield the same
// counts. Failure injection hooks make it usable as a test double.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]*Record
	archived map[string][]*Record

	failing map[string]bool
	delay   time.Duration
	err     error

	countCalls   int
	disposeCalls int
}

// NewMemory creates an in-memory store holding the given records.
func NewMemory(records ...*Record) *Memory {
	m := &Memory{
		records:  make(map[string]*Record),
		archived: make(map[string][]*Record),
		failing:  make(map[string]bool),
	}
	m.Put(records...)
	return m
}

// Put adds or replaces records.
func (m *Memory) Put(records ...*Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		m.records[r.ID] = r.clone()
	}
}

// FailRecords makes disposal of the given records fail; they stay in the store.
func (m *Memory) FailRecords(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.failing[id] = true
	}
}

// SetDelay makes DisposeRecords wait d before doing any work.
func (m *Memory) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetError makes every call fail with err. A nil err clears it.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CountDueRecords implements retention.DataStore.
func (m *Memory) CountDueRecords(ctx context.Context, scope retention.Scope, rule retention.RetentionRule, now time.Time) (retention.DueSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countCalls++
	if m.err != nil {
		return retention.DueSummary{}, m.err
	}
	due, err := m.dueLocked(scope, rule, now)
	if err != nil {
		return retention.DueSummary{}, err
	}
	return summarize(due, rule), nil
}

// DisposeRecords implements retention.DataStore.
func (m *Memory) DisposeRecords(ctx context.Context, req retention.DisposalRequest) (retention.DisposalResult, error) {
	m.mu.Lock()
	m.disposeCalls++
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retention.DisposalResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return retention.DisposalResult{}, m.err
	}
	due, err := m.dueLocked(req.Scope, req.Rule, req.Now)
	if err != nil {
		return retention.DisposalResult{}, err
	}

	var result retention.DisposalResult
	for _, r := range due {
		result.Processed++
		if m.failing[r.ID] {
			result.Failed++
			continue
		}
		if req.Action == retention.ActionArchive {
			m.archived[req.ArchiveLocation] = append(m.archived[req.ArchiveLocation], r.clone())
		}
		delete(m.records, r.ID)
		result.Succeeded++
		result.Volume += r.Size
	}
	return result, nil
}

func (m *Memory) dueLocked(scope retention.Scope, rule retention.RetentionRule, now time.Time) ([]*Record, error) {
	match, err := newMatcher(scope)
	if err != nil {
		return nil, err
	}
	var due []*Record
	for _, r := range m.records {
		if match.match(r) && rule.IsDue(r.Times(), now) {
			due = append(due, r)
		}
	}
	sortRecords(due)
	return due, nil
}

// Len returns the number of records currently stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Has reports whether a record is still stored.
func (m *Memory) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok
}

// Archived returns copies of the records archived to location.
func (m *Memory) Archived(location string) []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, len(m.archived[location]))
	for i, r := range m.archived[location] {
		out[i] = r.clone()
	}
	return out
}

// Calls returns how many times each DataStore method has been called.
func (m *Memory) Calls() (count, dispose int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countCalls, m.disposeCalls
}

// Ping implements the health check probe.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}
