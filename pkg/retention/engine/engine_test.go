package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/datastore"
	"mercator-hq/custodian/pkg/retention/storage"
)

// fakeClock is a settable clock shared by an engine under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var baseTime = time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)

type testEnv struct {
	engine *Engine
	repo   *storage.MemoryRepository
	store  *datastore.Memory
	clock  *fakeClock
}

func newTestEnv(t *testing.T, cfg Config, records ...*datastore.Record) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:  storage.NewMemoryRepository(),
		store: datastore.NewMemory(records...),
		clock: newFakeClock(baseTime),
	}
	eng, err := New(cfg, Dependencies{
		Repository: env.repo,
		DataStore:  env.store,
		Clock:      env.clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	env.engine = eng
	return env
}

// oldRecords returns n log records created a year before baseTime.
func oldRecords(prefix string, n int) []*datastore.Record {
	records := make([]*datastore.Record, n)
	for i := range records {
		records[i] = &datastore.Record{
			ID:        prefix + string(rune('a'+i)),
			Category:  "logs",
			Source:    "app",
			Size:      100,
			CreatedAt: baseTime.AddDate(-1, 0, 0),
		}
	}
	return records
}

func testPolicy(name string) *retention.Policy {
	return &retention.Policy{
		Name:    name,
		OwnerID: "owner-1",
		Scope:   retention.Scope{DataCategories: []string{"logs"}},
		Rule:    retention.RetentionRule{Duration: 90, Unit: retention.UnitDays},
		Disposition: retention.Disposition{
			Action: retention.ActionDelete,
		},
		Schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00"},
		Status:   retention.StatusActive,
	}
}

func mustCreate(t *testing.T, env *testEnv, p *retention.Policy) *retention.Policy {
	t.Helper()
	created, err := env.engine.CreatePolicy(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePolicy() error = %v", err)
	}
	return created
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(DefaultConfig(), Dependencies{DataStore: datastore.NewMemory()}); err == nil {
		t.Error("expected error without repository")
	}
	if _, err := New(DefaultConfig(), Dependencies{Repository: storage.NewMemoryRepository()}); err == nil {
		t.Error("expected error without data store")
	}
}

func TestCreatePolicy(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	p := mustCreate(t, env, testPolicy("logs"))

	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if !p.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, baseTime)
	}
	want := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	if p.Schedule.NextRun == nil || !p.Schedule.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", p.Schedule.NextRun, want)
	}

	stored, err := env.engine.GetPolicy(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if stored.Name != "logs" || stored.Status != retention.StatusActive {
		t.Errorf("stored policy = %+v", stored)
	}
}

func TestCreatePolicy_DraftHasNoNextRun(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	p := testPolicy("draft")
	p.Status = ""
	created := mustCreate(t, env, p)

	if created.Status != retention.StatusDraft {
		t.Errorf("Status = %s, want draft", created.Status)
	}
	if created.Schedule.NextRun != nil {
		t.Errorf("draft policy NextRun = %v, want nil", created.Schedule.NextRun)
	}
}

func TestCreatePolicy_Invalid(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())

	p := testPolicy("")
	p.Disposition.Action = retention.ActionArchive

	_, err := env.engine.CreatePolicy(context.Background(), p)
	var verr *retention.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("got %d field errors, want 2 (name, archive_location): %v", len(verr.Errors), verr)
	}
}

func TestUpdatePolicy(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	p := mustCreate(t, env, testPolicy("logs"))

	env.clock.Set(baseTime.Add(time.Hour))
	name := "renamed"
	updated, err := env.engine.UpdatePolicy(context.Background(), p.ID, retention.PolicyUpdate{
		Name:     &name,
		Schedule: &retention.ScheduleUpdate{Frequency: retention.FrequencyHourly, Time: "00:00"},
	})
	if err != nil {
		t.Fatalf("UpdatePolicy() error = %v", err)
	}

	if updated.Name != "renamed" {
		t.Errorf("Name = %q", updated.Name)
	}
	want := baseTime.Add(2 * time.Hour)
	if updated.Schedule.NextRun == nil || !updated.Schedule.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", updated.Schedule.NextRun, want)
	}
}

func TestUpdatePolicy_InvalidLeavesPolicyUnchanged(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	p := mustCreate(t, env, testPolicy("logs"))

	_, err := env.engine.UpdatePolicy(context.Background(), p.ID, retention.PolicyUpdate{
		Rule: &retention.RetentionRule{Duration: 0, Unit: retention.UnitDays},
	})
	var verr *retention.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	stored, _ := env.engine.GetPolicy(context.Background(), p.ID)
	if stored.Rule.Duration != 90 {
		t.Errorf("Duration = %d, want 90", stored.Rule.Duration)
	}
}

func TestUnknownPolicy(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["get"] = env.engine.GetPolicy(ctx, "missing")
	_, checks["execute"] = env.engine.ExecutePolicy(ctx, "missing", ExecuteOptions{})
	_, checks["hold"] = env.engine.ApplyLegalHold(ctx, "missing", HoldRequest{Name: "case"})
	_, checks["release"] = env.engine.ReleaseLegalHold(ctx, "missing", ReleaseOptions{})
	_, checks["approve"] = env.engine.ApproveDisposition(ctx, "missing", ApprovalRequest{Approver: "a"})
	_, checks["pause"] = env.engine.PausePolicy(ctx, "missing")

	for op, err := range checks {
		if !errors.Is(err, retention.ErrNotFound) {
			t.Errorf("%s: error = %v, want ErrNotFound", op, err)
		}
	}
}

type fakeGovernance struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
}

func (f *fakeGovernance) CreatePolicy(ctx context.Context, p *retention.Policy) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.id, f.err
}

func TestCreatePolicy_GovernanceSync(t *testing.T) {
	tests := []struct {
		name   string
		gov    *fakeGovernance
		wantID string
	}{
		{name: "stores external id", gov: &fakeGovernance{id: "gov-42"}, wantID: "gov-42"},
		{name: "failure is ignored", gov: &fakeGovernance{err: errors.New("unavailable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := storage.NewMemoryRepository()
			eng, err := New(DefaultConfig(), Dependencies{
				Repository: repo,
				DataStore:  datastore.NewMemory(),
				Governance: tt.gov,
			})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			p, err := eng.CreatePolicy(context.Background(), testPolicy("logs"))
			if err != nil {
				t.Fatalf("CreatePolicy() error = %v", err)
			}
			if err := eng.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			stored, _ := repo.Get(context.Background(), p.ID)
			if stored.ExternalID != tt.wantID {
				t.Errorf("ExternalID = %q, want %q", stored.ExternalID, tt.wantID)
			}
			if tt.gov.calls != 1 {
				t.Errorf("governance calls = %d, want 1", tt.gov.calls)
			}
		})
	}
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("pol-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if n := k.size(); n != 0 {
		t.Errorf("size() = %d after all unlocks, want 0", n)
	}
}
