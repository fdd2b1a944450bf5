package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/datastore"
	"mercator-hq/custodian/pkg/retention/engine"
	"mercator-hq/custodian/pkg/retention/storage"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.DefaultConfig(), engine.Dependencies{
		Repository: storage.NewMemoryRepository(),
		DataStore:  datastore.NewMemory(),
	})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestSyncer_SyncDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mail.yaml", mailDefinition)
	writeFile(t, dir, "list.yaml", listDefinition)

	eng := newEngine(t)
	syncer := NewSyncer(nil, eng)
	ctx := context.Background()

	report, err := syncer.SyncDir(ctx, dir)
	if err != nil {
		t.Fatalf("SyncDir() error = %v", err)
	}
	if len(report.Created) != 3 || len(report.Updated) != 0 {
		t.Fatalf("report = %+v, want 3 created", report)
	}

	mail, err := eng.GetPolicy(ctx, "mail-7y")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if mail.Status != retention.StatusActive || mail.Disposition.ArchiveLocation != "cold/mail" {
		t.Errorf("mail policy = %+v", mail)
	}
	nextRun := *mail.Schedule.NextRun

	// an untouched directory changes nothing
	report, err = syncer.SyncDir(ctx, dir)
	if err != nil {
		t.Fatalf("SyncDir() error = %v", err)
	}
	if len(report.Unchanged) != 3 {
		t.Errorf("report = %+v, want 3 unchanged", report)
	}

	// a rename leaves the schedule alone
	writeFile(t, dir, "mail.yaml", strings.Replace(mailDefinition, "Mail retention", "Mail (7 years)", 1))
	report, err = syncer.SyncDir(ctx, dir)
	if err != nil {
		t.Fatalf("SyncDir() error = %v", err)
	}
	if len(report.Updated) != 1 || report.Updated[0] != "mail-7y" {
		t.Fatalf("report = %+v, want mail-7y updated", report)
	}
	mail, _ = eng.GetPolicy(ctx, "mail-7y")
	if mail.Name != "Mail (7 years)" {
		t.Errorf("Name = %q", mail.Name)
	}
	if !mail.Schedule.NextRun.Equal(nextRun) {
		t.Errorf("NextRun moved from %v to %v on a rename", nextRun, mail.Schedule.NextRun)
	}
}

func TestSyncer_KeepsRuntimeState(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mail.yaml", mailDefinition)

	eng := newEngine(t)
	syncer := NewSyncer(nil, eng)
	ctx := context.Background()

	if _, err := syncer.SyncDir(ctx, dir); err != nil {
		t.Fatalf("SyncDir() error = %v", err)
	}
	if _, err := eng.ApplyLegalHold(ctx, "mail-7y", engine.HoldRequest{Name: "Case 12"}); err != nil {
		t.Fatalf("ApplyLegalHold() error = %v", err)
	}

	writeFile(t, dir, "mail.yaml", strings.Replace(mailDefinition, "duration: 7", "duration: 10", 1))
	if _, err := syncer.SyncDir(ctx, dir); err != nil {
		t.Fatalf("SyncDir() error = %v", err)
	}

	p, _ := eng.GetPolicy(ctx, "mail-7y")
	if p.Rule.Duration != 10 {
		t.Errorf("Duration = %d, want 10", p.Rule.Duration)
	}
	if !p.LegalHold.IsActive || p.Status != retention.StatusPaused {
		t.Errorf("sync changed runtime state: status %s, hold %v", p.Status, p.LegalHold.IsActive)
	}
}

func TestSyncer_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mail.yaml", mailDefinition)
	writeFile(t, dir, "broken.yaml", "id: broken\nname: Broken\nowner_id: ops\nretention: {duration: -1}\n")

	eng := newEngine(t)
	report, err := NewSyncer(nil, eng).SyncDir(context.Background(), dir)
	if err == nil {
		t.Fatal("expected error for the broken definition")
	}
	var derr *DefinitionError
	if !errors.As(err, &derr) || derr.PolicyID != "broken" {
		t.Errorf("error = %v, want DefinitionError for broken", err)
	}
	if len(report.Created) != 1 || report.Created[0] != "mail-7y" {
		t.Errorf("report = %+v, want mail-7y created", report)
	}
}

func TestDiff(t *testing.T) {
	base := func() *retention.Policy {
		day := 1
		return &retention.Policy{
			ID:          "p",
			Name:        "n",
			Scope:       retention.Scope{DataCategories: []string{"mail"}},
			Rule:        retention.RetentionRule{Duration: 7, Unit: retention.UnitYears},
			Disposition: retention.Disposition{Action: retention.ActionDelete},
			Schedule:    retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "03:00", DayOfMonth: &day},
		}
	}

	tests := []struct {
		name   string
		change func(p *retention.Policy)
		check  func(u retention.PolicyUpdate) bool
	}{
		{
			name:   "identical",
			change: func(p *retention.Policy) {},
			check:  func(u retention.PolicyUpdate) bool { return u.Empty() },
		},
		{
			name:   "nil and empty lists are equal",
			change: func(p *retention.Policy) { p.Scope.DataSources = []string{} },
			check:  func(u retention.PolicyUpdate) bool { return u.Empty() },
		},
		{
			name:   "scope",
			change: func(p *retention.Policy) { p.Scope.DataCategories = []string{"mail", "chat"} },
			check:  func(u retention.PolicyUpdate) bool { return u.Scope != nil && u.Schedule == nil && u.Rule == nil },
		},
		{
			name: "day of month",
			change: func(p *retention.Policy) {
				day := 15
				p.Schedule.DayOfMonth = &day
			},
			check: func(u retention.PolicyUpdate) bool { return u.Schedule != nil && *u.Schedule.DayOfMonth == 15 },
		},
		{
			name:   "approval",
			change: func(p *retention.Policy) { p.Disposition.RequireApproval = true },
			check:  func(u retention.PolicyUpdate) bool { return u.Disposition != nil && u.Disposition.RequireApproval },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.change(def)
			if u := Diff(base(), def); !tt.check(u) {
				t.Errorf("Diff() = %+v", u)
			}
		})
	}
}
