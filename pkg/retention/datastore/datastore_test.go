package datastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func fixtures() []*Record {
	recentAccess := daysAgo(5)
	return []*Record{
		{ID: "r1", Category: "email", Source: "crm", Tags: map[string]string{"region": "eu"}, Size: 100, CreatedAt: daysAgo(400)},
		{ID: "r2", Category: "email", Source: "crm", Tags: map[string]string{"region": "us"}, Size: 200, CreatedAt: daysAgo(200)},
		{ID: "r3", Category: "chat", Source: "slack", Classification: "confidential", Size: 300, CreatedAt: daysAgo(100)},
		{ID: "r4", Category: "email", Source: "crm", Size: 400, CreatedAt: daysAgo(10)},
		{ID: "r5", Category: "email", Source: "erp", Size: 500, CreatedAt: daysAgo(300), LastAccessedAt: &recentAccess},
	}
}

type store interface {
	retention.DataStore
	Ping(ctx context.Context) error
}

func stores(t *testing.T) map[string]store {
	t.Helper()

	mem := NewMemory(fixtures()...)

	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	if err := sq.Put(context.Background(), fixtures()...); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	return map[string]store{"memory": mem, "sqlite": sq}
}

func TestCountDueRecords(t *testing.T) {
	rule := retention.RetentionRule{Duration: 90, Unit: retention.UnitDays, StartEvent: retention.StartCreation}

	tests := []struct {
		name       string
		scope      retention.Scope
		rule       retention.RetentionRule
		wantCount  int64
		wantOldest time.Time
	}{
		{name: "everything", rule: rule, wantCount: 4, wantOldest: daysAgo(310)},
		{name: "category", scope: retention.Scope{DataCategories: []string{"email"}}, rule: rule, wantCount: 3, wantOldest: daysAgo(310)},
		{name: "source", scope: retention.Scope{DataSources: []string{"slack"}}, rule: rule, wantCount: 1, wantOldest: daysAgo(10)},
		{name: "classification", scope: retention.Scope{Classification: "confidential"}, rule: rule, wantCount: 1, wantOldest: daysAgo(10)},
		{name: "tag filter", scope: retention.Scope{Filter: "region=eu"}, rule: rule, wantCount: 1, wantOldest: daysAgo(310)},
		{
			name:      "last access keeps r5",
			scope:     retention.Scope{DataSources: []string{"erp"}},
			rule:      retention.RetentionRule{Duration: 90, Unit: retention.UnitDays, StartEvent: retention.StartLastAccess},
			wantCount: 0,
		},
		{
			name:       "years",
			rule:       retention.RetentionRule{Duration: 1, Unit: retention.UnitYears, StartEvent: retention.StartCreation},
			wantCount:  1,
			wantOldest: daysAgo(400).AddDate(1, 0, 0),
		},
	}

	for name, s := range stores(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := s.CountDueRecords(context.Background(), tt.scope, tt.rule, now)
				if err != nil {
					t.Fatalf("CountDueRecords() error = %v", err)
				}
				if got.Count != tt.wantCount {
					t.Errorf("Count = %d, want %d", got.Count, tt.wantCount)
				}
				if tt.wantCount == 0 {
					if got.OldestDueDate != nil {
						t.Errorf("OldestDueDate = %v, want nil", got.OldestDueDate)
					}
					return
				}
				if got.OldestDueDate == nil || !got.OldestDueDate.Equal(tt.wantOldest) {
					t.Errorf("OldestDueDate = %v, want %v", got.OldestDueDate, tt.wantOldest)
				}
			})
		}
	}
}

func TestDisposeRecords_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			req := retention.DisposalRequest{
				PolicyID: "p1",
				Scope:    retention.Scope{DataCategories: []string{"email"}},
				Rule:     retention.RetentionRule{Duration: 90, Unit: retention.UnitDays},
				Action:   retention.ActionDelete,
				Now:      now,
			}

			got, err := s.DisposeRecords(ctx, req)
			if err != nil {
				t.Fatalf("DisposeRecords() error = %v", err)
			}
			want := retention.DisposalResult{Processed: 3, Succeeded: 3, Volume: 800}
			if got != want {
				t.Errorf("DisposeRecords() = %+v, want %+v", got, want)
			}

			// Nothing left to dispose of.
			summary, _ := s.CountDueRecords(ctx, req.Scope, req.Rule, now)
			if summary.Count != 0 {
				t.Errorf("due after disposal = %d, want 0", summary.Count)
			}
			again, err := s.DisposeRecords(ctx, req)
			if err != nil || again.Processed != 0 {
				t.Errorf("second DisposeRecords() = %+v, %v", again, err)
			}
		})
	}
}

func TestDisposeRecords_BadFilter(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			req := retention.DisposalRequest{
				Scope:  retention.Scope{Filter: "region"},
				Rule:   retention.RetentionRule{Duration: 1, Unit: retention.UnitDays},
				Action: retention.ActionDelete,
				Now:    now,
			}
			if _, err := s.DisposeRecords(context.Background(), req); err == nil {
				t.Error("DisposeRecords() with malformed filter succeeded")
			}
		})
	}
}

func TestSQLiteStore_Archive(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "records.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Put(ctx, fixtures()...); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	location := filepath.Join(dir, "archive")
	got, err := s.DisposeRecords(ctx, retention.DisposalRequest{
		PolicyID:        "p-archive",
		Scope:           retention.Scope{DataSources: []string{"crm"}},
		Rule:            retention.RetentionRule{Duration: 90, Unit: retention.UnitDays},
		Action:          retention.ActionArchive,
		ArchiveLocation: location,
		Now:             now,
	})
	if err != nil {
		t.Fatalf("DisposeRecords() error = %v", err)
	}
	if got.Succeeded != 2 || got.Volume != 300 {
		t.Errorf("DisposeRecords() = %+v", got)
	}

	files, err := filepath.Glob(filepath.Join(location, "p-archive-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v, %v", files, err)
	}
	archive, err := ReadArchive(files[0])
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	if archive.PolicyID != "p-archive" || archive.Count != 2 {
		t.Errorf("archive = %+v", archive)
	}
	if archive.Records[0].ID != "r1" || archive.Records[0].Tags["region"] != "eu" {
		t.Errorf("first archived record = %+v", archive.Records[0])
	}

	n, _ := s.Count(ctx)
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestSQLiteStore_ArchiveFailureDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "records.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	s.Put(ctx, fixtures()...)

	// A regular file where the archive directory should be.
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = s.DisposeRecords(ctx, retention.DisposalRequest{
		PolicyID:        "p1",
		Rule:            retention.RetentionRule{Duration: 90, Unit: retention.UnitDays},
		Action:          retention.ActionArchive,
		ArchiveLocation: filepath.Join(blocker, "sub"),
		Now:             now,
	})
	if err == nil {
		t.Fatal("DisposeRecords() succeeded with unwritable archive location")
	}
	if n, _ := s.Count(ctx); n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
}

func TestMemory_FailureInjection(t *testing.T) {
	ctx := context.Background()
	req := retention.DisposalRequest{
		Rule:   retention.RetentionRule{Duration: 90, Unit: retention.UnitDays},
		Action: retention.ActionDelete,
		Now:    now,
	}

	t.Run("partial failure", func(t *testing.T) {
		m := NewMemory(fixtures()...)
		m.FailRecords("r2")

		got, err := m.DisposeRecords(ctx, req)
		if err != nil {
			t.Fatalf("DisposeRecords() error = %v", err)
		}
		if got.Processed != 4 || got.Succeeded != 3 || got.Failed != 1 {
			t.Errorf("DisposeRecords() = %+v", got)
		}
		if !m.Has("r2") || m.Has("r1") {
			t.Error("failed record removed or successful record kept")
		}
	})

	t.Run("error", func(t *testing.T) {
		m := NewMemory(fixtures()...)
		boom := errors.New("store offline")
		m.SetError(boom)

		if _, err := m.CountDueRecords(ctx, req.Scope, req.Rule, now); !errors.Is(err, boom) {
			t.Errorf("CountDueRecords() error = %v", err)
		}
		if _, err := m.DisposeRecords(ctx, req); !errors.Is(err, boom) {
			t.Errorf("DisposeRecords() error = %v", err)
		}
		if m.Len() != 5 {
			t.Errorf("Len() = %d, want 5", m.Len())
		}
	})

	t.Run("delay honours context", func(t *testing.T) {
		m := NewMemory(fixtures()...)
		m.SetDelay(time.Second)

		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := m.DisposeRecords(ctx, req)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("DisposeRecords() error = %v, want deadline exceeded", err)
		}
		if m.Len() != 5 {
			t.Errorf("Len() = %d, want 5", m.Len())
		}
	})

	t.Run("archive and call counts", func(t *testing.T) {
		m := NewMemory(fixtures()...)
		archiveReq := req
		archiveReq.Action = retention.ActionArchive
		archiveReq.ArchiveLocation = "cold"

		m.CountDueRecords(ctx, req.Scope, req.Rule, now)
		m.DisposeRecords(ctx, archiveReq)

		if got := len(m.Archived("cold")); got != 4 {
			t.Errorf("Archived() = %d records, want 4", got)
		}
		if count, dispose := m.Calls(); count != 1 || dispose != 1 {
			t.Errorf("Calls() = %d, %d", count, dispose)
		}
	})
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "region=eu", want: map[string]string{"region": "eu"}},
		{in: " region = eu , tier=gold", want: map[string]string{"region": "eu", "tier": "gold"}},
		{in: "flag=", want: map[string]string{"flag": ""}},
		{in: "region", wantErr: true},
		{in: "=eu", wantErr: true},
		{in: `re"gion=eu`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseFilter(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("ParseFilter(%q)[%s] = %q, want %q", tt.in, k, got[k], v)
			}
		}
	}
}
