package retention

import (
	"testing"
	"time"
)

func TestRetentionRule_Cutoff(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		rule RetentionRule
		want time.Time
	}{
		{RetentionRule{Duration: 30, Unit: UnitDays}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{RetentionRule{Duration: 1, Unit: UnitMonths}, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, // Feb 31 normalizes
		{RetentionRule{Duration: 7, Unit: UnitYears}, time.Date(2017, 3, 31, 0, 0, 0, 0, time.UTC)},
		{RetentionRule{Duration: 0, Unit: UnitDays}, now},
	}
	for _, tt := range tests {
		if got := tt.rule.Cutoff(now); !got.Equal(tt.want) {
			t.Errorf("Cutoff(%+v) = %v, want %v", tt.rule, got, tt.want)
		}
	}
}

func TestRetentionRule_IsDue(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -100)
	recent := now.AddDate(0, 0, -10)

	tests := []struct {
		name  string
		rule  RetentionRule
		times RecordTimes
		want  bool
	}{
		{
			name:  "old creation",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays, StartEvent: StartCreation},
			times: RecordTimes{CreatedAt: old},
			want:  true,
		},
		{
			name:  "recent creation",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays, StartEvent: StartCreation},
			times: RecordTimes{CreatedAt: recent},
			want:  false,
		},
		{
			name:  "exactly at cutoff",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays},
			times: RecordTimes{CreatedAt: now.AddDate(0, 0, -90)},
			want:  true,
		},
		{
			name:  "last access recent",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays, StartEvent: StartLastAccess},
			times: RecordTimes{CreatedAt: old, LastAccessedAt: &recent},
			want:  false,
		},
		{
			name:  "last access missing falls back to creation",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays, StartEvent: StartLastAccess},
			times: RecordTimes{CreatedAt: old},
			want:  true,
		},
		{
			name:  "extend on access",
			rule:  RetentionRule{Duration: 90, Unit: UnitDays, StartEvent: StartLastModified, ExtendOnAccess: true},
			times: RecordTimes{CreatedAt: old, LastModifiedAt: &old, LastAccessedAt: &recent},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.IsDue(tt.times, now); got != tt.want {
				t.Errorf("IsDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetentionRule_DueAt(t *testing.T) {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	rule := RetentionRule{Duration: 2, Unit: UnitYears}

	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := rule.DueAt(start); !got.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got, want)
	}
	// A record is due exactly when DueAt has been reached.
	if !rule.IsDue(RecordTimes{CreatedAt: start}, want) {
		t.Error("record not due at DueAt")
	}
	if rule.IsDue(RecordTimes{CreatedAt: start}, want.Add(-time.Second)) {
		t.Error("record due before DueAt")
	}
}
