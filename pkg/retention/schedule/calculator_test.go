package schedule

import (
	"testing"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

func intPtr(v int) *int { return &v }

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name     string
		schedule retention.Schedule
		now      time.Time
		want     time.Time
	}{
		{
			name:     "daily after time rolls to tomorrow",
			schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00"},
			now:      utc(2024, 3, 15, 3, 0),
			want:     utc(2024, 3, 16, 2, 0),
		},
		{
			name:     "daily before time is today",
			schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00"},
			now:      utc(2024, 3, 15, 1, 0),
			want:     utc(2024, 3, 15, 2, 0),
		},
		{
			name:     "daily exactly at time rolls over",
			schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00"},
			now:      utc(2024, 3, 15, 2, 0),
			want:     utc(2024, 3, 16, 2, 0),
		},
		{
			name:     "hourly",
			schedule: retention.Schedule{Frequency: retention.FrequencyHourly},
			now:      utc(2024, 3, 15, 10, 30),
			want:     utc(2024, 3, 15, 11, 0),
		},
		{
			name:     "hourly on the hour",
			schedule: retention.Schedule{Frequency: retention.FrequencyHourly},
			now:      utc(2024, 3, 15, 10, 0),
			want:     utc(2024, 3, 15, 11, 0),
		},
		{
			name:     "weekly later this week",
			schedule: retention.Schedule{Frequency: retention.FrequencyWeekly, Time: "04:00", DayOfWeek: intPtr(0)},
			now:      utc(2024, 3, 15, 12, 0), // Friday
			want:     utc(2024, 3, 17, 4, 0),  // Sunday
		},
		{
			name:     "weekly today passed",
			schedule: retention.Schedule{Frequency: retention.FrequencyWeekly, Time: "04:00", DayOfWeek: intPtr(5)},
			now:      utc(2024, 3, 15, 12, 0),
			want:     utc(2024, 3, 22, 4, 0),
		},
		{
			name:     "weekly without day uses today",
			schedule: retention.Schedule{Frequency: retention.FrequencyWeekly, Time: "18:00"},
			now:      utc(2024, 3, 15, 12, 0),
			want:     utc(2024, 3, 15, 18, 0),
		},
		{
			name:     "monthly this month",
			schedule: retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "00:00", DayOfMonth: intPtr(20)},
			now:      utc(2024, 3, 15, 12, 0),
			want:     utc(2024, 3, 20, 0, 0),
		},
		{
			name:     "monthly passed",
			schedule: retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "00:00", DayOfMonth: intPtr(10)},
			now:      utc(2024, 3, 15, 12, 0),
			want:     utc(2024, 4, 10, 0, 0),
		},
		{
			name:     "monthly 31st clamps in February",
			schedule: retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "01:00", DayOfMonth: intPtr(31)},
			now:      utc(2024, 2, 1, 0, 0),
			want:     utc(2024, 2, 29, 1, 0),
		},
		{
			name:     "monthly 31st clamps in April",
			schedule: retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "01:00", DayOfMonth: intPtr(31)},
			now:      utc(2024, 3, 31, 2, 0),
			want:     utc(2024, 4, 30, 1, 0),
		},
		{
			name:     "monthly without day uses the first",
			schedule: retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "00:00"},
			now:      utc(2024, 12, 15, 0, 0),
			want:     utc(2025, 1, 1, 0, 0),
		},
		{
			name:     "quarterly",
			schedule: retention.Schedule{Frequency: retention.FrequencyQuarterly, Time: "03:00"},
			now:      utc(2024, 2, 10, 0, 0),
			want:     utc(2024, 4, 1, 3, 0),
		},
		{
			name:     "quarterly from last quarter",
			schedule: retention.Schedule{Frequency: retention.FrequencyQuarterly, Time: "03:00"},
			now:      utc(2024, 11, 30, 0, 0),
			want:     utc(2025, 1, 1, 3, 0),
		},
		{
			name:     "yearly passed",
			schedule: retention.Schedule{Frequency: retention.FrequencyYearly, Time: "00:30"},
			now:      utc(2024, 3, 15, 0, 0),
			want:     utc(2025, 1, 1, 0, 30),
		},
		{
			name:     "yearly not yet",
			schedule: retention.Schedule{Frequency: retention.FrequencyYearly, Time: "00:30"},
			now:      utc(2024, 1, 1, 0, 0),
			want:     utc(2024, 1, 1, 0, 30),
		},
		{
			name:     "unknown frequency behaves as daily",
			schedule: retention.Schedule{Frequency: "fortnightly", Time: "02:00"},
			now:      utc(2024, 3, 15, 3, 0),
			want:     utc(2024, 3, 16, 2, 0),
		},
		{
			name:     "malformed time is midnight",
			schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "later"},
			now:      utc(2024, 3, 15, 3, 0),
			want:     utc(2024, 3, 16, 0, 0),
		},
		{
			name:     "invalid timezone is UTC",
			schedule: retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00", Timezone: "Nowhere/Special"},
			now:      utc(2024, 3, 15, 3, 0),
			want:     utc(2024, 3, 16, 2, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.schedule, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextRun_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	s := retention.Schedule{Frequency: retention.FrequencyDaily, Time: "02:00", Timezone: "America/New_York"}
	// 03:00 UTC is 23:00 the previous evening in New York (EDT).
	now := utc(2024, 6, 15, 3, 0)

	got := NextRun(s, now)
	want := time.Date(2024, 6, 15, 2, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}

// Every frequency yields a strictly increasing sequence when fed back.
func TestNextRun_StrictlyIncreasing(t *testing.T) {
	zones := []string{"", "Europe/Berlin", "America/New_York", "Asia/Kolkata"}
	freqs := []retention.Frequency{
		retention.FrequencyHourly, retention.FrequencyDaily, retention.FrequencyWeekly,
		retention.FrequencyMonthly, retention.FrequencyQuarterly, retention.FrequencyYearly,
	}
	// Crosses both 2024 DST transitions in Europe and North America.
	starts := []time.Time{utc(2024, 3, 9, 23, 59), utc(2024, 10, 26, 0, 0), utc(2024, 1, 31, 12, 0)}

	for _, zone := range zones {
		for _, freq := range freqs {
			s := retention.Schedule{
				Frequency:  freq,
				Time:       "02:30",
				DayOfWeek:  intPtr(0),
				DayOfMonth: intPtr(31),
				Timezone:   zone,
			}
			for _, start := range starts {
				now := start
				for i := 0; i < 40; i++ {
					next := NextRun(s, now)
					if !next.After(now) {
						t.Fatalf("%s/%s: NextRun(%v) = %v, not after now", zone, freq, now, next)
					}
					now = next
				}
			}
		}
	}
}

func TestNextRun_Period(t *testing.T) {
	tests := []struct {
		freq   retention.Frequency
		period time.Duration
	}{
		{retention.FrequencyHourly, time.Hour},
		{retention.FrequencyDaily, 24 * time.Hour},
		{retention.FrequencyWeekly, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			s := retention.Schedule{Frequency: tt.freq, Time: "06:15", DayOfWeek: intPtr(3)}
			runs := Sequence(s, utc(2024, 1, 1, 0, 0), 20)
			for i := 1; i < len(runs); i++ {
				if d := runs[i].Sub(runs[i-1]); d != tt.period {
					t.Fatalf("step %d = %v, want %v", i, d, tt.period)
				}
			}
		})
	}
}

// Calendar periods: monthly runs land once per month, yearly once per year.
func TestNextRun_CalendarPeriod(t *testing.T) {
	s := retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "00:00", DayOfMonth: intPtr(31)}
	runs := Sequence(s, utc(2024, 1, 1, 0, 0), 12)
	for i, r := range runs {
		if want := time.Month(i + 1); r.Month() != want {
			t.Errorf("run %d month = %s, want %s", i, r.Month(), want)
		}
		if next := r.AddDate(0, 0, 1); next.Month() == r.Month() {
			t.Errorf("run %d (%v) is not the last day of the month", i, r)
		}
	}

	q := retention.Schedule{Frequency: retention.FrequencyQuarterly, Time: "00:00"}
	quarters := Sequence(q, utc(2024, 1, 15, 0, 0), 4)
	wantMonths := []time.Month{time.April, time.July, time.October, time.January}
	for i, r := range quarters {
		if r.Month() != wantMonths[i] || r.Day() != 1 {
			t.Errorf("quarter %d = %v, want 1 %s", i, r, wantMonths[i])
		}
	}
}

func TestNextRun_WeeklyAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	s := retention.Schedule{Frequency: retention.FrequencyWeekly, Time: "09:00", DayOfWeek: intPtr(1), Timezone: "Europe/Berlin"}

	runs := Sequence(s, time.Date(2024, 3, 20, 0, 0, 0, 0, loc), 3)
	for i, r := range runs {
		local := r.In(loc)
		if local.Weekday() != time.Monday || local.Hour() != 9 {
			t.Errorf("run %d = %v, want Monday 09:00 local", i, local)
		}
	}
	// The step that crosses the spring transition is one hour short.
	if d := runs[1].Sub(runs[0]); d != 7*24*time.Hour-time.Hour {
		t.Errorf("DST step = %v", d)
	}
}

func TestLocation(t *testing.T) {
	if Location("") != time.UTC {
		t.Error("empty timezone should be UTC")
	}
	if Location("Invalid/Zone") != time.UTC {
		t.Error("invalid timezone should be UTC")
	}
}

func BenchmarkNextRun(b *testing.B) {
	s := retention.Schedule{Frequency: retention.FrequencyMonthly, Time: "02:00", DayOfMonth: intPtr(31)}
	now := utc(2024, 1, 31, 3, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NextRun(s, now)
	}
}
