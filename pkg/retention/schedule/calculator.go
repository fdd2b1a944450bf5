// Package schedule computes when a retention policy runs next.
package schedule

import (
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Fallback is the frequency used for unknown or empty frequencies.
// A stored policy with a frequency this build does not know about runs
// daily rather than never.
const Fallback = retention.FrequencyDaily

// maxSteps bounds the candidate search. Candidates grow strictly with the
// step, so the first or second one is always in the future.
const maxSteps = 8

// NextRun returns the first instant strictly after now at which the
// schedule fires. It is pure: the result depends only on its arguments.
//
// Rules, all evaluated in the schedule's timezone:
//   - hourly: the next top of the hour
//   - daily: Time today, else tomorrow
//   - weekly: Time on DayOfWeek (default: today's weekday), else a week later
//   - monthly: Time on DayOfMonth (default: 1) this month, else next month;
//     days past the end of a month clamp to its last day
//   - quarterly: Time on the first day of the next quarter (Jan, Apr, Jul, Oct)
//   - yearly: Time on January 1st this year, else next year
func NextRun(s retention.Schedule, now time.Time) time.Time {
	loc := Location(s.Timezone)
	local := now.In(loc)
	hour, minute := clock(s.Time)

	freq := s.Frequency
	if !freq.Valid() {
		freq = Fallback
	}

	for step := 0; step < maxSteps; step++ {
		t := candidate(freq, s, local, hour, minute, step)
		if t.After(now) {
			return t
		}
	}
	return now.Add(time.Hour)
}

// Sequence returns the next n run instants after now, each computed from
// the previous one.
func Sequence(s retention.Schedule, now time.Time, n int) []time.Time {
	runs := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		now = NextRun(s, now)
		runs = append(runs, now)
	}
	return runs
}

// Location resolves an IANA timezone name, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func candidate(freq retention.Frequency, s retention.Schedule, local time.Time, hour, minute, step int) time.Time {
	loc := local.Location()
	y, m, d := local.Date()

	switch freq {
	case retention.FrequencyHourly:
		top := time.Date(y, m, d, local.Hour(), 0, 0, 0, loc)
		return top.Add(time.Duration(step+1) * time.Hour)

	case retention.FrequencyWeekly:
		dow := int(local.Weekday())
		if s.DayOfWeek != nil {
			dow = *s.DayOfWeek
		}
		delta := ((dow-int(local.Weekday()))%7 + 7) % 7
		return time.Date(y, m, d+delta+7*step, hour, minute, 0, 0, loc)

	case retention.FrequencyMonthly:
		dom := 1
		if s.DayOfMonth != nil {
			dom = *s.DayOfMonth
		}
		return clampedDate(y, int(m)+step, dom, hour, minute, loc)

	case retention.FrequencyQuarterly:
		quarterStart := (int(m)-1)/3*3 + 1
		return clampedDate(y, quarterStart+3*(step+1), 1, hour, minute, loc)

	case retention.FrequencyYearly:
		return time.Date(y+step, time.January, 1, hour, minute, 0, 0, loc)

	default: // daily
		return time.Date(y, m, d+step, hour, minute, 0, 0, loc)
	}
}

// clampedDate builds a date in the given month (which may overflow past
// December) with day clamped to the month's last day.
func clampedDate(year, month, day, hour, minute int, loc *time.Location) time.Time {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	if last := daysIn(first); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, 0, 0, loc)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// clock parses the schedule time; malformed values run at midnight.
func clock(s string) (int, int) {
	h, m, err := retention.ParseTimeOfDay(s)
	if err != nil {
		return 0, 0
	}
	return h, m
}
