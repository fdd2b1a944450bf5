package retention

import "time"

// Cutoff returns the instant at or before which a record's start event makes
// it due at now. A non-positive duration yields now, so everything is due.
func (r RetentionRule) Cutoff(now time.Time) time.Time {
	if r.Duration <= 0 {
		return now
	}
	switch r.Unit {
	case UnitMonths:
		return now.AddDate(0, -r.Duration, 0)
	case UnitYears:
		return now.AddDate(-r.Duration, 0, 0)
	default:
		return now.AddDate(0, 0, -r.Duration)
	}
}

// DueAt returns when a record becomes due given its start instant.
func (r RetentionRule) DueAt(start time.Time) time.Time {
	if r.Duration <= 0 {
		return start
	}
	switch r.Unit {
	case UnitMonths:
		return start.AddDate(0, r.Duration, 0)
	case UnitYears:
		return start.AddDate(r.Duration, 0, 0)
	default:
		return start.AddDate(0, 0, r.Duration)
	}
}

// RecordTimes are the timestamps a DataStore knows about one record.
type RecordTimes struct {
	CreatedAt      time.Time
	LastAccessedAt *time.Time
	LastModifiedAt *time.Time
}

// StartOf picks the instant the retention period runs from for one record.
// Missing access/modification times fall back to creation. With
// ExtendOnAccess the latest known access pushes the start forward.
func (r RetentionRule) StartOf(t RecordTimes) time.Time {
	start := t.CreatedAt
	switch r.StartEvent {
	case StartLastAccess:
		if t.LastAccessedAt != nil {
			start = *t.LastAccessedAt
		}
	case StartLastModified:
		if t.LastModifiedAt != nil {
			start = *t.LastModifiedAt
		}
	}
	if r.ExtendOnAccess && t.LastAccessedAt != nil && t.LastAccessedAt.After(start) {
		start = *t.LastAccessedAt
	}
	return start
}

// IsDue reports whether a record with the given timestamps is due at now.
func (r RetentionRule) IsDue(t RecordTimes, now time.Time) bool {
	return !r.StartOf(t).After(r.Cutoff(now))
}
