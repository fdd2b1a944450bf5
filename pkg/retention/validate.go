package retention

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults applied to zero-valued policy fields.
const (
	DefaultUnit       = UnitDays
	DefaultStartEvent = StartCreation
	DefaultFrequency  = FrequencyDaily
	DefaultTime       = "00:00"
	DefaultStatus     = StatusDraft
)

// ApplyDefaults fills zero-valued fields. It is idempotent.
func ApplyDefaults(p *Policy) {
	if p.Rule.Unit == "" {
		p.Rule.Unit = DefaultUnit
	}
	if p.Rule.StartEvent == "" {
		p.Rule.StartEvent = DefaultStartEvent
	}
	if p.Disposition.Action == "" {
		p.Disposition.Action = ActionDelete
	}
	if p.Schedule.Frequency == "" {
		p.Schedule.Frequency = DefaultFrequency
	}
	if p.Schedule.Time == "" {
		p.Schedule.Time = DefaultTime
	}
	if p.Status == "" {
		p.Status = DefaultStatus
	}
}

// ParseTimeOfDay parses an "HH:MM" (or "H:MM") clock time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q is not in HH:MM form", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time %q has an invalid hour", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q has an invalid minute", s)
	}
	return hour, minute, nil
}

// Validate checks a policy definition and returns a *ValidationError
// listing every problem, or nil.
func Validate(p *Policy) error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(p.Name) == "" {
		add("name", "name is required")
	}
	if strings.TrimSpace(p.OwnerID) == "" {
		add("owner_id", "owner is required")
	}

	// Retention rule
	if p.Rule.Duration <= 0 {
		add("retention.duration", "duration must be positive")
	}
	switch p.Rule.Unit {
	case UnitDays, UnitMonths, UnitYears:
	default:
		add("retention.unit", fmt.Sprintf("unknown unit %q (expected days, months or years)", p.Rule.Unit))
	}
	switch p.Rule.StartEvent {
	case StartCreation, StartLastAccess, StartLastModified:
	default:
		add("retention.start_event", fmt.Sprintf("unknown start event %q", p.Rule.StartEvent))
	}

	// Disposition
	switch p.Disposition.Action {
	case ActionDelete:
		if p.Disposition.ArchiveLocation != "" {
			add("disposition.archive_location", "archive location is only valid for the archive action")
		}
	case ActionArchive:
		if strings.TrimSpace(p.Disposition.ArchiveLocation) == "" {
			add("disposition.archive_location", "archive location is required for the archive action")
		}
	default:
		add("disposition.action", fmt.Sprintf("unknown action %q (expected delete or archive)", p.Disposition.Action))
	}
	if p.Disposition.NotifyDaysBefore < 0 {
		add("disposition.notify_days_before", "must not be negative")
	}

	errs = append(errs, validateSchedule(p.Schedule)...)

	switch p.Status {
	case StatusDraft, StatusActive, StatusPaused, StatusArchived:
	default:
		add("status", fmt.Sprintf("unknown status %q", p.Status))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateSchedule(s Schedule) []FieldError {
	var errs []FieldError

	if !s.Frequency.Valid() {
		errs = append(errs, FieldError{
			Field:   "schedule.frequency",
			Message: fmt.Sprintf("unknown frequency %q", s.Frequency),
		})
	}
	if _, _, err := ParseTimeOfDay(s.Time); err != nil {
		errs = append(errs, FieldError{Field: "schedule.time", Message: err.Error()})
	}
	if s.DayOfWeek != nil && (*s.DayOfWeek < 0 || *s.DayOfWeek > 6) {
		errs = append(errs, FieldError{Field: "schedule.day_of_week", Message: "must be between 0 (Sunday) and 6"})
	}
	if s.DayOfMonth != nil && (*s.DayOfMonth < 1 || *s.DayOfMonth > 31) {
		errs = append(errs, FieldError{Field: "schedule.day_of_month", Message: "must be between 1 and 31"})
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			errs = append(errs, FieldError{Field: "schedule.timezone", Message: fmt.Sprintf("unknown timezone %q", s.Timezone)})
		}
	}
	return errs
}
