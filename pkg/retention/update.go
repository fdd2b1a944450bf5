package retention

import "time"

// PolicyUpdate is a partial update. Each non-nil section replaces the
// corresponding section of the policy wholesale; there is no field-level
// merging inside a section.
type PolicyUpdate struct {
	Name        *string
	Description *string
	Scope       *Scope
	Rule        *RetentionRule
	Disposition *Disposition
	Compliance  *Compliance
	Schedule    *ScheduleUpdate
}

// ScheduleUpdate replaces the configurable part of a schedule. LastRun and
// NextRun are owned by the engine and cannot be set by callers.
type ScheduleUpdate struct {
	Frequency  Frequency
	Time       string
	DayOfWeek  *int
	DayOfMonth *int
	Timezone   string
}

// Empty reports whether the update changes nothing.
func (u PolicyUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Scope == nil && u.Rule == nil &&
		u.Disposition == nil && u.Compliance == nil && u.Schedule == nil
}

// ApplyTo writes the update into p and reports whether the schedule
// configuration changed, in which case the next run must be recomputed.
func (u PolicyUpdate) ApplyTo(p *Policy, now time.Time) (scheduleChanged bool) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Scope != nil {
		p.Scope = *u.Scope
		p.Scope.DataCategories = cloneStrings(u.Scope.DataCategories)
		p.Scope.DataSources = cloneStrings(u.Scope.DataSources)
	}
	if u.Rule != nil {
		p.Rule = *u.Rule
	}
	if u.Disposition != nil {
		p.Disposition = *u.Disposition
		p.Disposition.Approvers = cloneStrings(u.Disposition.Approvers)
	}
	if u.Compliance != nil {
		p.Compliance = *u.Compliance
		p.Compliance.Regulations = cloneStrings(u.Compliance.Regulations)
	}
	if u.Schedule != nil {
		p.Schedule.Frequency = u.Schedule.Frequency
		p.Schedule.Time = u.Schedule.Time
		p.Schedule.DayOfWeek = cloneInt(u.Schedule.DayOfWeek)
		p.Schedule.DayOfMonth = cloneInt(u.Schedule.DayOfMonth)
		p.Schedule.Timezone = u.Schedule.Timezone
		scheduleChanged = true
	}
	p.UpdatedAt = now
	return scheduleChanged
}

// UpdateFromDefinition builds a full-section update that turns an existing
// policy into def. Used when policy definition files change.
func UpdateFromDefinition(def *Policy) PolicyUpdate {
	return PolicyUpdate{
		Name:        &def.Name,
		Description: &def.Description,
		Scope:       &def.Scope,
		Rule:        &def.Rule,
		Disposition: &def.Disposition,
		Compliance:  &def.Compliance,
		Schedule: &ScheduleUpdate{
			Frequency:  def.Schedule.Frequency,
			Time:       def.Schedule.Time,
			DayOfWeek:  def.Schedule.DayOfWeek,
			DayOfMonth: def.Schedule.DayOfMonth,
			Timezone:   def.Schedule.Timezone,
		},
	}
}
