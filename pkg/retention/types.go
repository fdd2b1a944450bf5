package retention

import (
	"time"
)

// Status is the lifecycle state of a retention policy.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// PausedReason distinguishes why a policy is paused. A legal hold and a
// manual pause both read as StatusPaused.
type PausedReason string

const (
	PausedNone      PausedReason = ""
	PausedLegalHold PausedReason = "legal_hold"
	PausedManual    PausedReason = "manual"
)

// Frequency is how often a policy's schedule fires.
type Frequency string

const (
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly,
		FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Unit is the unit of a retention duration.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// StartEvent names the record timestamp the retention period is measured from.
type StartEvent string

const (
	StartCreation     StartEvent = "creation"
	StartLastAccess   StartEvent = "last_access"
	StartLastModified StartEvent = "last_modified"
)

// Action is the terminal disposition applied to due records.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
)

// ExecutionStatus is the outcome of one execution.
type ExecutionStatus string

const (
	ExecutionRunning             ExecutionStatus = "running"
	ExecutionCompleted           ExecutionStatus = "completed"
	ExecutionCompletedWithErrors ExecutionStatus = "completed_with_errors"
	ExecutionFailed              ExecutionStatus = "failed"
)

// Trigger records what started an execution.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerApproval  Trigger = "approval"
)

// ApprovalStatus is the state of an approval gate entry.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalConsumed ApprovalStatus = "consumed"
)

// Policy is a named rule describing what data to retain, for how long, and
// what happens at expiry. It is the aggregate root of the engine: schedule,
// legal hold, execution history and approvals all hang off it.
type Policy struct {
	// Identity
	ID          string `json:"id" yaml:"id"`
	OwnerID     string `json:"owner_id" yaml:"owner_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedBy   string `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	ExternalID  string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	Scope       Scope         `json:"scope" yaml:"scope"`
	Rule        RetentionRule `json:"retention" yaml:"retention"`
	Disposition Disposition   `json:"disposition" yaml:"disposition"`
	Compliance  Compliance    `json:"compliance" yaml:"compliance"`
	Schedule    Schedule      `json:"schedule" yaml:"schedule"`
	LegalHold   LegalHold     `json:"legal_hold" yaml:"-"`

	Status       Status       `json:"status" yaml:"status"`
	PausedReason PausedReason `json:"paused_reason,omitempty" yaml:"-"`

	Executions     []ExecutionRecord `json:"executions" yaml:"-"`
	PendingRecords []PendingRecord   `json:"pending_records" yaml:"-"`
	Statistics     Statistics        `json:"statistics" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Scope selects the records a policy governs. The engine never interprets
// it; it is handed to the DataStore as-is.
type Scope struct {
	DataCategories []string `json:"data_categories" yaml:"data_categories"`
	DataSources    []string `json:"data_sources" yaml:"data_sources"`
	Classification string   `json:"classification,omitempty" yaml:"classification,omitempty"`
	Filter         string   `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// RetentionRule says how long a record is kept, measured from StartEvent.
type RetentionRule struct {
	Duration       int        `json:"duration" yaml:"duration"`
	Unit           Unit       `json:"unit" yaml:"unit"`
	StartEvent     StartEvent `json:"start_event" yaml:"start_event"`
	ExtendOnAccess bool       `json:"extend_on_access" yaml:"extend_on_access"`
}

// Disposition describes what happens to due records.
type Disposition struct {
	Action           Action   `json:"action" yaml:"action"`
	RequireApproval  bool     `json:"require_approval" yaml:"require_approval"`
	Approvers        []string `json:"approvers,omitempty" yaml:"approvers,omitempty"`
	NotifyDaysBefore int      `json:"notify_days_before" yaml:"notify_days_before"`

	// ArchiveLocation is required iff Action is ActionArchive.
	ArchiveLocation string `json:"archive_location,omitempty" yaml:"archive_location,omitempty"`
}

// Compliance is descriptive metadata; the engine does not enforce it.
type Compliance struct {
	Regulations     []string `json:"regulations,omitempty" yaml:"regulations,omitempty"`
	LegalBasis      string   `json:"legal_basis,omitempty" yaml:"legal_basis,omitempty"`
	PolicyReference string   `json:"policy_reference,omitempty" yaml:"policy_reference,omitempty"`
}

// Schedule controls when a policy runs.
type Schedule struct {
	Frequency Frequency `json:"frequency" yaml:"frequency"`

	// Time is the local time of day in "HH:MM" form.
	Time string `json:"time" yaml:"time"`

	// DayOfWeek is 0 (Sunday) through 6, used by weekly schedules.
	DayOfWeek *int `json:"day_of_week,omitempty" yaml:"day_of_week,omitempty"`

	// DayOfMonth is 1 through 31, used by monthly schedules.
	DayOfMonth *int `json:"day_of_month,omitempty" yaml:"day_of_month,omitempty"`

	// Timezone is an IANA zone name. Empty means UTC.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	LastRun *time.Time `json:"last_run,omitempty" yaml:"-"`
	NextRun *time.Time `json:"next_run,omitempty" yaml:"-"`
}

// LegalHold is a compliance directive that suspends disposition.
type LegalHold struct {
	IsActive      bool       `json:"is_active"`
	HoldID        string     `json:"hold_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	CaseReference string     `json:"case_reference,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	AppliedBy     string     `json:"applied_by,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ReleasedBy    string     `json:"released_by,omitempty"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
}

// Expired reports whether an active hold has passed its expiry.
func (h LegalHold) Expired(now time.Time) bool {
	return h.IsActive && h.ExpiresAt != nil && !now.Before(*h.ExpiresAt)
}

// ExecutionRecord is the recorded outcome of one execution of a policy.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	PolicyID    string          `json:"policy_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Trigger     Trigger         `json:"trigger"`
	DryRun      bool            `json:"dry_run"`
	Forced      bool            `json:"forced"`

	RecordsProcessed int64 `json:"records_processed"`
	RecordsDeleted   int64 `json:"records_deleted"`
	RecordsArchived  int64 `json:"records_archived"`
	RecordsFailed    int64 `json:"records_failed"`

	// DataVolume is the number of bytes disposed of.
	DataVolume int64 `json:"data_volume"`

	Error string `json:"error,omitempty"`
}

// Completed reports whether the record has reached a terminal status.
func (r *ExecutionRecord) Completed() bool {
	return r.CompletedAt != nil
}

// PendingRecord is an approval gate entry.
type PendingRecord struct {
	ID          string         `json:"id"`
	Status      ApprovalStatus `json:"status"`
	RecordCount int64          `json:"record_count"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Approver    string         `json:"approver,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	ConsumedAt  *time.Time     `json:"consumed_at,omitempty"`
}

// Statistics are cumulative counters derived from the execution ledger.
type Statistics struct {
	TotalExecutions       int64      `json:"total_executions"`
	DryRunExecutions      int64      `json:"dry_run_executions"`
	TotalRecordsProcessed int64      `json:"total_records_processed"`
	TotalRecordsDeleted   int64      `json:"total_records_deleted"`
	TotalRecordsArchived  int64      `json:"total_records_archived"`
	TotalRecordsFailed    int64      `json:"total_records_failed"`
	TotalDataVolume       int64      `json:"total_data_volume"`
	LastExecutionAt       *time.Time `json:"last_execution_at,omitempty"`
}

// Filter narrows a policy listing.
type Filter struct {
	OwnerID string
	Status  Status
}
