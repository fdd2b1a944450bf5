package engine

import (
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Result is the outcome of an operation that can be refused for business
// reasons. Refusals (a legal hold, a missing approval, an unlisted
// approver) are reported with Success false and a Message, never as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// LegalHold names the hold that blocked or was changed by the operation.
	LegalHold string `json:"legal_hold,omitempty"`

	// Execution is the record written by the operation, if any.
	Execution *retention.ExecutionRecord `json:"execution,omitempty"`

	// Policy is the policy state after the operation.
	Policy *retention.Policy `json:"policy,omitempty"`
}

// ExecuteOptions modify a single execution.
type ExecuteOptions struct {
	// Force makes the execution dispose of records even when auto
	// disposal is off. It never bypasses a legal hold or an approval gate.
	Force bool
}

// HoldRequest describes a legal hold to apply.
type HoldRequest struct {
	Name          string     `json:"name"`
	CaseReference string     `json:"case_reference,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	AppliedBy     string     `json:"applied_by"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ReleaseOptions modify a legal hold release.
type ReleaseOptions struct {
	// Reactivate returns the policy to active. Nil means true.
	Reactivate *bool

	ReleasedBy string
}

func (o ReleaseOptions) reactivate() bool {
	return o.Reactivate == nil || *o.Reactivate
}

// ApprovalRequest approves the pending disposition of a policy.
type ApprovalRequest struct {
	Approver string `json:"approver"`
	Notes    string `json:"notes,omitempty"`

	// ExecuteNow runs the approved disposition immediately.
	ExecuteNow bool `json:"execute_now"`
}

// PendingDisposition is a policy waiting at the approval gate.
type PendingDisposition struct {
	PolicyID    string           `json:"policy_id"`
	PolicyName  string           `json:"policy_name"`
	OwnerID     string           `json:"owner_id"`
	Action      retention.Action `json:"action"`
	RecordCount int64            `json:"record_count"`

	// DueDate is the due date of the oldest due record.
	DueDate   *time.Time `json:"due_date,omitempty"`
	Approvers []string   `json:"approvers,omitempty"`

	// Approved is true when an approval is waiting to be consumed.
	Approved bool `json:"approved"`
}

// TickResult is the outcome of one policy in a scheduler tick.
type TickResult struct {
	PolicyID string `json:"policy_id"`
	Success  bool   `json:"success"`

	// Skipped is set when the policy was no longer due once its lock was
	// acquired, typically because an overlapping tick already ran it.
	Skipped bool `json:"skipped,omitempty"`

	DryRun           bool   `json:"dry_run"`
	RecordsProcessed int64  `json:"records_processed"`
	Error            string `json:"error,omitempty"`
}
