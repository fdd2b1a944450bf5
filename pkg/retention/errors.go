package retention

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every NotFoundError via errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrExecutionCompleted is returned when a completed execution record
	// would be modified.
	ErrExecutionCompleted = errors.New("execution record already completed")
)

// NotFoundError reports a reference to a policy or execution that does not exist.
type NotFoundError struct {
	Kind string // "policy" or "execution"
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError for a policy.
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{Kind: "policy", ID: id}
}

// FieldError is a validation failure for one policy field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a policy.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "policy validation failed"
	case 1:
		return fmt.Sprintf("policy validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "policy validation failed with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  - %s", err.Error())
	}
	return sb.String()
}

// TransitionError reports a lifecycle transition that is not allowed from
// the policy's current state.
type TransitionError struct {
	PolicyID string
	From     Status
	To       Status
	Reason   string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("policy %s: cannot transition from %s to %s", e.PolicyID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// StorageError represents an error from a repository or data store backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "get", "save", "append_execution", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ExecutionError wraps a failure that prevented an execution from being
// recorded at all, as opposed to a failure recorded on the execution itself.
type ExecutionError struct {
	PolicyID    string
	ExecutionID string
	Cause       error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.ExecutionID != "" {
		return fmt.Sprintf("execution error [policy_id=%s, execution_id=%s]: %v", e.PolicyID, e.ExecutionID, e.Cause)
	}
	return fmt.Sprintf("execution error [policy_id=%s]: %v", e.PolicyID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(policyID, executionID string, cause error) *ExecutionError {
	return &ExecutionError{
		PolicyID:    policyID,
		ExecutionID: executionID,
		Cause:       cause,
	}
}
