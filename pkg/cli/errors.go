package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by the custodian binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	// ExitRefused is returned when the engine refused an operation for a
	// business reason, e.g. a legal hold or a missing approval.
	ExitRefused = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RefusedError reports an operation the engine declined. The result itself
// has already been printed; the error only carries the exit status.
type RefusedError struct {
	Operation string
	Reason    string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Operation, e.Reason)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NewRefusedError creates a new RefusedError.
func NewRefusedError(operation, reason string) *RefusedError {
	return &RefusedError{Operation: operation, Reason: reason}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var refused *RefusedError
	if errors.As(err, &refused) {
		return ExitRefused
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailure
}
