// Package exception provides the error types used by surfin-migrate.
//
// Two kinds of failure exist. Infrastructure failures (storage, database, config) are
// reported as *MigrationError. Unrecoverable outcomes of a CRUD batch against a target are
// reported as *CommandExecutionError, which names the object and operation and is meant
// to be surfaced to the orchestrator exactly once. Data quality problems are never errors;
// they are collected as model.CSVIssue values.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrCommandExecution is the sentinel wrapped by every CommandExecutionError.
var ErrCommandExecution = errors.New("command execution failed")

// ErrEmptyBatchResult is wrapped when the bulk executor returned no result at all.
var ErrEmptyBatchResult = errors.New("bulk executor returned no result")

// MigrationError is an error raised by an infrastructure module.
// It holds the module where the error occurred, a message, the wrapped original error,
// and whether the caller may retry the operation.
type MigrationError struct {
	// Module indicates where the error occurred (e.g., "cache", "csvfile", "sqlapi", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether a caller-side retry policy may retry the operation.
	isRetryable bool
	// StackTrace is the stack at construction time (for debugging).
	StackTrace string
}

// NewMigrationError creates a new MigrationError.
func NewMigrationError(module, message string, originalErr error, isRetryable bool) *MigrationError {
	return &MigrationError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

// NewMigrationErrorf creates a new MigrationError using a format string.
// Optional trailing arguments are extracted from the end of 'a' in the order
// [isRetryable bool], [originalErr error]; the rest are passed to fmt.Sprintf.
//
// Example:
//
//	NewMigrationErrorf("csvfile", "failed to read %s", file, true, err)
//	-> message "failed to read Account.csv", retryable, wraps err
func NewMigrationErrorf(module, format string, a ...interface{}) *MigrationError {
	var originalErr error
	isRetryable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}

	return &MigrationError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *MigrationError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *MigrationError) IsRetryable() bool {
	return e.isRetryable
}

// CommandExecutionError is the fatal outcome of a CRUD operation for one object.
// No retry happens inside the engine once it is raised.
type CommandExecutionError struct {
	// Object is the migrated object type (e.g., "Account").
	Object string
	// Operation is the CRUD operation that failed (e.g., "Delete", "Upsert").
	Operation string
	// Cause is the underlying reason, if any.
	Cause error
}

// NewCommandExecutionError creates a CommandExecutionError.
func NewCommandExecutionError(object, operation string, cause error) *CommandExecutionError {
	return &CommandExecutionError{Object: object, Operation: operation, Cause: cause}
}

// Error implements the error interface.
func (e *CommandExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s operation failed: %v", e.Object, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s] %s operation failed", e.Object, e.Operation)
}

// Unwrap exposes both the sentinel and the cause.
func (e *CommandExecutionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCommandExecution, e.Cause}
	}
	return []error{ErrCommandExecution}
}

// IsCommandExecutionError reports whether err carries a CommandExecutionError.
func IsCommandExecutionError(err error) bool {
	return errors.Is(err, ErrCommandExecution)
}

// IsTemporary determines if an error is likely transient.
// A MigrationError's own flag takes precedence over message inspection.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var me *MigrationError
	if errors.As(err, &me) {
		return me.IsRetryable()
	}
	if IsCommandExecutionError(err) {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// ExtractErrorMessage returns the cleaner Message of a MigrationError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
