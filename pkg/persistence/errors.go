// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrProcessNotFound indicates a process was not found by the given identifier.
	ErrProcessNotFound = errors.New("process not found")

	// ErrStepNotFound indicates no step of the requested type exists for the process.
	ErrStepNotFound = errors.New("process step not found")

	// ErrStepNotRetriggerable indicates the step exists but is not in FAILED or SKIPPED status.
	ErrStepNotRetriggerable = errors.New("process step is not in a retriggerable status")

	// ErrSubscriptionNotFound indicates an offer subscription was not found.
	ErrSubscriptionNotFound = errors.New("offer subscription not found")

	// ErrApplicationNotFound indicates a company application was not found.
	ErrApplicationNotFound = errors.New("company application not found")

	// ErrIdentityProviderNotFound indicates an identity provider was not found.
	ErrIdentityProviderNotFound = errors.New("identity provider not found")
)

// ProcessError wraps process-related errors with additional context.
type ProcessError struct {
	Op        string // Operation being performed (e.g., "EnqueueStep", "FinalizeStep")
	ProcessID string
	StepID    string
	Err       error
}

func (e *ProcessError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s operation failed for step %s of process %s: %v", e.Op, e.StepID, e.ProcessID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for process %s: %v", e.Op, e.ProcessID, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewProcessError creates a new process error with context.
func NewProcessError(op, processID string, err error) *ProcessError {
	return &ProcessError{
		Op:        op,
		ProcessID: processID,
		Err:       err,
	}
}

// IsProcessNotFound checks if an error indicates a process was not found.
func IsProcessNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound)
}

// IsStepNotFound checks if an error indicates a step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsStepNotRetriggerable checks if an error indicates a step cannot be re-armed.
func IsStepNotRetriggerable(err error) bool {
	return errors.Is(err, ErrStepNotRetriggerable)
}

// IsEntityNotFound checks if an error indicates any attached business entity
// was not found.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrApplicationNotFound) ||
		errors.Is(err, ErrIdentityProviderNotFound)
}
