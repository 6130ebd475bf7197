// Package services implements the business operations behind the HTTP API:
// starting processes, synchronous activation and the retrigger gateway.
package services

import (
	"errors"
	"fmt"

	"github.com/venohr/stepflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// ErrForbidden is returned when the caller may not perform the operation (403).
	ErrForbidden = errors.New("forbidden")

	// Not-found sentinels re-exported for the web boundary (404).
	ErrProcessNotFound      = persistence.ErrProcessNotFound
	ErrStepNotFound         = persistence.ErrStepNotFound
	ErrSubscriptionNotFound = persistence.ErrSubscriptionNotFound
	ErrEntityNotFound       = errors.New("entity not found")
)

// ConflictError reports a business precondition violated by the current state
// of the named parameter (409 Conflict).
type ConflictError struct {
	Parameter string
	Message   string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("conflict on %s: %s", e.Parameter, e.Message)
	}

	return "conflict on " + e.Parameter
}

// ControllerArgumentError reports an unusable caller-supplied argument
// (400 Bad Request).
type ControllerArgumentError struct {
	Parameter string
	Message   string
}

func (e *ControllerArgumentError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid argument %s: %s", e.Parameter, e.Message)
	}

	return "invalid argument " + e.Parameter
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	var conflict *ConflictError

	return errors.As(err, &conflict)
}

// IsControllerArgumentError checks if an error should map to HTTP 400.
func IsControllerArgumentError(err error) bool {
	var argument *ControllerArgumentError

	return errors.As(err, &argument)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		persistence.IsProcessNotFound(err) ||
		persistence.IsStepNotFound(err) ||
		persistence.IsEntityNotFound(err)
}
