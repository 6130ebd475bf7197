// Package classify maps downstream collaborator failures into a bounded
// taxonomy consumed by the process executor and surfaced to operators.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind is the bounded classification of a downstream failure. It tells an
// operator whether a retrigger is worthwhile without re-running the step.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"     // Referenced entity vanished; needs a data fix first
	KindConflict     ErrorKind = "Conflict"     // Business precondition violated downstream
	KindConnectivity ErrorKind = "Connectivity" // DNS/socket failure; retriggerable
	KindTimeout      ErrorKind = "Timeout"      // Downstream did not respond in time; retriggerable
	KindGeneric      ErrorKind = "Generic"      // Non-2xx response from a collaborator; retriggerable
)

// Error is returned by collaborator clients when a call fails with an HTTP
// status. Message is the operator-facing text stored on the failed step.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a collaborator error for a non-2xx response.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Classify maps a step handler failure to its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnectivity
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnectivity
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindConnectivity
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		switch svcErr.Status {
		case 404:
			return KindNotFound
		case 409:
			return KindConflict
		default:
			return KindGeneric
		}
	}

	return KindGeneric
}

// Message renders the operator-facing text persisted as a failed step's
// message. Collaborator errors carry their own text; anything else is
// prefixed with its kind.
func Message(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}

	return fmt.Sprintf("%s: %v", Classify(err), err)
}
