// Package domainerrors defines the typed error values used across the engine.
//
// Business failures are ordinary values with a stable code so callers must
// branch on them explicitly; panics are reserved for unrecoverable conditions
// such as storage being unavailable. Gating failures additionally carry the
// human-readable list of unmet requirements so transports can surface it
// without re-deriving it.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"

	// Fund lifecycle codes.
	CodeInvalidTransition      Code = "invalid_transition"
	CodeChecklistIncomplete    Code = "checklist_incomplete"
	CodeAlreadyReleased        Code = "already_released"
	CodeAlreadyBlocked         Code = "already_blocked"
	CodeConcurrentModification Code = "concurrent_modification"
)

// DomainError is the concrete error type carried across package boundaries.
// Details holds human-readable gating failures (missing checklist items,
// active blockers) and is never silently dropped by transports.
type DomainError struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a domain code and message.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// WithDetails attaches the unmet-requirements list and returns the error.
func (e *DomainError) WithDetails(details ...string) *DomainError {
	e.Details = append(e.Details, details...)
	return e
}

// HasCode reports whether err carries the given domain code anywhere in its
// chain.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// Details extracts the unmet-requirements list from err, if any.
func Details(err error) []string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}

// ToHTTPStatus maps a domain code to its HTTP status. Validation and gating
// failures are 400; terminal-state and role violations are 403; idempotency
// and lock conflicts are 409.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidTransition, CodeChecklistIncomplete:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyReleased, CodeAlreadyBlocked, CodeConcurrentModification:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
