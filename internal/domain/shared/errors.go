// Package shared contains common domain types, errors and value objects
// that are used across all domain packages. This package has no third-party dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Every domain error wraps exactly one of them so callers
// can classify failures with errors.Is().
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict marks a request that contradicts current state
	// (duplicate enrollment, exhausted check-in quota).
	ErrConflict = errors.New("conflict")

	// ErrDispatchFailure marks a notification that could not be delivered.
	// It only ever occurs inside the worker, after the mutation committed.
	ErrDispatchFailure = errors.New("dispatch failure")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "enrollment", "checkin", "help_order"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error kind for errors.Is() checking
	Message string // Human-readable message, safe to return to clients
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation builds a validation error with a client-facing reason.
func Validation(domain, op, reason string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, reason)
}

// Shared reference errors. Enrollment, check-in and help order operations all
// resolve students (and enrollments resolve plans) before mutating anything.
var (
	ErrStudentNotFound    = NewDomainError("student", "Find", ErrNotFound, "Student does not exist")
	ErrPlanNotFound       = NewDomainError("plan", "Find", ErrNotFound, "Plan does not exist")
	ErrEnrollmentNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "Enrollment does not exist")
	ErrHelpOrderNotFound  = NewDomainError("help_order", "Find", ErrNotFound, "Help order does not exist")
	ErrEnrollmentExists   = NewDomainError("enrollment", "Create", ErrConflict, "Enrollment already exists")
)

// Message extracts the client-facing message of a domain error, falling back
// to err.Error() for anything else.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDispatchFailure checks if the error is a notification dispatch failure.
func IsDispatchFailure(err error) bool {
	return errors.Is(err, ErrDispatchFailure)
}
