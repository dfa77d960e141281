package domain

import (
	"fmt"
	"time"
)

// ValidationError reports malformed or out-of-range input. It is always
// surfaced to the caller and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NewNotFoundError creates a NotFoundError for the named resource.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ForbiddenError reports a request the caller is not allowed to make:
// inactive or revoked tracker, disallowed origin, insufficient access
// rights, or an exhausted quota.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbiddenError creates a ForbiddenError with a formatted message.
func NewForbiddenError(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// RateLimitError reports an exhausted collection budget. ResetAt tells the
// caller when the current window ends so it can back off.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

// NewRateLimitError creates a RateLimitError that resets at the given time.
func NewRateLimitError(resetAt time.Time) *RateLimitError {
	return &RateLimitError{ResetAt: resetAt}
}

// ConflictError reports a duplicate unique key.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a ConflictError with a formatted message.
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
