package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Stable error codes, one per error kind.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeForbidden         = "FORBIDDEN"
)

// ValidationError reports a malformed field of a single request.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Code() string { return CodeValidation }

type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// ConflictError is returned when an order with the same id already exists.
type ConflictError struct {
	ID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s already exists", e.ID)
}

func (e *ConflictError) Code() string { return CodeConflict }

// ConcurrentUpdateError is returned by a conditional update when the order
// left the expected status between the read and the write.
type ConcurrentUpdateError struct {
	ID uuid.UUID
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("order %s was modified concurrently", e.ID)
}

func (e *ConcurrentUpdateError) Code() string { return CodeConflict }

// ForbiddenError is returned when the authorized user may not act on an order
// of another customer.
type ForbiddenError struct {
	UserID uuid.UUID
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s", e.UserID, e.Action)
}

func (e *ForbiddenError) Code() string { return CodeForbidden }

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// StoreUnavailableError wraps a transient infrastructure failure. Callers may
// retry; the service never does.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("order store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Code() string { return CodeStoreUnavailable }

// Coded is implemented by every error of the domain taxonomy.
type Coded interface {
	error
	Code() string
}

// ErrorCode returns the code of the first taxonomy error in err's chain.
func ErrorCode(err error) (string, bool) {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code(), true
	}
	return "", false
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	var unavailable *StoreUnavailableError
	return errors.As(err, &unavailable)
}
