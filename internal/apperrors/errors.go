package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidState indicates a programmer error such as committing a unit of
// work twice or rolling back after a successful commit.
var ErrInvalidState = errors.New("invalid state")

// ErrDelivery indicates a transient broker or network failure. It is retried
// with a bounded count inside the outbox/inbox loops and never propagates to
// business-logic callers.
var ErrDelivery = errors.New("delivery error")

// AppError wraps an underlying error with a status code and message suitable
// for translation at the API boundary.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
