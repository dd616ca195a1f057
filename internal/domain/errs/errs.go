package errs

import (
	"errors"
	"strings"
)

var (
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrInsufficientSubsidy = errors.New("insufficient subsidy balance")
	ErrConcurrentUpdate    = errors.New("concurrent update: retries exhausted")
	ErrLoanNotActive       = errors.New("loan is not active")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrPlanInactive        = errors.New("loan plan is inactive")

	// ErrVersionConflict is raised by a version-guarded write that matched no
	// row. Use cases retry the whole transaction and surface ErrConcurrentUpdate
	// once the retry budget is spent.
	ErrVersionConflict = errors.New("row version conflict")
)

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports input that failed shape or range checks before any write.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+" "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a violation and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
	return e
}

// OrNil returns nil when nothing was recorded, so callers can write `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

func Invalid(field, message string) error {
	return (&ValidationError{}).Add(field, message)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetryable reports whether the caller may safely repeat the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) || errors.Is(err, ErrVersionConflict)
}
