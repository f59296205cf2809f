// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Every failure returned by the ledger wraps exactly one.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)

// Conflicts that are distinct from the idempotent no-op paths.
var (
	ErrAlreadyRepaid = fmt.Errorf("%w: funded loan already repaid", ErrConflict)
	ErrAlreadyExists = fmt.Errorf("%w: resource already exists", ErrConflict)
	ErrLoanDefaulted = fmt.Errorf("%w: loan request is defaulted", ErrConflict)
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// Invalid builds a validation error with a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound builds a not-found error naming the missing entity.
func NotFound(entity, key string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, key)
}

// Storage wraps a driver failure. The driver error stays in the chain.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Kind returns the short name of err's kind, used in transport responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "internal_error"
	}
}

// Retryable reports whether repeating the whole operation may succeed.
func Retryable(err error) bool {
	switch Kind(err) {
	case "storage_error", "internal_error":
		return true
	default:
		return false
	}
}
