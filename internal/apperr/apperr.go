// Package apperr defines the error kinds shared by the domain packages and
// the data-store backends.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrValidation marks input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced client, product or visit that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDataSource marks a failed store call (network, constraint, malformed row).
	ErrDataSource = errors.New("data source failure")
	// ErrConflict marks a write rejected by a uniqueness constraint.
	// Conflicts also match ErrDataSource.
	ErrConflict = errors.New("conflict")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation returns a validation error for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for the given record kind and id.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d %w", kind, id, ErrNotFound)
}

// sourceError wraps a store failure so that it matches ErrDataSource
// (and ErrConflict when conflict is set) while keeping the cause reachable.
type sourceError struct {
	op       string
	cause    error
	conflict bool
}

func (e *sourceError) Error() string {
	if e.cause == nil {
		return e.op
	}
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *sourceError) Unwrap() error { return e.cause }

func (e *sourceError) Is(target error) bool {
	if target == ErrDataSource {
		return true
	}
	return e.conflict && target == ErrConflict
}

// DataSource wraps cause as a data-source failure of op.
// Errors that already carry a kind are returned wrapped but unchanged in kind.
func DataSource(op string, cause error) error {
	if IsKnown(cause) {
		return fmt.Errorf("%s: %w", op, cause)
	}
	return &sourceError{op: op, cause: cause}
}

// Conflict wraps cause as a uniqueness conflict of op.
func Conflict(op string, cause error) error {
	return &sourceError{op: op, cause: cause, conflict: true}
}

// IsKnown reports whether err already carries one of the error kinds.
func IsKnown(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDataSource)
}

// Kind returns a short name for the kind of err: validation, not_found,
// conflict, data_source, or unknown.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrDataSource):
		return "data_source"
	default:
		return "unknown"
	}
}
