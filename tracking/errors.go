package tracking

import (
	"errors"
	"fmt"

	"parttracker/store"
)

var (
	ErrNotFound     = store.ErrNotFound
	ErrDuplicateKey = store.ErrDuplicateKey

	ErrDuplicateName    = errors.New("name already exists")
	ErrEmptyRoute       = errors.New("route template has no stages")
	ErrInUse            = errors.New("still in use")
	ErrNoRouteAssigned  = errors.New("part has no route template")
	ErrInvalidStage     = errors.New("stage is not part of the route")
	ErrAlreadyCompleted = errors.New("stage already completed")
	ErrNoDefaultRoute   = errors.New("no default route template")
	ErrPermission       = errors.New("permission denied")
	ErrBadCredentials   = errors.New("invalid username or password")
)

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an unexpected failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": storage: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

var domainErrors = []error{
	ErrNotFound, ErrDuplicateKey, ErrDuplicateName, ErrEmptyRoute, ErrInUse,
	ErrNoRouteAssigned, ErrInvalidStage, ErrAlreadyCompleted, ErrNoDefaultRoute, ErrPermission,
	ErrBadCredentials,
}

// wrapErr prefixes domain errors with op and wraps anything else in a StorageError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StorageError
	switch {
	case errors.As(err, &ve), errors.As(err, &se):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, store.ErrConstraint):
		return fmt.Errorf("%s: %w", op, ErrInUse)
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return &StorageError{Op: op, Err: err}
}

// Kind classifies err for callers that map failures onto a transport.
// It returns "validation", "conflict", "not_found", "unauthorized", "forbidden"
// or "storage".
func Kind(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve),
		errors.Is(err, ErrEmptyRoute),
		errors.Is(err, ErrInvalidStage),
		errors.Is(err, ErrNoRouteAssigned),
		errors.Is(err, ErrNoDefaultRoute):
		return "validation"
	case errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrDuplicateKey),
		errors.Is(err, ErrInUse),
		errors.Is(err, ErrAlreadyCompleted):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBadCredentials):
		return "unauthorized"
	case errors.Is(err, ErrPermission):
		return "forbidden"
	}
	return "storage"
}
