// Package apperr defines the error kinds surfaced by the ranking core.
//
// Callers match kinds with errors.Is; every kind is wrapped with context by the
// layer that produced it.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound: account or picture missing, or picture tombstoned.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a concurrent mutation invalidated the write. Retry once with fresh state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput: unknown polarity, non-positive page size, malformed id.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable: the store timed out or could not be reached.
	ErrUnavailable = errors.New("unavailable")
)

// Postgres SQLSTATE codes that mean a concurrent writer won.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// Invalid returns an ErrInvalidInput carrying msg.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// FromStore classifies an error returned by the store. Errors that already
// carry a kind are returned unchanged.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	if IsKind(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return err
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsKind reports whether err already wraps one of the package kinds.
func IsKind(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnavailable)
}

// Kind returns a short name for the kind err carries, or "" when it carries none.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	return ""
}
