package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestFromStore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan picture: %w", pgx.ErrNoRows), ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"serialization", &pgconn.PgError{Code: "40001"}, ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrConflict},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrNotFound},
		{"already classified", fmt.Errorf("vote: %w", ErrInvalidInput), ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromStore(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("FromStore(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFromStore_Nil(t *testing.T) {
	if err := FromStore(nil); err != nil {
		t.Errorf("FromStore(nil) = %v, want nil", err)
	}
}

func TestFromStore_UnknownPassesThrough(t *testing.T) {
	base := errors.New("boom")
	got := FromStore(base)
	if got != base {
		t.Errorf("FromStore(boom) = %v, want the original error", got)
	}
	if IsKind(got) {
		t.Error("unknown error must not be classified")
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("page size must be positive, got %d", 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Invalid() = %v, want ErrInvalidInput", err)
	}
	if err.Error() != "invalid input: page size must be positive, got 0" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("picture: %w", ErrNotFound), "not_found"},
		{Invalid("page size %d", 0), "invalid_input"},
		{FromStore(&pgconn.PgError{Code: "40001"}), "conflict"},
		{FromStore(context.DeadlineExceeded), "unavailable"},
		{errors.New("boom"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
