package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("order 42: %w", ErrNotFound)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not_found", err: ErrNotFound, want: "not_found"},
		{name: "not_found_wrapped", err: wrapped, want: "not_found"},
		{name: "validation", err: ErrValidation, want: "validation"},
		{name: "state_conflict", err: ErrStateConflict, want: "state_conflict"},
		{name: "transaction", err: ErrTransaction, want: "transaction"},
		{name: "unknown", err: errors.New("boom"), want: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("update: %w", ErrStateConflict)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "not_found", err: ErrNotFound, want: http.StatusNotFound},
		{name: "validation", err: ErrValidation, want: http.StatusUnprocessableEntity},
		{name: "state_conflict", err: ErrStateConflict, want: http.StatusConflict},
		{name: "state_conflict_wrapped", err: wrapped, want: http.StatusConflict},
		{name: "transaction", err: ErrTransaction, want: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
