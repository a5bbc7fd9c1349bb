// Package apperr defines the error kinds the order core raises and their
// mapping to HTTP status codes at the transport boundary.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound: a referenced order, product or restaurant does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed input (empty line list, non-positive quantity,
	// unavailable product, cross-restaurant line mix).
	ErrValidation = errors.New("invalid input")

	// ErrTransaction: a multi-step write failed and was rolled back.
	ErrTransaction = errors.New("transaction failed")

	// ErrStateConflict: mutation attempted on an order whose lifecycle state
	// does not allow it (edit/delete of a non-pending order, repeated or
	// out-of-order status transition).
	ErrStateConflict = errors.New("order state conflict")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrStateConflict):
		return "state_conflict"

	case errors.Is(err, ErrTransaction):
		return "transaction"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrStateConflict):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
