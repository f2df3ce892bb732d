package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"not found", &NotFoundError{Message: "board b1 not found"}, ErrNotFound, http.StatusNotFound},
		{"validation", &ValidationError{Message: "name required"}, ErrValidation, http.StatusBadRequest},
		{"unauthorized", &UnauthorizedError{Message: "token expired"}, ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", &ForbiddenError{Message: "not a member"}, ErrForbidden, http.StatusForbidden},
		{"conflict", &ConflictError{Message: "already linked"}, ErrConflict, http.StatusConflict},
		{"transient", &TransientError{Message: "store unavailable"}, ErrTransient, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%T, sentinel) = false, want true", tc.err)
			}
			// Wrapping must not break sentinel matching.
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Errorf("errors.Is(wrapped %T, sentinel) = false, want true", tc.err)
			}
			var httpErr HTTPError
			if !errors.As(tc.err, &httpErr) {
				t.Fatalf("%T does not implement HTTPError", tc.err)
			}
			if httpErr.StatusCode() != tc.status {
				t.Errorf("status = %d, want %d", httpErr.StatusCode(), tc.status)
			}
		})
	}
}

func TestTypedErrorsDoNotCrossMatch(t *testing.T) {
	if errors.Is(&ForbiddenError{Message: "nope"}, ErrNotFound) {
		t.Error("forbidden matched the not-found sentinel")
	}
	if errors.Is(&NotFoundError{Message: "gone"}, ErrForbidden) {
		t.Error("not-found matched the forbidden sentinel")
	}
}
