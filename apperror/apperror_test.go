package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewNotFoundError("gone", nil), http.StatusNotFound},
		{NewConflictError("taken", nil), http.StatusConflict},
		{NewForbiddenError("not yours", nil), http.StatusForbidden},
		{NewAuthError("bad token", nil), http.StatusUnauthorized},
		{NewBadRequestError("bad input", nil), http.StatusBadRequest},
		{NewValidationError("missing field", nil), http.StatusBadRequest},
		{NewDatabaseError("query failed", nil), http.StatusInternalServerError},
		{NewInternalError("boom", nil), http.StatusInternalServerError},
		{NewConfigError("missing env", nil), http.StatusInternalServerError},
	}
	for i, c := range cases {
		if got := c.err.StatusCode(); got != c.want {
			t.Fatalf("case %d (%q): status = %d, want %d", i, c.err.Message, got, c.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewDatabaseError("query failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestFromError(t *testing.T) {
	app := NewNotFoundError("gone", nil)
	got, ok := FromError(app)
	if !ok || got != app {
		t.Fatalf("FromError should return the same *AppError")
	}
	wrapped := fmt.Errorf("context: %w", app)
	got, ok = FromError(wrapped)
	if !ok || got != app {
		t.Fatalf("FromError should unwrap to the inner *AppError")
	}
	if _, ok := FromError(errors.New("plain")); ok {
		t.Fatalf("FromError should not match a plain error")
	}
	if _, ok := FromError(nil); ok {
		t.Fatalf("FromError should not match nil")
	}
}

func TestTypePredicates(t *testing.T) {
	if !IsNotFound(NewNotFoundError("gone", nil)) {
		t.Fatalf("IsNotFound should match a NotFoundError")
	}
	if IsNotFound(NewConflictError("taken", nil)) {
		t.Fatalf("IsNotFound should not match a ConflictError")
	}
	if !IsConflict(fmt.Errorf("wrapped: %w", NewConflictError("taken", nil))) {
		t.Fatalf("IsConflict should see through wrapping")
	}
	if !IsAuthError(NewAuthError("nope", nil)) {
		t.Fatalf("IsAuthError should match an AuthError")
	}
	if !IsForbidden(NewForbiddenError("nope", nil)) {
		t.Fatalf("IsForbidden should match a ForbiddenError")
	}
	if IsBadRequest(nil) {
		t.Fatalf("predicates should be false for nil")
	}
}
