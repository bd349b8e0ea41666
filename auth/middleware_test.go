package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/board-go/apperror"
)

type fakePrincipalSource struct {
	principals map[string]*Principal
}

func (f *fakePrincipalSource) PrincipalByUsername(_ context.Context, username string) (*Principal, error) {
	p, ok := f.principals[username]
	if !ok {
		return nil, apperror.NewNotFoundError("user not found", nil)
	}
	return p, nil
}

func newGate(t *testing.T) (*TokenService, func(http.Handler) http.Handler) {
	t.Helper()
	tokens := newTestTokenService(time.Hour)
	source := &fakePrincipalSource{principals: map[string]*Principal{
		"alice": {ID: 1, Username: "alice"},
	}}
	return tokens, Middleware(tokens, source)
}

// capture records whether the inner handler ran and what principal it saw.
func capture(ran *bool, principal **Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ran = true
		if p, ok := PrincipalFrom(r.Context()); ok {
			*principal = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareNoHeaderPassesThrough(t *testing.T) {
	_, gate := newGate(t)

	var ran bool
	var p *Principal
	rec := httptest.NewRecorder()
	gate(capture(&ran, &p)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !ran {
		t.Fatalf("handler should run for requests without a token")
	}
	if p != nil {
		t.Fatalf("no principal should be attached without a token")
	}
}

func TestMiddlewareBadToken(t *testing.T) {
	_, gate := newGate(t)

	var ran bool
	var p *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	gate(capture(&ran, &p)).ServeHTTP(rec, req)

	if ran {
		t.Fatalf("handler should not run for a bad token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareNotBearer(t *testing.T) {
	_, gate := newGate(t)

	var ran bool
	var p *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	gate(capture(&ran, &p)).ServeHTTP(rec, req)

	if ran {
		t.Fatalf("handler should not run for a non-bearer header")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareVanishedAccount(t *testing.T) {
	tokens, gate := newGate(t)

	// A valid token whose account no longer resolves.
	token, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var ran bool
	var p *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	gate(capture(&ran, &p)).ServeHTTP(rec, req)

	if ran {
		t.Fatalf("handler should not run for a vanished account")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	tokens, gate := newGate(t)

	token, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var ran bool
	var p *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	gate(capture(&ran, &p)).ServeHTTP(rec, req)

	if !ran {
		t.Fatalf("handler should run for a valid token")
	}
	if p == nil || p.ID != 1 || p.Username != "alice" {
		t.Fatalf("principal = %+v, want alice (id 1)", p)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuth(t *testing.T) {
	var ran bool
	var p *Principal
	handler := RequireAuth(capture(&ran, &p))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if ran {
		t.Fatalf("handler should not run without a principal")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{ID: 1, Username: "alice"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !ran {
		t.Fatalf("handler should run with a principal")
	}
}
