package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/httpx"
)

const bearerPrefix = "Bearer "

// PrincipalSource resolves a token subject to a live account. The user
// service implements it; keeping it an interface here avoids a dependency
// from auth onto the users package.
type PrincipalSource interface {
	PrincipalByUsername(ctx context.Context, username string) (*Principal, error)
}

// Middleware returns the authentication gate. When a request carries a
// bearer token and no principal is attached yet, the token is verified and
// the account resolved; an invalid token or a vanished account fails the
// request with 401. Requests without an Authorization header pass through
// unauthenticated; whether that is acceptable is decided per route by
// RequireAuth.
func Middleware(tokens *TokenService, source PrincipalSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := PrincipalFrom(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				httpx.WriteError(w, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil))
				return
			}

			username, err := tokens.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				httpx.WriteError(w, err)
				return
			}

			principal, err := source.PrincipalByUsername(r.Context(), username)
			if err != nil {
				// The token may outlive its account; a deleted account is an
				// authentication failure, not a 404.
				if apperror.IsNotFound(err) {
					err = apperror.NewAuthError("account no longer exists", err)
				}
				httpx.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects requests that reached it without an authenticated
// principal. Every route except sign-up and authenticate sits behind it.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			httpx.WriteError(w, apperror.NewAuthError("authentication required", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
