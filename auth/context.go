package auth

import (
	"context"
)

// Principal is the authenticated account attached to a request. It is a
// plain value: credential details such as the password hash stay in the user
// store and never travel with the request.
type Principal struct {
	ID       int64
	Username string
}

// contextKey is a private type for context keys so no other package can
// collide with ours.
type contextKey string

const principalContextKey contextKey = "auth_principal"

// WithPrincipal returns a child context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom extracts the authenticated principal from the context. The
// second return value reports whether one was attached.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}
