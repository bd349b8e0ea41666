// Package auth implements the bearer-token side of the application: issuing
// and verifying signed access tokens, and the middleware that turns an
// Authorization header into an authenticated principal on the request
// context.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/config"
)

const tokenIssuer = "board"

// TokenService issues and verifies stateless HS256 access tokens. A token
// carries the username as its subject and an expiry; there is no per-token
// server-side record and therefore no revocation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AccessTokenDuration,
	}
}

// Issue produces a signed token with subject username, issued now and
// expiring after the configured duration.
func (s *TokenService) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

// Verify validates the signature and expiry of tokenString and returns its
// subject. Any failure (bad signature, expiry, malformed input) surfaces as
// an AuthError.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", apperror.NewAuthError("invalid token", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", apperror.NewAuthError("invalid token", nil)
	}
	return claims.Subject, nil
}
