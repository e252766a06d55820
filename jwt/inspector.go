package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be parsed at all.
var ErrMalformed = errors.New("jwt: malformed token")

// TokenInfo is the subset of access-token claims the client cares about.
// It is advisory only: the claims are read without signature verification.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspector reads claims out of access tokens.
type Inspector struct {
	parser *jwt.Parser
}

// NewInspector returns a ready Inspector.
func NewInspector() *Inspector {
	return &Inspector{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

// Inspect parses tokenStr without verifying its signature.
func (i *Inspector) Inspect(tokenStr string) (TokenInfo, error) {
	if i == nil || tokenStr == "" {
		return TokenInfo{}, ErrMalformed
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(tokenStr, &claims); err != nil {
		return TokenInfo{}, ErrMalformed
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// ExpiresWithin reports whether the token expires inside the given window
// (or already has). Tokens without an exp claim, and tokens that cannot be
// parsed, report false: the caller falls back to reactive 401 handling.
func (i *Inspector) ExpiresWithin(tokenStr string, window time.Duration) bool {
	info, err := i.Inspect(tokenStr)
	if err != nil || info.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(window).After(info.ExpiresAt)
}
