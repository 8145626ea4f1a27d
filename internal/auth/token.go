package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token has no exp claim")

// tokenExpiry reads the exp claim without verifying the signature. The
// server verifies tokens; the client only needs to know whether a cached
// one is worth keeping.
func tokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
