// Package browser binds each browser to its own session. A signed cookie
// names the browser; the registry keeps one session store and auth
// controller per name.
package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the signed browser id.
const CookieName = "finlog_client"

// ErrInvalidCookie is returned for a cookie that is forged, expired or
// malformed.
var ErrInvalidCookie = errors.New("invalid client cookie")

// Signer issues and verifies browser id cookies.
type Signer struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. Cookies stay valid for maxAge after issue.
func NewSigner(secret []byte, maxAge time.Duration) *Signer {
	return &Signer{key: secret, maxAge: maxAge, now: time.Now}
}

// MaxAge returns how long an issued cookie stays valid.
func (s *Signer) MaxAge() time.Duration { return s.maxAge }

// Sign returns the cookie value for id.
func (s *Signer) Sign(id string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	})
	return tok.SignedString(s.key)
}

// Verify returns the browser id in value and when the cookie was issued.
func (s *Signer) Verify(value string) (string, time.Time, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: subject: %v", ErrInvalidCookie, err)
	}

	var issued time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return claims.Subject, issued, nil
}
