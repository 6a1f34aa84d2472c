package jwtx

import (
	"time"

	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Access and refresh tokens differ only by TTL.
const (
	DefaultAccessTokenTTL  = 60 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour

	// TemporaryTokenTTL bounds the window between a password login and the
	// second-factor step.
	TemporaryTokenTTL = 5 * time.Minute
)

// Claims is the claim set carried by every token the service issues.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the numeric id of the authenticated user.
	UserID int64 `json:"user_id"`

	// Role is "user" or "admin".
	Role string `json:"role,omitempty"`

	// TempAuth marks a temporary token that may only be exchanged for a
	// full token pair by completing the second factor.
	TempAuth bool `json:"temp_auth,omitempty"`
}

// NewClaims builds the base claim set for a user. Timing fields and jti are
// left for Stamp.
func NewClaims(subject string, userID int64, role string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		UserID:           userID,
		Role:             role,
	}
}

// Stamp returns a copy of c with a fresh jti and iat/nbf/exp computed from
// now and ttl. Any timing fields already present are discarded.
func (c Claims) Stamp(issuer string, ttl time.Duration, now time.Time) Claims {
	out := c
	out.Issuer = issuer
	out.ID = NewJTI()
	out.IssuedAt = jwt.NewNumericDate(now)
	out.NotBefore = jwt.NewNumericDate(now)
	out.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return out
}

// Base strips the per-issuance fields (exp, iat, nbf, jti, iss) and the
// temporary marker, leaving the identity claims.
func (c Claims) Base() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  c.Subject,
			Audience: c.Audience,
		},
		UserID: c.UserID,
		Role:   c.Role,
	}
}

// NewJTI returns a fresh ULID for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf
// at the given instant.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ExpiresIn is the remaining lifetime at now, never negative.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
