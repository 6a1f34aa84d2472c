package domain

import (
	"strings"
	"time"
)

// Role is the coarse authorization level carried in tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID               int64
	Email            string
	FirstName        string
	LastName         string
	PasswordHash     string // argon2 encoded
	Role             Role
	IsBlocked        bool
	TwoFactorEnabled bool
	TOTPSecret       *string // base32, nil until enrolment starts
	TOTPLastCounter  *int64  // last accepted TOTP time-step
	LastLoginAt      *time.Time
	LastLoginIP      string
	LastLoginDevice  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ClientInfo identifies where a login came from.
type ClientInfo struct {
	IP     string
	Device string // User-Agent, truncated
}

// HasTOTPSecret reports whether a non-empty secret is stored.
func (u User) HasTOTPSecret() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}

// UserUpdate is a partial update applied in a single statement. Nil fields
// are left unchanged.
type UserUpdate struct {
	FirstName        *string
	LastName         *string
	PasswordHash     *string
	Role             *Role
	IsBlocked        *bool
	TwoFactorEnabled *bool
	TOTPSecret       *string

	// ClearTOTPSecret removes the secret and the replay counter. It wins
	// over TOTPSecret.
	ClearTOTPSecret bool
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.PasswordHash == nil &&
		u.Role == nil && u.IsBlocked == nil && u.TwoFactorEnabled == nil &&
		u.TOTPSecret == nil && !u.ClearTOTPSecret
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
