package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConstraint    = errors.New("store: constraint violation")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and so a
// transaction cannot be started from inside another one.
type Store interface {
	Users() Users
	RevokedTokens() RevokedTokens
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail looks up by normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts u and returns it with ID and timestamps assigned.
	// A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateUser applies upd in one statement and returns the new row.
	// Writes that would enable 2FA without a secret yield ErrConstraint.
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error)

	// ConsumeTOTPCounter records counter as the last accepted TOTP step when
	// it is newer than the stored one. It returns false when the step was
	// already used.
	ConsumeTOTPCounter(ctx context.Context, id int64, counter int64) (bool, error)

	// ListUsers pages through users ordered by id.
	ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error)

	// DeleteUser removes the user row, including any TOTP secret.
	DeleteUser(ctx context.Context, id int64) error

	// RecordLogin stamps the time and origin of a completed login.
	RecordLogin(ctx context.Context, id int64, client domain.ClientInfo) error
}

// LoginAttempts counts consecutive failed passwords per user.
type LoginAttempts interface {
	// RecordFailure adds a failure and returns the running count. The count
	// starts over once window has passed since the previous failure.
	RecordFailure(ctx context.Context, userID int64, window time.Duration) (int64, error)

	// ResetFailures clears the count.
	ResetFailures(ctx context.Context, userID int64) error
}

// RevokedTokens is the token blocklist consulted before honoring a token.
type RevokedTokens interface {
	// RevokeToken blocks jti until expiresAt. Revoking twice is not an error.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error

	// IsTokenRevoked reports whether jti is currently blocked.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevokedTokens is housekeeping for entries past expiry. It
	// returns how many entries were removed.
	DeleteExpiredRevokedTokens(ctx context.Context) (int64, error)
}

// WithRevocations returns s with its revocation list replaced by r. Used to
// keep the blocklist in a shared cache while users stay in the database.
// Transactions started from the result still use the database's list.
func WithRevocations(s Store, r RevokedTokens) Store {
	if r == nil {
		return s
	}
	return &revocationOverlay{Store: s, revoked: r}
}

type revocationOverlay struct {
	Store
	revoked RevokedTokens
}

func (o *revocationOverlay) RevokedTokens() RevokedTokens { return o.revoked }

// WithLoginAttempts returns s with its failed-login counter replaced by a.
// Overlays compose: each one only swaps its own repository.
func WithLoginAttempts(s Store, a LoginAttempts) Store {
	if a == nil {
		return s
	}
	return &attemptsOverlay{Store: s, attempts: a}
}

type attemptsOverlay struct {
	Store
	attempts LoginAttempts
}

func (o *attemptsOverlay) LoginAttempts() LoginAttempts { return o.attempts }
