package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/totpx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.storefront.test"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock  *testClock
	store  *sqlite.Store
	tokens *TokenService
	auth   *AuthService
	users  *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Now().Truncate(time.Second)}

	s, err := sqlite.NewStore(":memory:", sqlite.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	signer, verifier, err := jwtx.NewKeyPair(jwtx.KeyConfig{
		Secret:  []byte("test-secret-test-secret-test-secret!"),
		Options: jwtx.VerifyOptions{Issuer: testIssuer, Now: clock.Now},
	})
	require.NoError(t, err)

	tokens := &TokenService{
		Signer:     signer,
		Verifier:   verifier,
		Store:      s,
		Issuer:     testIssuer,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		Clock:      clock.Now,
	}
	hasher := cryptox.NewArgon2Hasher("test-pepper")

	return &testEnv{
		clock:  clock,
		store:  s,
		tokens: tokens,
		auth: &AuthService{
			Store:  s,
			Hasher: hasher,
			Tokens: tokens,
			TOTP:   &totpx.Engine{Issuer: "Storefront", Skew: 1, Clock: clock.Now},

			MaxFailedLogins:   DefaultMaxFailedLogins,
			FailedLoginWindow: DefaultFailedLoginWindow,
		},
		users: &UserService{Store: s, Hasher: hasher},
	}
}

func (e *testEnv) register(t *testing.T, email, password string) domain.TokenPair {
	t.Helper()

	pair, err := e.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return pair
}

func (e *testEnv) userByEmail(t *testing.T, email string) domain.User {
	t.Helper()

	u, err := e.store.Users().GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

// currentCode is the TOTP code for secret at the test clock's time.
func (e *testEnv) currentCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := e.auth.TOTP.Code(secret, e.clock.Now())
	require.NoError(t, err)
	return code
}

// wrongCode returns a well-formed code that no step in the skew window
// accepts for secret.
func (e *testEnv) wrongCode(t *testing.T, secret string) string {
	t.Helper()

	valid := map[string]bool{}
	for _, d := range []time.Duration{-totpx.Period, 0, totpx.Period} {
		code, err := e.auth.TOTP.Code(secret, e.clock.Now().Add(d))
		require.NoError(t, err)
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("could not find an invalid code")
	return ""
}

// enableTwoFactor runs enrolment and setup verification, then moves the clock
// to the next time-step so the next code is fresh.
func (e *testEnv) enableTwoFactor(t *testing.T, userID int64, password string) string {
	t.Helper()
	ctx := context.Background()

	enrollment, err := e.auth.Enable2FA(ctx, userID, password)
	require.NoError(t, err)

	ok, err := e.auth.VerifyTwoFactorSetup(ctx, userID, e.currentCode(t, enrollment.Secret))
	require.NoError(t, err)
	require.True(t, ok)

	e.clock.Advance(totpx.Period)
	return enrollment.Secret
}

var errBackendDown = errors.New("backend down")

// failingRevocations is a revocation list whose backend is down.
type failingRevocations struct{}

func (failingRevocations) RevokeToken(context.Context, string, time.Time) error {
	return errBackendDown
}
func (failingRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, errBackendDown
}
func (failingRevocations) DeleteExpiredRevokedTokens(context.Context) (int64, error) {
	return 0, errBackendDown
}

var _ store.RevokedTokens = failingRevocations{}

// failingAttempts is a failed-login counter whose backend is down.
type failingAttempts struct{}

func (failingAttempts) RecordFailure(context.Context, int64, time.Duration) (int64, error) {
	return 0, errBackendDown
}
func (failingAttempts) ResetFailures(context.Context, int64) error {
	return errBackendDown
}

var _ store.LoginAttempts = failingAttempts{}
