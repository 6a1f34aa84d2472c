package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/totpx"
)

// PasswordHasher hashes and checks credentials. cryptox.Argon2Hasher is the
// production implementation.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// AuthService runs registration, login, token refresh, logout and the
// two-factor lifecycle. It never deals with transport concerns.
type AuthService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens *TokenService
	TOTP   *totpx.Engine

	// MaxFailedLogins blocks an account once it has more than this many
	// wrong passwords inside FailedLoginWindow. Zero disables the lockout.
	MaxFailedLogins   int
	FailedLoginWindow time.Duration
}

const (
	DefaultMaxFailedLogins   = 3
	DefaultFailedLoginWindow = 15 * time.Minute
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user and returns a token pair for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return domain.TokenPair{}, ErrInvalidInput
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.Users().CreateUser(ctx, domain.User{
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.TokenPair{}, ErrDuplicateUser
		}
		return domain.TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	l.Info("user registered", slog.Int64("user_id", user.ID))
	return s.Tokens.IssuePair(user)
}

// Login checks a password. Accounts with 2FA get a TwoFactorChallenge
// instead of tokens. Blocked accounts are refused before anything is issued.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginOutcome, error) {
	l := slogx.FromContext(ctx)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Info("login failed", slog.Int64("user_id", user.ID), slog.String("reason", "bad_password"))
		s.recordFailedLogin(ctx, user)
		return nil, ErrInvalidCredentials
	}

	if user.IsBlocked {
		l.Info("login refused", slog.Int64("user_id", user.ID), slog.String("reason", "blocked"))
		return nil, ErrAccountBlocked
	}

	if err := s.Store.LoginAttempts().ResetFailures(ctx, user.ID); err != nil {
		l.Warn("failed to reset failed logins", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	if user.TwoFactorEnabled {
		challenge, err := s.Tokens.IssueTemporary(user)
		if err != nil {
			return nil, err
		}
		l.Info("login requires second factor", slog.Int64("user_id", user.ID))
		return challenge, nil
	}

	pair, err := s.Tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, user.ID)
	l.Info("login succeeded", slog.Int64("user_id", user.ID))
	return pair, nil
}

// recordFailedLogin counts a wrong password and blocks the account once the
// count passes MaxFailedLogins. Counter failures never change the outcome of
// the login.
func (s *AuthService) recordFailedLogin(ctx context.Context, user domain.User) {
	if s.MaxFailedLogins <= 0 {
		return
	}
	l := slogx.FromContext(ctx)

	window := s.FailedLoginWindow
	if window <= 0 {
		window = DefaultFailedLoginWindow
	}

	failures, err := s.Store.LoginAttempts().RecordFailure(ctx, user.ID, window)
	if err != nil {
		l.Warn("failed to record failed login", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	if failures <= int64(s.MaxFailedLogins) || user.IsBlocked {
		return
	}

	blocked := true
	if _, err := s.Store.Users().UpdateUser(ctx, user.ID, domain.UserUpdate{IsBlocked: &blocked}); err != nil {
		l.Warn("failed to block account", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	l.Warn("account blocked after repeated failed logins",
		slog.Int64("user_id", user.ID),
		slog.Int64("failures", failures),
	)
}

// recordLogin stamps the user with the time and client of a login that
// produced tokens.
func (s *AuthService) recordLogin(ctx context.Context, userID int64) {
	if err := s.Store.Users().RecordLogin(ctx, userID, ClientInfoFromContext(ctx)); err != nil {
		slogx.FromContext(ctx).Warn("failed to record login", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// Refresh exchanges a token for a fresh pair. The presented token is revoked
// afterwards so it cannot be used again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.DecodeAndValidate(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if claims.TempAuth {
		return domain.TokenPair{}, fmt.Errorf("%w: temporary token", ErrTokenInvalid)
	}

	revoked, err := s.Tokens.IsRevoked(ctx, claims)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if revoked {
		return domain.TokenPair{}, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}

	user, err := s.userByID(ctx, claims.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if user.IsBlocked {
		return domain.TokenPair{}, ErrAccountBlocked
	}

	// Role changes take effect at the next refresh.
	claims.Role = string(user.Role)

	pair, err := s.Tokens.IssuePairFromClaims(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Tokens.Revoke(ctx, claims); err != nil {
		l.Warn("failed to revoke rotated refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return pair, nil
}

// Logout revokes token until it would have expired. It always
// acknowledges: undecodable tokens and revocation failures are only logged.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.Decode(token)
	if err != nil {
		l.Debug("logout with unusable token", slog.Any("error", err))
		return nil
	}

	if err := s.Tokens.Revoke(ctx, claims); err != nil {
		l.Warn("failed to revoke token on logout", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return nil
	}

	l.Info("logged out", slog.Int64("user_id", claims.UserID))
	return nil
}

// Enable2FA starts enrolment: a new secret is stored with 2FA still off and
// returned with its key URI and QR code.
func (s *AuthService) Enable2FA(ctx context.Context, userID int64, password string) (domain.TwoFactorEnrollment, error) {
	l := slogx.FromContext(ctx)

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		return domain.TwoFactorEnrollment{}, ErrInvalidCredentials
	}
	if user.TwoFactorEnabled {
		return domain.TwoFactorEnrollment{}, ErrTwoFactorAlreadyEnabled
	}

	secret, err := s.TOTP.GenerateSecret()
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}
	uri, err := s.TOTP.ProvisioningURI(secret, user.Email)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}
	qrCode, err := s.TOTP.RenderQR(uri)
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if current.TwoFactorEnabled {
			return ErrTwoFactorAlreadyEnabled
		}

		disabled := false
		_, err = tx.Users().UpdateUser(ctx, userID, domain.UserUpdate{
			TOTPSecret:       &secret,
			TwoFactorEnabled: &disabled,
		})
		return mapUserErr(err)
	})
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	l.Info("two-factor enrolment started", slog.Int64("user_id", userID))
	return domain.TwoFactorEnrollment{
		Secret:  secret,
		URI:     uri,
		QRCode:  qrCode,
		Enabled: false,
	}, nil
}

// VerifyTwoFactorSetup activates 2FA once a code from the stored secret
// checks out.
func (s *AuthService) VerifyTwoFactorSetup(ctx context.Context, userID int64, code string) (bool, error) {
	l := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if !user.HasTOTPSecret() {
			return ErrTwoFactorNotInitialized
		}

		if err := s.consumeCode(ctx, tx.Users(), user, code); err != nil {
			return err
		}

		enabled := true
		_, err = tx.Users().UpdateUser(ctx, userID, domain.UserUpdate{TwoFactorEnabled: &enabled})
		if errors.Is(err, store.ErrConstraint) {
			return ErrTwoFactorNotInitialized
		}
		return mapUserErr(err)
	})
	if err != nil {
		return false, err
	}

	l.Info("two-factor enabled", slog.Int64("user_id", userID))
	return true, nil
}

// Disable2FA turns 2FA off and discards the secret in one update.
func (s *AuthService) Disable2FA(ctx context.Context, userID int64, password, code string) error {
	l := slogx.FromContext(ctx)

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if !current.TwoFactorEnabled || !current.HasTOTPSecret() {
			return ErrTwoFactorNotEnabled
		}

		if err := s.consumeCode(ctx, tx.Users(), current, code); err != nil {
			return err
		}

		disabled := false
		_, err = tx.Users().UpdateUser(ctx, userID, domain.UserUpdate{
			TwoFactorEnabled: &disabled,
			ClearTOTPSecret:  true,
		})
		return mapUserErr(err)
	})
	if err != nil {
		return err
	}

	l.Info("two-factor disabled", slog.Int64("user_id", userID))
	return nil
}

// VerifyTwoFactorLogin completes a login that was answered with a
// TwoFactorChallenge.
func (s *AuthService) VerifyTwoFactorLogin(ctx context.Context, temporaryToken, code string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.DecodeAndValidate(temporaryToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !claims.TempAuth {
		return domain.TokenPair{}, fmt.Errorf("%w: not a temporary token", ErrTokenInvalid)
	}

	revoked, err := s.Tokens.IsRevoked(ctx, claims)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if revoked {
		return domain.TokenPair{}, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Users().GetUserByID(ctx, claims.UserID)
		if err != nil {
			return mapUserErr(err)
		}
		// 2FA may have been switched off since the challenge was issued.
		if !current.TwoFactorEnabled || !current.HasTOTPSecret() {
			return ErrTwoFactorNotEnabled
		}
		if current.IsBlocked {
			return ErrAccountBlocked
		}
		user = current
		return s.consumeCode(ctx, tx.Users(), current, code)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			l.Info("second factor rejected", slog.Int64("user_id", claims.UserID))
		}
		return domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// The challenge is spent.
	if err := s.Tokens.Revoke(ctx, claims); err != nil {
		l.Warn("failed to revoke temporary token", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	s.recordLogin(ctx, user.ID)

	l.Info("login succeeded", slog.Int64("user_id", user.ID), slog.String("method", "totp"))
	return pair, nil
}

// consumeCode checks code against the user's secret and burns its time-step,
// so each step's code works once.
func (s *AuthService) consumeCode(ctx context.Context, users store.Users, user domain.User, code string) error {
	counter, ok := s.TOTP.Match(*user.TOTPSecret, code)
	if !ok {
		return ErrInvalidCode
	}

	fresh, err := users.ConsumeTOTPCounter(ctx, user.ID, counter)
	if err != nil {
		return mapUserErr(err)
	}
	if !fresh {
		return ErrInvalidCode
	}
	return nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return user, nil
}

func (s *AuthService) userByID(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return user, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
