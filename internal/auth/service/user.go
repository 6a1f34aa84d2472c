package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// MaxPageSize caps ListUsers.
const MaxPageSize = 100

type UserService struct {
	Store  store.Store
	Hasher PasswordHasher
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	return user, nil
}

// ListUsers returns a page of users ordered by id.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error) {
	if offset < 0 {
		return nil, ErrInvalidInput
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.Store.Users().ListUsers(ctx, offset, limit)
}

// ProfileUpdate is an admin edit of a user. Nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Role      *domain.Role
}

// UpdateUser applies an admin edit. A role change reaches the user's tokens
// at their next refresh.
func (s *UserService) UpdateUser(ctx context.Context, id int64, upd ProfileUpdate) (domain.User, error) {
	if upd.Role != nil && !upd.Role.Valid() {
		return domain.User{}, ErrInvalidInput
	}

	user, err := s.Store.Users().UpdateUser(ctx, id, domain.UserUpdate{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Role:      upd.Role,
	})
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}

	attrs := []any{slog.Int64("user_id", id)}
	if upd.Role != nil {
		attrs = append(attrs, slog.String("role", string(*upd.Role)))
	}
	slogx.FromContext(ctx).Info("user updated", attrs...)
	return user, nil
}

// SetBlocked flips the block flag. Blocked users cannot log in, refresh or
// finish a 2FA login. Unblocking also clears the failed login count.
func (s *UserService) SetBlocked(ctx context.Context, id int64, blocked bool) (domain.User, error) {
	user, err := s.Store.Users().UpdateUser(ctx, id, domain.UserUpdate{IsBlocked: &blocked})
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}

	if !blocked {
		if err := s.Store.LoginAttempts().ResetFailures(ctx, id); err != nil {
			slogx.FromContext(ctx).Warn("failed to reset failed logins",
				slog.Int64("user_id", id), slog.Any("error", err))
		}
	}

	slogx.FromContext(ctx).Info("user block flag changed",
		slog.Int64("user_id", id), slog.Bool("blocked", blocked))
	return user, nil
}

// DeleteUser removes the account, and with it any TOTP secret.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return mapUserErr(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if next == "" {
		return ErrInvalidInput
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !s.Hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.Store.Users().UpdateUser(ctx, id, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		return mapUserErr(err)
	}

	slogx.FromContext(ctx).Info("password changed", slog.Int64("user_id", id))
	return nil
}
