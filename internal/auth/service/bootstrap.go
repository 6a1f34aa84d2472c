package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// BootstrapService makes sure an administrator exists. Registration only ever
// creates plain users, so without it nobody could reach the admin routes.
type BootstrapService struct {
	Store  store.Store
	Hasher PasswordHasher
}

// EnsureAdmin creates seed as an admin account, or promotes the existing
// account with that email. The existing password is never overwritten.
// It is a no-op when seed is not configured.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, seed domain.AdminSeed) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if !seed.Configured() {
		return domain.User{}, nil
	}
	email := domain.NormalizeEmail(seed.Email)

	var admin domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.Role == domain.RoleAdmin {
				admin = existing
				return nil
			}
			role := domain.RoleAdmin
			admin, err = tx.Users().UpdateUser(ctx, existing.ID, domain.UserUpdate{Role: &role})
			if err != nil {
				return fmt.Errorf("promote admin: %w", err)
			}
			l.Info("promoted existing user to admin", slog.Int64("user_id", admin.ID))
			return nil

		case errors.Is(err, store.ErrNotFound):
			hash, err := s.Hasher.Hash(seed.Password)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin, err = tx.Users().CreateUser(ctx, domain.User{
				Email:        email,
				FirstName:    seed.FirstName,
				LastName:     seed.LastName,
				PasswordHash: hash,
				Role:         domain.RoleAdmin,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			l.Info("created admin user", slog.Int64("user_id", admin.ID))
			return nil

		default:
			return fmt.Errorf("lookup admin: %w", err)
		}
	})
	if err != nil {
		return domain.User{}, err
	}
	return admin, nil
}
