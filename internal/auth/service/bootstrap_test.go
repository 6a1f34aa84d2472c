package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		svc := &BootstrapService{Store: env.store, Hasher: env.users.Hasher}

		u, err := svc.EnsureAdmin(ctx, domain.AdminSeed{Email: "admin@example.com"})
		require.NoError(t, err)
		require.Zero(t, u.ID)

		users, err := env.users.ListUsers(ctx, 0, 10)
		require.NoError(t, err)
		require.Empty(t, users)
	})

	t.Run("creates admin who can log in", func(t *testing.T) {
		env := newTestEnv(t)
		svc := &BootstrapService{Store: env.store, Hasher: env.users.Hasher}

		u, err := svc.EnsureAdmin(ctx, domain.AdminSeed{
			Email:    " Admin@Example.com ",
			Password: "admin-password",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, u.Role)
		require.Equal(t, "admin@example.com", u.Email)

		out, err := env.auth.Login(ctx, "admin@example.com", "admin-password")
		require.NoError(t, err)
		pair, ok := out.(domain.TokenPair)
		require.True(t, ok)

		claims, err := env.tokens.DecodeAccess(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, string(domain.RoleAdmin), claims.Role)
	})

	t.Run("promotes existing user and keeps password", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "owner@example.com", "original-password")
		svc := &BootstrapService{Store: env.store, Hasher: env.users.Hasher}

		u, err := svc.EnsureAdmin(ctx, domain.AdminSeed{
			Email:    "owner@example.com",
			Password: "ignored-password",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, u.Role)

		_, err = env.auth.Login(ctx, "owner@example.com", "ignored-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = env.auth.Login(ctx, "owner@example.com", "original-password")
		require.NoError(t, err)
	})

	t.Run("idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		svc := &BootstrapService{Store: env.store, Hasher: env.users.Hasher}
		seed := domain.AdminSeed{Email: "admin@example.com", Password: "admin-password"}

		first, err := svc.EnsureAdmin(ctx, seed)
		require.NoError(t, err)
		second, err := svc.EnsureAdmin(ctx, seed)
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})
}
