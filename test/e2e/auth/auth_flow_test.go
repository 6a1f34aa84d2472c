//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginRefreshLogout(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	registered := registerUser(t, client, "Alice@Example.com")

	me, err := client.Me(ctx, registered.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", me.Email)
	require.Equal(t, "user", me.Role)
	require.False(t, me.TwoFactorEnabled)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := client.Register(ctx, authsdk.RegisterRequest{Email: "alice@example.com", Password: userPassword})
		assertErrorCode(t, err, http.StatusConflict, authsdk.ErrorCodeDuplicateUser)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := client.Login(ctx, "alice@example.com", "not-the-password")
		assertErrorCode(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidCredentials)
	})

	login, err := client.Login(ctx, "ALICE@example.com", userPassword)
	require.NoError(t, err)
	require.False(t, login.RequiresTwoFactor)
	tokens := login.Tokens()
	assertTokenResponse(t, tokens)

	t.Run("refresh rotates the refresh token", func(t *testing.T) {
		rotated, err := client.Refresh(ctx, tokens.RefreshToken)
		require.NoError(t, err)
		assertTokenResponse(t, rotated)

		_, err = client.Refresh(ctx, tokens.RefreshToken)
		assertErrorCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

		tokens = rotated
	})

	t.Run("logout revokes both tokens", func(t *testing.T) {
		require.NoError(t, client.Logout(ctx, tokens.AccessToken, tokens.RefreshToken))

		_, err := client.Me(ctx, tokens.AccessToken)
		assertErrorCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

		_, err = client.Refresh(ctx, tokens.RefreshToken)
		assertErrorCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

		// Logging out again is still acknowledged.
		require.NoError(t, client.Logout(ctx, tokens.AccessToken, ""))
	})
}

func TestChangePassword(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	tokens := registerUser(t, client, "bob@example.com")

	err := client.ChangePassword(ctx, tokens.AccessToken, "wrong-current", "New-password-1")
	assertErrorCode(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidCredentials)

	require.NoError(t, client.ChangePassword(ctx, tokens.AccessToken, userPassword, "New-password-1"))

	_, err = client.Login(ctx, "bob@example.com", userPassword)
	assertErrorCode(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidCredentials)

	_, err = client.Login(ctx, "bob@example.com", "New-password-1")
	require.NoError(t, err)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	client := setupAuthContainer(t)

	_, err := client.Me(t.Context(), "")
	require.Equal(t, http.StatusUnauthorized, authsdk.StatusCode(err))

	_, err = client.Me(t.Context(), "not-a-jwt")
	assertErrorCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

func TestHealth(t *testing.T) {
	client := setupAuthContainer(t)

	live, err := client.Liveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Readiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}
