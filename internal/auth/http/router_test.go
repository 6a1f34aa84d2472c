package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/totpx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.storefront.test"
	testPassword = "correct horse battery staple"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	t      *testing.T
	clock  *clock
	store  *sqlite.Store
	totp   *totpx.Engine
	router *Router
}

var generous = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

func newEnv(t *testing.T, limits httpx.RateLimits) *env {
	t.Helper()

	clk := &clock{now: time.Now().Truncate(time.Second)}

	st, err := sqlite.NewStore(":memory:", sqlite.WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, verifier, err := jwtx.NewKeyPair(jwtx.KeyConfig{
		Secret:  []byte("router-test-secret-router-test-secret"),
		Options: jwtx.VerifyOptions{Issuer: testIssuer, Now: clk.Now},
	})
	require.NoError(t, err)

	tokens := &service.TokenService{
		Signer:     signer,
		Verifier:   verifier,
		Store:      st,
		Issuer:     testIssuer,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		Clock:      clk.Now,
	}
	hasher := cryptox.NewArgon2Hasher("router-test-pepper")
	engine := &totpx.Engine{Issuer: "Storefront", Skew: 1, Clock: clk.Now}

	r := NewRouter("test", st, slogx.Discard(), limits, nil)
	r.TokenService = tokens
	r.AuthService = &service.AuthService{Store: st, Hasher: hasher, Tokens: tokens, TOTP: engine}
	r.UserService = &service.UserService{Store: st, Hasher: hasher}
	r.ApplyRoutes()

	return &env{t: t, clock: clk, store: st, totp: engine, router: r}
}

func newDefaultEnv(t *testing.T) *env {
	return newEnv(t, httpx.RateLimits{Strict: generous, Moderate: generous, Lenient: generous})
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decode[authsdk.ErrorResponse](t, rec).Error)
}

func (e *env) register(email string) authsdk.TokenResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
		Email: email, Password: testPassword, FirstName: "Test", LastName: "User",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](e.t, rec)
}

func (e *env) login(email string) authsdk.LoginResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: email, Password: testPassword})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.LoginResponse](e.t, rec)
}

// admin registers email, promotes it and logs in again so the token
// carries the admin role.
func (e *env) admin(email string) string {
	e.t.Helper()
	e.register(email)
	u, err := e.store.Users().GetUserByEmail(context.Background(), email)
	require.NoError(e.t, err)
	role := domain.RoleAdmin
	_, err = e.store.Users().UpdateUser(context.Background(), u.ID, domain.UserUpdate{Role: &role})
	require.NoError(e.t, err)
	return e.login(email).AccessToken
}

func (e *env) code(secret string) string {
	e.t.Helper()
	c, err := e.totp.Code(secret, e.clock.Now())
	require.NoError(e.t, err)
	return c
}

func TestRegister(t *testing.T) {
	e := newDefaultEnv(t)

	tokens := e.register("alice@example.com")
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.Equal(t, int64(3600), tokens.ExpiresIn)

	t.Run("duplicate email", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{
			Email: "ALICE@example.com", Password: "another",
		})
		requireError(t, rec, http.StatusConflict, "duplicate_user")
	})

	t.Run("validation", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{Email: "not-an-email", Password: "x"})
		requireError(t, rec, http.StatusBadRequest, "invalid_request")
		require.Contains(t, rec.Body.String(), "email")

		rec = e.do(http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{Email: "bob@example.com"})
		requireError(t, rec, http.StatusBadRequest, "invalid_request")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		requireError(t, rec, http.StatusBadRequest, "invalid_request")
	})

	t.Run("token responses are not cached", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/auth/register", "", authsdk.RegisterRequest{Email: "carol@example.com", Password: testPassword})
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestLogin(t *testing.T) {
	e := newDefaultEnv(t)
	e.register("alice@example.com")

	t.Run("json", func(t *testing.T) {
		resp := e.login("Alice@Example.com")
		require.False(t, resp.RequiresTwoFactor)
		require.NotEmpty(t, resp.AccessToken)
		require.Empty(t, resp.TemporaryToken)
	})

	t.Run("oauth2 password form", func(t *testing.T) {
		form := url.Values{"username": {"alice@example.com"}, "password": {testPassword}}
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEmpty(t, decode[authsdk.LoginResponse](t, rec).AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "nope"})
		requireError(t, rec, http.StatusBadRequest, "invalid_credentials")
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "ghost@example.com", Password: "nope"})
		requireError(t, rec, http.StatusNotFound, "user_not_found")
	})
}

func TestMeRequiresAccessToken(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	rec := e.do(http.MethodGet, "/v1/users/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "alice@example.com", me.Email)
	require.Equal(t, "user", me.Role)
	require.False(t, me.TwoFactorEnabled)
	require.NotContains(t, rec.Body.String(), "password")

	rec = e.do(http.MethodGet, "/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = e.do(http.MethodGet, "/v1/users/me", "garbage", nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	e.clock.Advance(2 * time.Hour)
	rec = e.do(http.MethodGet, "/v1/users/me", tokens.AccessToken, nil)
	requireError(t, rec, http.StatusUnauthorized, "token_expired")
}

func TestRefreshRotates(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	rec := e.do(http.MethodPost, "/v1/auth/refresh", tokens.RefreshToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[authsdk.TokenResponse](t, rec)
	require.NotEqual(t, tokens.RefreshToken, next.RefreshToken)

	rec = e.do(http.MethodPost, "/v1/auth/refresh", tokens.RefreshToken, nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = e.do(http.MethodPost, "/v1/auth/refresh", "", authsdk.RefreshRequest{RefreshToken: next.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/v1/auth/refresh", "", nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestLogout(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	rec := e.do(http.MethodPost, "/v1/auth/logout", tokens.AccessToken,
		authsdk.LogoutRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Logged out successfully", decode[authsdk.MessageResponse](t, rec).Message)

	requireError(t, e.do(http.MethodGet, "/v1/users/me", tokens.AccessToken, nil),
		http.StatusUnauthorized, "invalid_token")
	requireError(t, e.do(http.MethodPost, "/v1/auth/refresh", tokens.RefreshToken, nil),
		http.StatusUnauthorized, "invalid_token")

	// Undecodable tokens are still acknowledged.
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/v1/auth/logout", "garbage", nil).Code)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/v1/auth/logout", "", nil).Code)
}

func TestTwoFactorFlow(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	rec := e.do(http.MethodPost, "/v1/auth/2fa/enable", tokens.AccessToken, authsdk.Enable2FARequest{Password: "wrong"})
	requireError(t, rec, http.StatusBadRequest, "invalid_credentials")

	rec = e.do(http.MethodPost, "/v1/auth/2fa/enable", tokens.AccessToken, authsdk.Enable2FARequest{Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	enroll := decode[authsdk.Enable2FAResponse](t, rec)
	require.NotEmpty(t, enroll.Secret)
	require.True(t, strings.HasPrefix(enroll.URI, "otpauth://totp/"))
	require.True(t, strings.HasPrefix(enroll.QRCode, "data:image/png;base64,"))
	require.False(t, enroll.IsEnabled)

	// Not enabled until verified: login still returns tokens.
	require.False(t, e.login("alice@example.com").RequiresTwoFactor)

	rec = e.do(http.MethodPost, "/v1/auth/2fa/verify", tokens.AccessToken, authsdk.Verify2FARequest{Code: e.code(enroll.Secret)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[authsdk.Verify2FAResponse](t, rec).IsVerified)

	login := e.login("alice@example.com")
	require.True(t, login.RequiresTwoFactor)
	require.NotEmpty(t, login.TemporaryToken)
	require.Empty(t, login.AccessToken)

	// The temporary token is not an access token.
	requireError(t, e.do(http.MethodGet, "/v1/users/me", login.TemporaryToken, nil),
		http.StatusUnauthorized, "invalid_token")
	requireError(t, e.do(http.MethodPost, "/v1/auth/refresh", login.TemporaryToken, nil),
		http.StatusUnauthorized, "invalid_token")

	// The setup step was consumed; move to the next one.
	e.clock.Advance(totpx.Period)
	code := e.code(enroll.Secret)

	rec = e.do(http.MethodPost, "/v1/auth/2fa/login", "", authsdk.Verify2FALoginRequest{TemporaryToken: login.TemporaryToken, Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	full := decode[authsdk.TokenResponse](t, rec)
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/v1/users/me", full.AccessToken, nil).Code)

	// The challenge is spent.
	rec = e.do(http.MethodPost, "/v1/auth/2fa/login", "", authsdk.Verify2FALoginRequest{TemporaryToken: login.TemporaryToken, Code: code})
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	// Same code again in the same step, on a fresh challenge.
	again := e.login("alice@example.com")
	rec = e.do(http.MethodPost, "/v1/auth/2fa/login", "", authsdk.Verify2FALoginRequest{TemporaryToken: again.TemporaryToken, Code: code})
	requireError(t, rec, http.StatusBadRequest, "invalid_code")

	rec = e.do(http.MethodPost, "/v1/auth/2fa/enable", full.AccessToken, authsdk.Enable2FARequest{Password: testPassword})
	requireError(t, rec, http.StatusBadRequest, "two_factor_already_enabled")

	e.clock.Advance(totpx.Period)
	rec = e.do(http.MethodPost, "/v1/auth/2fa/disable", full.AccessToken,
		authsdk.Disable2FARequest{Password: testPassword, Code: e.code(enroll.Secret)})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/v1/auth/2fa/verify", full.AccessToken, authsdk.Verify2FARequest{Code: "123456"})
	requireError(t, rec, http.StatusBadRequest, "two_factor_not_initialized")

	rec = e.do(http.MethodPost, "/v1/auth/2fa/disable", full.AccessToken,
		authsdk.Disable2FARequest{Password: testPassword, Code: "123456"})
	requireError(t, rec, http.StatusBadRequest, "two_factor_not_enabled")

	require.False(t, e.login("alice@example.com").RequiresTwoFactor)
}

func TestTwoFactorLoginExpiredTemporaryToken(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	enroll := decode[authsdk.Enable2FAResponse](t,
		e.do(http.MethodPost, "/v1/auth/2fa/enable", tokens.AccessToken, authsdk.Enable2FARequest{Password: testPassword}))
	require.Equal(t, http.StatusOK,
		e.do(http.MethodPost, "/v1/auth/2fa/verify", tokens.AccessToken, authsdk.Verify2FARequest{Code: e.code(enroll.Secret)}).Code)

	login := e.login("alice@example.com")
	e.clock.Advance(jwtx.TemporaryTokenTTL + time.Minute)

	rec := e.do(http.MethodPost, "/v1/auth/2fa/login", "", authsdk.Verify2FALoginRequest{TemporaryToken: login.TemporaryToken, Code: e.code(enroll.Secret)})
	requireError(t, rec, http.StatusUnauthorized, "token_expired")
}

func TestAdminEndpoints(t *testing.T) {
	e := newDefaultEnv(t)
	adminToken := e.admin("root@example.com")
	user := e.register("alice@example.com")

	requireError(t, e.do(http.MethodGet, "/v1/users", user.AccessToken, nil), http.StatusForbidden, "forbidden")

	rec := e.do(http.MethodGet, "/v1/users?limit=500", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[authsdk.UserListResponse](t, rec)
	require.Len(t, list.Users, 2)
	require.Equal(t, service.MaxPageSize, list.Limit)

	requireError(t, e.do(http.MethodGet, "/v1/users?offset=-1", adminToken, nil), http.StatusBadRequest, "invalid_request")

	alice := list.Users[1]
	require.Equal(t, "alice@example.com", alice.Email)
	blockPath := "/v1/users/" + itoa(alice.ID) + "/block"

	blocked := true
	rec = e.do(http.MethodPut, blockPath, adminToken, authsdk.SetBlockedRequest{Blocked: &blocked})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[authsdk.UserResponse](t, rec).IsBlocked)

	rec = e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	requireError(t, rec, http.StatusForbidden, "account_blocked")
	requireError(t, e.do(http.MethodPost, "/v1/auth/refresh", user.RefreshToken, nil), http.StatusForbidden, "account_blocked")

	unblocked := false
	rec = e.do(http.MethodPut, blockPath, adminToken, authsdk.SetBlockedRequest{Blocked: &unblocked})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.login("alice@example.com")
	require.Equal(t, http.StatusOK, e.do(http.MethodPut, blockPath, adminToken, authsdk.SetBlockedRequest{Blocked: &blocked}).Code)

	requireError(t, e.do(http.MethodPut, blockPath, adminToken, map[string]any{}), http.StatusBadRequest, "invalid_request")
	requireError(t, e.do(http.MethodPut, "/v1/users/abc/block", adminToken, authsdk.SetBlockedRequest{Blocked: &blocked}),
		http.StatusBadRequest, "invalid_request")

	rec = e.do(http.MethodDelete, "/v1/users/"+itoa(alice.ID), adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	requireError(t, e.do(http.MethodDelete, "/v1/users/"+itoa(alice.ID), adminToken, nil), http.StatusNotFound, "user_not_found")
}

func TestAdminGetAndUpdateUser(t *testing.T) {
	e := newDefaultEnv(t)
	adminToken := e.admin("root@example.com")
	user := e.register("alice@example.com")

	u, err := e.store.Users().GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	path := "/v1/users/" + itoa(u.ID)

	requireError(t, e.do(http.MethodGet, path, user.AccessToken, nil), http.StatusForbidden, "forbidden")
	first := "Alicia"
	requireError(t, e.do(http.MethodPut, path, user.AccessToken, authsdk.UpdateUserRequest{FirstName: &first}),
		http.StatusForbidden, "forbidden")

	rec := e.do(http.MethodGet, path, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "alice@example.com", got.Email)
	require.Nil(t, got.LastLoginAt, "registration is not a login")

	rec = e.do(http.MethodPut, path, adminToken, authsdk.UpdateUserRequest{FirstName: &first})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "Alicia", got.FirstName)
	require.Equal(t, "User", got.LastName)
	require.Equal(t, "user", got.Role)

	role := "admin"
	rec = e.do(http.MethodPut, path, adminToken, authsdk.UpdateUserRequest{Role: &role})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "admin", decode[authsdk.UserResponse](t, rec).Role)

	// The promotion reaches alice's tokens on refresh.
	refreshed := decode[authsdk.TokenResponse](t, e.do(http.MethodPost, "/v1/auth/refresh", user.RefreshToken, nil))
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/v1/users", refreshed.AccessToken, nil).Code)

	bogus := "root"
	requireError(t, e.do(http.MethodPut, path, adminToken, authsdk.UpdateUserRequest{Role: &bogus}),
		http.StatusBadRequest, "invalid_request")
	requireError(t, e.do(http.MethodGet, "/v1/users/9999", adminToken, nil), http.StatusNotFound, "user_not_found")
	requireError(t, e.do(http.MethodPut, "/v1/users/9999", adminToken, authsdk.UpdateUserRequest{FirstName: &first}),
		http.StatusNotFound, "user_not_found")
	requireError(t, e.do(http.MethodGet, "/v1/users/abc", adminToken, nil), http.StatusBadRequest, "invalid_request")

	// /v1/users/me is not shadowed by /v1/users/{id}.
	rec = e.do(http.MethodGet, "/v1/users/me", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "root@example.com", decode[authsdk.UserResponse](t, rec).Email)
}

func TestLoginRecordsClient(t *testing.T) {
	e := newDefaultEnv(t)
	adminToken := e.admin("root@example.com")
	e.register("alice@example.com")

	form := url.Values{"username": {"alice@example.com"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "StorefrontApp/3.0 ("+strings.Repeat("x", 400)+")")
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := e.store.Users().GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "203.0.113.50", u.LastLoginIP)
	require.True(t, strings.HasPrefix(u.LastLoginDevice, "StorefrontApp/3.0 ("))
	require.LessOrEqual(t, len(u.LastLoginDevice), maxDeviceLength)

	got := decode[authsdk.UserResponse](t, e.do(http.MethodGet, "/v1/users/"+itoa(u.ID), adminToken, nil))
	require.NotNil(t, got.LastLoginAt)
	require.True(t, e.clock.Now().Equal(*got.LastLoginAt))
	require.Equal(t, "203.0.113.50", got.LastLoginIP)
}

func TestRepeatedFailedLoginsBlockAccount(t *testing.T) {
	e := newDefaultEnv(t)
	e.router.AuthService.MaxFailedLogins = 3
	e.router.AuthService.FailedLoginWindow = time.Minute
	e.register("alice@example.com")

	for range 4 {
		rec := e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "guess"})
		requireError(t, rec, http.StatusBadRequest, "invalid_credentials")
	}

	rec := e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	requireError(t, rec, http.StatusForbidden, "account_blocked")
}

func TestChangePassword(t *testing.T) {
	e := newDefaultEnv(t)
	tokens := e.register("alice@example.com")

	rec := e.do(http.MethodPut, "/v1/users/me/password", tokens.AccessToken,
		authsdk.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "brand new password"})
	requireError(t, rec, http.StatusBadRequest, "invalid_credentials")

	rec = e.do(http.MethodPut, "/v1/users/me/password", tokens.AccessToken,
		authsdk.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: testPassword})
	requireError(t, rec, http.StatusBadRequest, "invalid_request")

	rec = e.do(http.MethodPut, "/v1/users/me/password", tokens.AccessToken,
		authsdk.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "brand new password"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "alice@example.com", Password: "brand new password"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	strict := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	e := newEnv(t, httpx.RateLimits{Strict: strict, Moderate: generous, Lenient: generous})

	attempt := func(email string) int {
		return e.do(http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: email, Password: "x"}).Code
	}

	require.Equal(t, http.StatusNotFound, attempt("ghost@example.com"))
	require.Equal(t, http.StatusNotFound, attempt("ghost@example.com"))
	require.Equal(t, http.StatusTooManyRequests, attempt("ghost@example.com"))
	require.Equal(t, http.StatusNotFound, attempt("other@example.com"))

	// Form logins name the account "username" and share its bucket.
	form := url.Values{"username": {"ghost@example.com"}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusTooManyRequests, "rate_limit_exceeded")
}

func TestHealth(t *testing.T) {
	e := newDefaultEnv(t)

	rec := e.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[authsdk.HealthResponse](t, rec).Version)

	rec = e.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)

	require.NoError(t, e.store.Close())
	rec = e.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSwaggerDoc(t *testing.T) {
	e := newDefaultEnv(t)

	rec := e.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/v1/auth/login")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
