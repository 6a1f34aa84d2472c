package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the storefront authentication service. Authenticated
// calls take the access token explicitly; the client keeps no session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", "", req, &out, http.StatusCreated)
	return out, err
}

// Login returns either tokens or a two-factor challenge; check
// RequiresTwoFactor.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: email, Password: password}, &out, http.StatusOK)
	return out, err
}

func (c *Client) VerifyTwoFactorLogin(ctx context.Context, temporaryToken, code string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/login", "",
		Verify2FALoginRequest{TemporaryToken: temporaryToken, Code: code}, &out, http.StatusOK)
	return out, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", refreshToken, nil, &out, http.StatusOK)
	return out, err
}

// Logout revokes accessToken, and refreshToken when it is not empty.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = LogoutRequest{RefreshToken: refreshToken}
	}
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", accessToken, body, nil, http.StatusOK)
}

func (c *Client) Enable2FA(ctx context.Context, accessToken, password string) (Enable2FAResponse, error) {
	var out Enable2FAResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/enable", accessToken,
		Enable2FARequest{Password: password}, &out, http.StatusOK)
	return out, err
}

func (c *Client) VerifyTwoFactorSetup(ctx context.Context, accessToken, code string) (bool, error) {
	var out Verify2FAResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/2fa/verify", accessToken,
		Verify2FARequest{Code: code}, &out, http.StatusOK)
	return out.IsVerified, err
}

func (c *Client) Disable2FA(ctx context.Context, accessToken, password, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/2fa/disable", accessToken,
		Disable2FARequest{Password: password, Code: code}, nil, http.StatusNoContent)
}

// Me returns the account the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodGet, "/v1/users/me", accessToken, nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, current, next string) error {
	return c.do(ctx, http.MethodPut, "/v1/users/me/password", accessToken,
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next}, nil, http.StatusNoContent)
}

// ListUsers requires an admin token.
func (c *Client) ListUsers(ctx context.Context, accessToken string, offset, limit int) (UserListResponse, error) {
	var out UserListResponse
	path := fmt.Sprintf("/v1/users?offset=%d&limit=%d", offset, limit)
	err := c.do(ctx, http.MethodGet, path, accessToken, nil, &out, http.StatusOK)
	return out, err
}

// SetBlocked requires an admin token.
func (c *Client) SetBlocked(ctx context.Context, accessToken string, userID int64, blocked bool) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/users/%d/block", userID), accessToken,
		SetBlockedRequest{Blocked: &blocked}, &out, http.StatusOK)
	return out, err
}

// GetUser fetches any account by id. It requires an admin token.
func (c *Client) GetUser(ctx context.Context, accessToken string, userID int64) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d", userID), accessToken, nil, &out, http.StatusOK)
	return out, err
}

// UpdateUser changes an account's name or role. It requires an admin token.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, userID int64, req UpdateUserRequest) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/users/%d", userID), accessToken, req, &out, http.StatusOK)
	return out, err
}

// DeleteUser requires an admin token.
func (c *Client) DeleteUser(ctx context.Context, accessToken string, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/users/%d", userID), accessToken, nil, nil, http.StatusNoContent)
}

func (c *Client) Liveness(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", "", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) Readiness(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK)
	return out, err
}
