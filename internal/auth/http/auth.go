package http

import (
	"mime"
	"net/http"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// AuthHandler serves registration, login, refresh and logout.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register a user
//	@Description	Creates an account with the user role and returns a token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"duplicate_user"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(pair))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in with email and password
//	@Description	Returns a token pair, or requires_2fa with a temporary token when the account has two-factor authentication enabled.
//	@Description	Accepts JSON or an OAuth2 password form (username, password).
//	@Tags			Auth
//	@Accept			json
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_blocked"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user_not_found"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := readLogin(w, r)
	if !ok {
		return
	}

	outcome, err := h.Auth.Login(withClientInfo(r), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch o := outcome.(type) {
	case domain.TokenPair:
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			AccessToken:  o.AccessToken,
			RefreshToken: o.RefreshToken,
			TokenType:    o.TokenType,
			ExpiresIn:    o.ExpiresIn,
		})
	case domain.TwoFactorChallenge:
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			RequiresTwoFactor: true,
			TemporaryToken:    o.TemporaryToken,
			ExpiresIn:         o.ExpiresIn,
		})
	}
}

// readLogin accepts a JSON body or a urlencoded form. Forms follow the
// OAuth2 password grant and name the email "username".
func readLogin(w http.ResponseWriter, r *http.Request) (authsdk.LoginRequest, bool) {
	var req authsdk.LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" {
		return req, decodeJSON(w, r, &req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeInvalidRequest(w, "invalid form body")
		return req, false
	}
	// Same precedence as the login rate limit key.
	req.Email = r.PostForm.Get("email")
	if req.Email == "" {
		req.Email = r.PostForm.Get("username")
	}
	req.Password = r.PostForm.Get("password")
	return req, validateBody(w, &req)
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Refresh a token pair
//	@Description	Exchanges a refresh token, sent as a bearer header or in the body, for a new pair. The presented token is revoked.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token when no bearer header is sent"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"token_expired or invalid_token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_blocked"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	if !ok {
		var req authsdk.RefreshRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		httpx.WriteBearerError(w, authsdk.ErrorCodeInvalidToken, "missing refresh token")
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the bearer token, and the refresh token given in the body, until they expire. Always acknowledges.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.LogoutRequest	false	"Refresh token to revoke as well"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"missing bearer token"
//	@Router			/v1/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteBearerError(w, authsdk.ErrorCodeInvalidToken, "missing bearer token")
		return
	}

	var req authsdk.LogoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	_ = h.Auth.Logout(ctx, token)
	if req.RefreshToken != "" {
		_ = h.Auth.Logout(ctx, req.RefreshToken)
	}

	slogx.FromContext(ctx).Debug("logout acknowledged")
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}
