package http

import (
	"net/http"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

// TwoFactorHandler serves the TOTP lifecycle.
type TwoFactorHandler struct {
	Auth *service.AuthService
}

// currentUserID returns the user id from the claims AuthnMiddleware stored.
func currentUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == 0 {
		httpx.WriteBearerError(w, authsdk.ErrorCodeInvalidToken, "missing bearer token")
		return 0, false
	}
	return claims.UserID, true
}

// HandleEnable handles POST /v1/auth/2fa/enable
//
//	@Summary		Start two-factor enrolment
//	@Description	Generates a TOTP secret after re-checking the password. 2FA stays off until a code is verified.
//	@Tags			Two-factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.Enable2FARequest	true	"Current password"
//	@Success		200		{object}	authsdk.Enable2FAResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_credentials or two_factor_already_enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		404		{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/auth/2fa/enable [post]
func (h *TwoFactorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.Enable2FARequest
	if !decodeJSON(w, r, &req) {
		return
	}

	enrollment, err := h.Auth.Enable2FA(r.Context(), userID, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.Enable2FAResponse{
		Secret:    enrollment.Secret,
		URI:       enrollment.URI,
		QRCode:    enrollment.QRCode,
		IsEnabled: enrollment.Enabled,
	})
}

// HandleVerify handles POST /v1/auth/2fa/verify
//
//	@Summary		Confirm two-factor enrolment
//	@Description	Verifies a code against the pending secret and turns 2FA on.
//	@Tags			Two-factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.Verify2FARequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.Verify2FAResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_code or two_factor_not_initialized"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/2fa/verify [post]
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.Verify2FARequest
	if !decodeJSON(w, r, &req) {
		return
	}

	verified, err := h.Auth.VerifyTwoFactorSetup(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.Verify2FAResponse{IsVerified: verified})
}

// HandleDisable handles POST /v1/auth/2fa/disable
//
//	@Summary		Turn two-factor off
//	@Description	Requires the password and a current code. The secret is discarded.
//	@Tags			Two-factor
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.Disable2FARequest	true	"Password and TOTP code"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_credentials, invalid_code or two_factor_not_enabled"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/2fa/disable [post]
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req authsdk.Disable2FARequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Auth.Disable2FA(r.Context(), userID, req.Password, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogin handles POST /v1/auth/2fa/login
//
//	@Summary		Complete a two-factor login
//	@Description	Exchanges the temporary token from /v1/auth/login plus a TOTP code for a token pair.
//	@Tags			Two-factor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.Verify2FALoginRequest	true	"Temporary token and TOTP code"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_code or two_factor_not_enabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"token_expired or invalid_token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_blocked"
//	@Router			/v1/auth/2fa/login [post]
func (h *TwoFactorHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.Verify2FALoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.Auth.VerifyTwoFactorLogin(withClientInfo(r), req.TemporaryToken, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
