package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

type errorMapping struct {
	err    error
	status int
	desc   string
}

// errorTable is the one place a service failure becomes a status code.
var errorTable = []errorMapping{
	{service.ErrInvalidInput, http.StatusBadRequest, "the request is malformed or missing required fields"},
	{service.ErrDuplicateUser, http.StatusConflict, "a user with this email already exists"},
	{service.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "email or password is incorrect"},
	{service.ErrAccountBlocked, http.StatusForbidden, "this account has been blocked"},
	{service.ErrTwoFactorNotInitialized, http.StatusBadRequest, "two-factor authentication has not been set up"},
	{service.ErrTwoFactorNotEnabled, http.StatusBadRequest, "two-factor authentication is not enabled"},
	{service.ErrTwoFactorAlreadyEnabled, http.StatusBadRequest, "two-factor authentication is already enabled"},
	{service.ErrInvalidCode, http.StatusBadRequest, "the verification code is invalid"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "the token has expired"},
	{service.ErrTokenInvalid, http.StatusUnauthorized, "the token is invalid"},
}

// writeServiceError renders err. Unknown errors are logged and hidden
// behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status == http.StatusUnauthorized {
			httpx.WriteBearerError(w, m.err.Error(), m.desc)
			return
		}
		httpx.WriteError(w, m.status, m.err.Error(), m.desc)
		return
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError,
		authsdk.ErrorCodeServerError, "an internal error occurred")
}

func writeInvalidRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, desc)
}
