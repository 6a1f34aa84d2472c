package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the "error" field of failed responses.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeDuplicateUser           = "duplicate_user"
	ErrorCodeUserNotFound            = "user_not_found"
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeAccountBlocked          = "account_blocked"
	ErrorCodeTwoFactorNotInitialized = "two_factor_not_initialized"
	ErrorCodeTwoFactorNotEnabled     = "two_factor_not_enabled"
	ErrorCodeTwoFactorAlreadyEnabled = "two_factor_already_enabled"
	ErrorCodeInvalidCode             = "invalid_code"
	ErrorCodeTokenExpired            = "token_expired"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeForbidden               = "forbidden"
	ErrorCodeRateLimited             = "rate_limit_exceeded"
	ErrorCodeServerError             = "server_error"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_credentials"`
	ErrorDescription string `json:"error_description,omitempty" example:"email or password is incorrect"`
}

// APIError is a non-2xx response decoded by the client.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// StatusCode returns the HTTP status of an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: http.StatusText(resp.StatusCode),
	}
}
