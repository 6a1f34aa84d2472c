package service

import "errors"

// Failure kinds returned by the services. The HTTP layer is the only place
// these become status codes; the text doubles as the wire error code.
var (
	ErrInvalidInput            = errors.New("invalid_request")
	ErrDuplicateUser           = errors.New("duplicate_user")
	ErrUserNotFound            = errors.New("user_not_found")
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrAccountBlocked          = errors.New("account_blocked")
	ErrTwoFactorNotInitialized = errors.New("two_factor_not_initialized")
	ErrTwoFactorNotEnabled     = errors.New("two_factor_not_enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two_factor_already_enabled")
	ErrInvalidCode             = errors.New("invalid_code")
	ErrTokenExpired            = errors.New("token_expired")
	ErrTokenInvalid            = errors.New("invalid_token")
)
