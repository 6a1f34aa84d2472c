package authsdk

import "time"

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254" example:"alice@example.com"`
	Password  string `json:"password" validate:"required,max=1024" example:"correct horse battery staple"`
	FirstName string `json:"first_name" validate:"max=100" example:"Alice"`
	LastName  string `json:"last_name" validate:"max=100" example:"Liddell"`
}

// LoginRequest is the JSON body of POST /v1/auth/login. The endpoint also
// accepts a form with username (or email) and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254" example:"alice@example.com"`
	Password string `json:"password" validate:"required,max=1024"`
}

// TokenResponse carries a full token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"3600"`
}

// LoginResponse is either a token pair or, when RequiresTwoFactor is set, a
// temporary token to complete with POST /v1/auth/2fa/login.
type LoginResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	ExpiresIn         int64  `json:"expires_in,omitempty"`
	RequiresTwoFactor bool   `json:"requires_2fa"`
	TemporaryToken    string `json:"temporary_token,omitempty"`
}

// Tokens returns the pair carried by a completed login.
func (r LoginResponse) Tokens() TokenResponse {
	return TokenResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
	}
}

// RefreshRequest is the optional body of POST /v1/auth/refresh. The token
// may instead be sent as a bearer header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the optional body of POST /v1/auth/logout. A refresh
// token given here is revoked along with the bearer token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Logged out successfully"`
}

type Enable2FARequest struct {
	Password string `json:"password" validate:"required,max=1024"`
}

// Enable2FAResponse carries the new secret. 2FA stays off until a code is
// verified against it.
type Enable2FAResponse struct {
	Secret    string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	URI       string `json:"uri" example:"otpauth://totp/Storefront:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Storefront"`
	QRCode    string `json:"qr_code" example:"data:image/png;base64,iVBORw0..."`
	IsEnabled bool   `json:"is_enabled"`
}

type Verify2FARequest struct {
	Code string `json:"code" validate:"required,max=16" example:"123456"`
}

type Verify2FAResponse struct {
	IsVerified bool `json:"is_verified"`
}

type Disable2FARequest struct {
	Password string `json:"password" validate:"required,max=1024"`
	Code     string `json:"code" validate:"required,max=16" example:"123456"`
}

type Verify2FALoginRequest struct {
	TemporaryToken string `json:"temporary_token" validate:"required"`
	Code           string `json:"code" validate:"required,max=16" example:"123456"`
}

// UserResponse is the public view of an account. Secrets and hashes are
// never serialized.
type UserResponse struct {
	ID               int64      `json:"id" example:"1"`
	Email            string     `json:"email" example:"alice@example.com"`
	FirstName        string     `json:"first_name" example:"Alice"`
	LastName         string     `json:"last_name" example:"Liddell"`
	Role             string     `json:"role" example:"user"`
	IsBlocked        bool       `json:"is_blocked"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP      string     `json:"last_login_ip,omitempty" example:"203.0.113.7"`
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// UpdateUserRequest is the body of PUT /v1/users/{id}. Omitted fields are
// left unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100" example:"Alice"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100" example:"Liddell"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=user admin" example:"admin"`
}

type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=1024"`
	NewPassword     string `json:"new_password" validate:"required,max=1024,nefield=CurrentPassword"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database    string `json:"database" example:"ok"`
	Revocations string `json:"revocations,omitempty" example:"ok"`
}
