package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

// maxDeviceLength bounds the User-Agent kept as a login's device.
const maxDeviceLength = 255

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             string(u.Role),
		IsBlocked:        u.IsBlocked,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
		LastLoginIP:      u.LastLoginIP,
	}
}

// withClientInfo returns the request context carrying who is logging in.
func withClientInfo(r *http.Request) context.Context {
	device := r.UserAgent()
	if len(device) > maxDeviceLength {
		device = strings.ToValidUTF8(device[:maxDeviceLength], "")
	}
	return service.WithClientInfo(r.Context(), domain.ClientInfo{
		IP:     httpx.IPKeyExtractor(r),
		Device: device,
	})
}
