package service

import (
	"context"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

type clientInfoKey struct{}

// WithClientInfo attaches the caller's address and device to ctx so a
// successful login can be recorded against the user.
func WithClientInfo(ctx context.Context, info domain.ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFromContext returns the info set by WithClientInfo, or the zero
// value.
func ClientInfoFromContext(ctx context.Context) domain.ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(domain.ClientInfo)
	return info
}
