package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// TokenDecoder turns a bearer token into claims, rejecting anything that is
// not a usable access token.
type TokenDecoder interface {
	DecodeAccess(ctx context.Context, token string) (jwtx.Claims, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthnMiddleware requires a valid bearer access token and stores its claims
// in the request context. Decoder errors go to onErr, or a plain 401 when
// onErr is nil.
func AuthnMiddleware(dec TokenDecoder, onErr ErrorWriter) Middleware {
	if onErr == nil {
		onErr = func(w http.ResponseWriter, _ *http.Request, _ error) {
			WriteBearerError(w, "invalid_token", "token verification failed")
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				WriteBearerError(w, "invalid_token", "missing bearer token")
				return
			}

			claims, err := dec.DecodeAccess(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				onErr(w, r, err)
				return
			}

			ctx = slogx.With(contextWithAuth(ctx, claims), "user_id", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBearerError writes an RFC 6750 style 401.
func WriteBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
