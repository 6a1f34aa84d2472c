package httpx

import (
	"net/http"
	"slices"
)

// RequireRole allows the request through only when the authenticated token
// carries one of roles. It must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteBearerError(w, "invalid_token", "missing bearer token")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
