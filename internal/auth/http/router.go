package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"

	_ "github.com/aussiebroadwan/storefront/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	limits       httpx.RateLimits

	store        store.Store
	TokenService *service.TokenService
	AuthService  *service.AuthService
	UserService  *service.UserService
}

// NewRouter returns a router with request logging and CORS applied to
// every route. Services are set on the exported fields before ApplyRoutes.
func NewRouter(
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	limits httpx.RateLimits,
	allowedOrigins []string,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		limits:       limits,
		store:        st,
		middlewares: []httpx.Middleware{
			slogx.HTTPMiddleware(logger),
			httpx.CORS(allowedOrigins),
		},
	}
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Storefront Authentication Service API
//	@version		0.1.0
//	@description	Registration, password login, JWT access and refresh tokens, and TOTP two-factor authentication for the storefront.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/storefront
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authenticated requires a full, unrevoked access token.
func (r *Router) authenticated(h http.HandlerFunc, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{httpx.AuthnMiddleware(r.TokenService, writeServiceError)}, mws...)
	return httpx.Chain(h, chain...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// Credential checks are limited per IP, and login per IP and account.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndField(r.limits.Strict, "email", "username"),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	// Logout acknowledges any bearer token, so it skips AuthnMiddleware.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{Auth: r.AuthService}

	r.Mux.Handle("POST /v1/auth/2fa/enable",
		r.authenticated(h.HandleEnable, httpx.RateLimitByUser(r.limits.Moderate)))
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		r.authenticated(h.HandleVerify, httpx.RateLimitByUser(r.limits.Strict)))
	r.Mux.Handle("POST /v1/auth/2fa/disable",
		r.authenticated(h.HandleDisable, httpx.RateLimitByUser(r.limits.Strict)))

	// The temporary token is checked by the service, not by AuthnMiddleware.
	r.Mux.Handle("POST /v1/auth/2fa/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService}

	r.Mux.Handle("GET /v1/users/me",
		r.authenticated(h.HandleMe, httpx.RateLimitByUser(r.limits.Lenient)))
	r.Mux.Handle("PUT /v1/users/me/password",
		r.authenticated(h.HandleChangePassword, httpx.RateLimitByUser(r.limits.Strict)))

	admin := httpx.RequireRole("admin")
	r.Mux.Handle("GET /v1/users",
		r.authenticated(h.HandleList, admin, httpx.RateLimitByUser(r.limits.Moderate)))
	r.Mux.Handle("GET /v1/users/{id}",
		r.authenticated(h.HandleGet, admin, httpx.RateLimitByUser(r.limits.Moderate)))
	r.Mux.Handle("PUT /v1/users/{id}",
		r.authenticated(h.HandleUpdate, admin, httpx.RateLimitByUser(r.limits.Moderate)))
	r.Mux.Handle("PUT /v1/users/{id}/block",
		r.authenticated(h.HandleSetBlocked, admin, httpx.RateLimitByUser(r.limits.Moderate)))
	r.Mux.Handle("DELETE /v1/users/{id}",
		r.authenticated(h.HandleDelete, admin, httpx.RateLimitByUser(r.limits.Moderate)))
}

func (r *Router) registerSystem() {
	// Probes are polled often; lenient per IP.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}
