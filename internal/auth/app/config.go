package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

type Config struct {
	Issuer          string        // iss claim (default: storefront-auth)
	Algorithm       string        // HS256, HS384, HS512 or EdDSA (default: HS256)
	SecretKey       string        // HMAC secret, at least 32 bytes outside dev
	PrivateKeyFile  string        // PEM Ed25519 key for EdDSA, created if missing
	AccessTokenTTL  time.Duration // default: 60m
	RefreshTokenTTL time.Duration // default: 1440m
	TOTPIssuer      string        // issuer shown in authenticator apps (default: Storefront)

	MaxFailedLogins   int           // wrong passwords tolerated before blocking; 0 disables (default: 3)
	FailedLoginWindow time.Duration // failures older than this are forgotten (default: 15m)

	DatabaseFile string   // SQLite file (default: ./auth.db)
	PepperFile   string   // password pepper, created if missing (default: ./pepper)
	RedisURL     string   // optional revocation backend
	AllowedHosts []string // CORS origins, comma separated; empty or * allows any

	AdminEmail    string // seeded admin account, skipped when empty
	AdminPassword string

	Env                  string        // dev, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // default: 8080
	ShutdownGracePeriod  time.Duration // default: 10s
	HousekeepingInterval time.Duration // default: 1h

	RateLimits httpx.RateLimits // RATELIMIT_* overrides
}

func LoadConfig() Config {
	return Config{
		Issuer:          getEnvOrDefault("AUTH_ISSUER", "storefront-auth"),
		Algorithm:       getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgHS256),
		SecretKey:       os.Getenv("AUTH_SECRET_KEY"),
		PrivateKeyFile:  os.Getenv("AUTH_PRIVATE_KEY_FILE"),
		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		TOTPIssuer:      getEnvOrDefault("AUTH_TOTP_ISSUER", "Storefront"),

		MaxFailedLogins:   getEnvIntOrDefault("AUTH_MAX_FAILED_LOGINS", service.DefaultMaxFailedLogins),
		FailedLoginWindow: getEnvDurationOrDefault("AUTH_FAILED_LOGIN_WINDOW", service.DefaultFailedLoginWindow),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		RedisURL:     os.Getenv("REDIS_URL"),
		AllowedHosts: splitList(os.Getenv("ALLOWED_HOSTS")),

		AdminEmail:    os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		RateLimits: httpx.RateLimitsFromEnv(),
	}
}

// IsDev reports whether insecure fallbacks (generated secrets, ephemeral
// keys) are allowed.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	var errs []error

	switch {
	case jwtx.IsHMAC(c.Algorithm):
		if len(c.SecretKey) < jwtx.MinHMACSecretLength && !c.IsDev() {
			errs = append(errs, fmt.Errorf("AUTH_SECRET_KEY must be at least %d bytes for %s",
				jwtx.MinHMACSecretLength, c.Algorithm))
		}
	case c.Algorithm == jwtx.AlgEdDSA:
		if c.PrivateKeyFile == "" && !c.IsDev() {
			errs = append(errs, errors.New("AUTH_PRIVATE_KEY_FILE is required for EdDSA"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_ALGORITHM %q", c.Algorithm))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TOKEN_TTL must not be shorter than AUTH_ACCESS_TOKEN_TTL"))
	}
	if c.MaxFailedLogins < 0 {
		errs = append(errs, errors.New("AUTH_MAX_FAILED_LOGINS must not be negative"))
	}
	if c.FailedLoginWindow <= 0 {
		errs = append(errs, errors.New("AUTH_FAILED_LOGIN_WINDOW must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.DatabaseFile == "" {
		errs = append(errs, errors.New("AUTH_DATABASE_FILE must not be empty"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("AUTH_ADMIN_EMAIL and AUTH_ADMIN_PASSWORD must be set together"))
	}
	if c.HousekeepingInterval <= 0 {
		errs = append(errs, errors.New("HOUSEKEEPING_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

// getEnvDurationOrDefault accepts a Go duration ("90s", "1h") or a bare
// number of minutes.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
