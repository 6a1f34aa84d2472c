package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "storefront-auth", cfg.Issuer)
	require.Equal(t, jwtx.AlgHS256, cfg.Algorithm)
	require.Equal(t, 60*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, "Storefront", cfg.TOTPIssuer)
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "dev", cfg.Env)
	require.Empty(t, cfg.AllowedHosts)
	require.Equal(t, 3, cfg.MaxFailedLogins)
	require.Equal(t, 15*time.Minute, cfg.FailedLoginWindow)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "https://auth.shop.example")
	t.Setenv("AUTH_ALGORITHM", "EdDSA")
	t.Setenv("AUTH_PRIVATE_KEY_FILE", "/keys/auth.pem")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "720h")
	t.Setenv("ALLOWED_HOSTS", "https://shop.example, https://admin.shop.example,")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_MAX_FAILED_LOGINS", "0")
	t.Setenv("AUTH_FAILED_LOGIN_WINDOW", "1h")
	t.Setenv("HOUSEKEEPING_INTERVAL", "bogus")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "50")
	t.Setenv("ENV", "prod")

	cfg := LoadConfig()

	require.Equal(t, "https://auth.shop.example", cfg.Issuer)
	require.Equal(t, jwtx.AlgEdDSA, cfg.Algorithm)
	require.Equal(t, "/keys/auth.pem", cfg.PrivateKeyFile)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, []string{"https://shop.example", "https://admin.shop.example"}, cfg.AllowedHosts)
	require.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	require.Equal(t, 9090, cfg.Port)
	require.Zero(t, cfg.MaxFailedLogins)
	require.Equal(t, time.Hour, cfg.FailedLoginWindow)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, 50, cfg.RateLimits.Strict.RequestsPerWindow)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := LoadConfig()
	base.Env = "prod"
	base.SecretKey = "0123456789abcdef0123456789abcdef"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.SecretKey = "short" }, "AUTH_SECRET_KEY"},
		{"missing secret", func(c *Config) { c.SecretKey = "" }, "AUTH_SECRET_KEY"},
		{"eddsa without key", func(c *Config) { c.Algorithm = jwtx.AlgEdDSA }, "AUTH_PRIVATE_KEY_FILE"},
		{"unknown algorithm", func(c *Config) { c.Algorithm = "RS256" }, "unsupported"},
		{"refresh shorter than access", func(c *Config) { c.RefreshTokenTTL = time.Minute }, "AUTH_REFRESH_TOKEN_TTL"},
		{"zero ttl", func(c *Config) { c.AccessTokenTTL = 0 }, "positive"},
		{"negative lockout", func(c *Config) { c.MaxFailedLogins = -1 }, "AUTH_MAX_FAILED_LOGINS"},
		{"zero lockout window", func(c *Config) { c.FailedLoginWindow = 0 }, "AUTH_FAILED_LOGIN_WINDOW"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"admin email alone", func(c *Config) { c.AdminEmail = "admin@example.com" }, "AUTH_ADMIN_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("dev tolerates missing secrets", func(t *testing.T) {
		cfg := base
		cfg.Env = "dev"
		cfg.SecretKey = ""
		require.NoError(t, cfg.Validate())

		cfg.Algorithm = jwtx.AlgEdDSA
		require.NoError(t, cfg.Validate())
	})
}
