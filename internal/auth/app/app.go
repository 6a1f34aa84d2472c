package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/storefront/internal/auth/http"
	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/totpx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	redis *goredis.Client // nil unless REDIS_URL is set

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRevocations(); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the routed HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens SQLite and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqliteDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, dirty, err := db.SchemaVersion()
	if err == nil && dirty {
		err = fmt.Errorf("migration %d left the schema dirty", version)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to check database schema: %w", err)
	}

	app.logger.Info("database migrations applied", "file", app.cfg.DatabaseFile, "schema_version", version)
	return nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)"
}

// initRevocations moves the revocation list to Redis when REDIS_URL is set.
func (app *Application) initRevocations() error {
	if app.cfg.RedisURL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.db = store.WithRevocations(app.db, redis.NewRevokedTokens(client))
	app.db = store.WithLoginAttempts(app.db, redis.NewLoginAttempts(client))

	app.logger.Info("token revocations and failed logins stored in redis")
	return nil
}

// initServices builds the business logic services. They are shared by
// every request.
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewArgon2Hasher(pepper)

	signer, verifier, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT keys: %w", err)
	}

	app.tokenService = &service.TokenService{
		Signer:     signer,
		Verifier:   verifier,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: hasher,
		Tokens: app.tokenService,
		TOTP:   totpx.New(app.cfg.TOTPIssuer),

		MaxFailedLogins:   app.cfg.MaxFailedLogins,
		FailedLoginWindow: app.cfg.FailedLoginWindow,
	}
	app.userService = &service.UserService{Store: app.db, Hasher: hasher}

	if err := app.seedAdmin(hasher); err != nil {
		return err
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// seedAdmin ensures the configured administrator exists.
func (app *Application) seedAdmin(hasher service.PasswordHasher) error {
	seed := domain.AdminSeed{
		Email:     app.cfg.AdminEmail,
		Password:  app.cfg.AdminPassword,
		FirstName: "Admin",
	}
	if !seed.Configured() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bootstrap := &service.BootstrapService{Store: app.db, Hasher: hasher}
	admin, err := bootstrap.EnsureAdmin(slogx.WithContext(ctx, app.logger), seed)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	app.logger.Info("admin user ready", "user_id", admin.ID)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.RateLimits,
		app.cfg.AllowedHosts,
	)

	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
