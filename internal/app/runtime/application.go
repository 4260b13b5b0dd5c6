// Package runtime builds a running chirp server from configuration.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/chirp/internal/app"
	"github.com/R3E-Network/chirp/internal/app/httpapi"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/app/services/ratelimit"
	"github.com/R3E-Network/chirp/internal/app/storage/postgres"
	"github.com/R3E-Network/chirp/internal/config"
	"github.com/R3E-Network/chirp/internal/logging"
	"github.com/R3E-Network/chirp/internal/middleware"
	"github.com/R3E-Network/chirp/internal/platform/database"
	"github.com/R3E-Network/chirp/internal/platform/migrations"
)

const dialTimeout = 5 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logging.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sqlx.DB
	redis      redis.UniversalClient
}

// NewApplication opens the configured backends and builds the HTTP server.
// Backends that are not configured fall back to in-process implementations.
func NewApplication(cfg *config.Config, log *logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.New("chirp", cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.closeBackends()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	var stores app.Stores
	if cfg.Database.DSN != "" {
		if cfg.Database.AutoMigrate {
			if err := migrations.Up(cfg.Database.DSN); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		db, err := database.Open(ctx, database.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("configure stores: %w", err)
		}
		a.db = db
		store := postgres.New(db)
		stores = app.Stores{Posts: store, Comments: store}
	} else {
		log.Warn("DATABASE_URL not set; posts and comments are kept in memory")
	}

	limitCfg := ratelimit.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
		Prefix: cfg.RateLimit.Prefix,
	}
	var limiter ratelimit.Limiter
	var janitor *ratelimit.Janitor
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		rl := ratelimit.NewRedis(a.redis, limitCfg)
		if err := rl.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		limiter = rl
	} else {
		log.Warn("REDIS_URL not set; rate limits are tracked per process")
		mem := ratelimit.NewMemory(limitCfg)
		limiter = mem
		janitor = ratelimit.NewJanitor(mem, app.JanitorSchedule, log)
	}

	var directory identity.Directory
	if cfg.Identity.SecretKey != "" {
		client, err := identity.NewClient(identity.ClientConfig{
			BaseURL:    cfg.Identity.BaseURL,
			SecretKey:  cfg.Identity.SecretKey,
			Timeout:    cfg.Identity.Timeout,
			MaxRetries: cfg.Identity.MaxRetries,
			CacheSize:  cfg.Identity.CacheSize,
			CacheTTL:   cfg.Identity.CacheTTL,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("configure identity: %w", err)
		}
		directory = client
	}

	auth, err := buildAuth(cfg.Auth, log)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	application, err := app.New(stores, app.Deps{
		Directory: directory,
		Limiter:   limiter,
		Origins:   cfg.CORS.AllowedOrigins,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}
	if janitor != nil {
		application.Attach(janitor)
	}

	opts := httpapi.Options{
		Auth: auth,
		CORS: middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins),
	}
	if cfg.Server.FloodRPS > 0 {
		opts.Flood = middleware.NewRateLimiter(cfg.Server.FloodRPS, cfg.Server.FloodBurst, log)
		application.Attach(opts.Flood)
	}

	a.app = application
	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpapi.NewHandler(application, log, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ok = true
	return a, nil
}

// buildAuth prefers the RS256 public key. With neither key every request is
// anonymous.
func buildAuth(cfg config.AuthConfig, log *logging.Logger) (*middleware.AuthMiddleware, error) {
	var auth *middleware.AuthMiddleware
	switch {
	case cfg.PublicKey != "":
		key, err := middleware.ParseRSAPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		auth = middleware.NewRSAAuthMiddleware(key, log)
	case cfg.HMACSecret != "":
		log.Warn("AUTH_HMAC_SECRET in use; HS256 sessions are for development only")
		auth = middleware.NewHMACAuthMiddleware([]byte(cfg.HMACSecret), log)
	default:
		log.Warn("no session key configured; all requests are anonymous")
		return nil, nil
	}
	if cfg.Issuer != "" {
		auth.WithIssuer(cfg.Issuer)
	}
	return auth.WithAuthorizedParties(cfg.AuthorizedParties...), nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the background services and the HTTP server, and blocks until
// the context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, then the background services, then closes
// the backends.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	a.closeBackends()
	return errors.Join(errs...)
}

func (a *Application) closeBackends() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis client")
		}
		a.redis = nil
	}
}
