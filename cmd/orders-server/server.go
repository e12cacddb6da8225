package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/orders/internal/config"
	"github.com/ehr/orders/internal/domain/dispense"
	"github.com/ehr/orders/internal/domain/inventory"
	"github.com/ehr/orders/internal/domain/prescription"
	"github.com/ehr/orders/internal/platform/auth"
	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/internal/platform/middleware"
	"github.com/ehr/orders/internal/platform/svcclient"
)

const version = "0.1.0"

func init() {
	// Quantities go over the wire as JSON numbers, both to API callers and to
	// the service of record.
	decimal.MarshalJSONWithoutQuotes = true
}

// stores are the repositories behind the three domains, backed either by
// local tables or by the remote service of record.
type stores struct {
	lines     prescription.LineRepository
	dispenses dispense.Repository
	stock     inventory.StockRepository
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		lines:     prescription.NewLineRepoPG(pool),
		dispenses: dispense.NewDispenseRepoPG(pool),
		stock:     inventory.NewStockRepoPG(pool),
	}
}

func remoteStores(cfg *config.Config, logger zerolog.Logger) stores {
	client := svcclient.New(cfg.ServiceBaseURL, cfg.ServiceToken, cfg.ServiceTimeout,
		svcclient.WithLogger(logger.With().Str("component", "svcclient").Logger()))
	return stores{
		lines:     prescription.NewLineRepoRemote(client),
		dispenses: dispense.NewDispenseRepoRemote(client),
		stock:     inventory.NewStockRepoRemote(client),
	}
}

// newServer wires services, middleware and routes. pool is nil for the
// remote backend.
func newServer(cfg *config.Config, logger zerolog.Logger, st stores, pool *pgxpool.Pool, limiter *middleware.RateLimiter) *echo.Echo {
	prescriptionSvc := prescription.NewService(st.lines, cfg.GroupIdentifierSystem, cfg.GroupDiscoveryLimit)
	prescriptionSvc.SetLogger(logger.With().Str("component", "prescription").Logger())

	inventorySvc := inventory.NewService(st.stock)
	inventorySvc.SetLogger(logger.With().Str("component", "inventory").Logger())

	dispenseSvc := dispense.NewService(st.dispenses, prescriptionSvc, inventorySvc, cfg.DispenseListLimit)
	dispenseSvc.SetLogger(logger.With().Str("component", "dispense").Logger())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Tenant-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"backend": cfg.StoreBackend,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(limiter.Middleware())
	if pool != nil {
		apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	}

	prescription.NewHandler(prescriptionSvc).RegisterRoutes(apiV1)
	dispense.NewHandler(dispenseSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)

	return e
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: every API request is treated as an admin unless X-Dev-Roles is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pool *pgxpool.Pool
		st   stores
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err = db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		st = postgresStores(pool)
	case config.BackendRemote:
		st = remoteStores(cfg, logger)
		logger.Info().Str("base_url", cfg.ServiceBaseURL).Msg("using remote service of record")
	}

	limiter := middleware.NewRateLimiter(rateLimitConfig(cfg))
	go limiter.RunPruner(ctx, 30*time.Minute)

	e := newServer(cfg, logger, st, pool, limiter)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
