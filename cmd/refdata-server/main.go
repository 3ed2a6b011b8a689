package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cdss/refdata/internal/config"
	"github.com/cdss/refdata/internal/domain/icd10"
	"github.com/cdss/refdata/internal/domain/interaction"
	"github.com/cdss/refdata/internal/platform/auth"
	"github.com/cdss/refdata/internal/platform/catalog"
	"github.com/cdss/refdata/internal/platform/db"
	"github.com/cdss/refdata/internal/platform/middleware"
	"github.com/cdss/refdata/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "refdata-server",
		Short:        "Clinical reference data lookup service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(publishCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reference data API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// backends holds the optional connections that catalog sources and seeders
// use. Either field may be nil.
type backends struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func openBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{}
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		b.redis = redis.NewClient(opts)
	}
	return b, nil
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		b.redis.Close()
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development mode without AUTH_SIGNING_KEY: bearer tokens are not verified")
	}

	ctx := context.Background()
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to backends")
	}
	defer b.Close()

	icdLoader, err := newICD10Loader(cfg, b, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure ICD-10 source")
	}
	drugLoader, err := newDrugLoader(cfg, b, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure drug source")
	}

	// Load both catalogs in the background; requests arriving first wait on
	// the same in-flight load.
	go icdLoader.Load(ctx)
	go drugLoader.Load(ctx)

	icdSvc := icd10.NewService(icdLoader)
	drugSvc := interaction.NewService(drugLoader)

	e := newServer(cfg, logger)

	metrics := telemetry.NewRegistry(icdSvc.Status, drugSvc.Status)
	e.Use(metrics.Middleware())
	e.GET("/metrics", metrics.Handler())

	e.GET("/health", healthHandler(icdSvc.Status, drugSvc.Status))
	if b.pool != nil {
		e.GET("/health/db", db.HealthHandler(b.pool))
	}

	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	cacheCfg := middleware.DefaultCacheConfig()
	cacheCfg.ExcludePaths = []string{"/api/v1/icd10/status", "/api/v1/interactions/status"}
	apiV1.Use(middleware.ETag(cacheCfg))

	icd10.NewHandler(icdSvc).RegisterRoutes(apiV1, fhirGroup)
	interaction.NewHandler(drugSvc).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the Echo instance with the global middleware chain.
func newServer(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "If-None-Match"},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.LoadTimeout + 5*time.Second))

	switch {
	case cfg.AuthSigningKey != "":
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	case cfg.IsDev():
		e.Use(auth.DevAuthMiddleware())
	}
	return e
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                    `json:"status"`
	Version  string                    `json:"version"`
	Catalogs map[string]catalog.Status `json:"catalogs"`
}

// healthHandler reports "ok" when both catalogs are loaded from their
// primary sources, "degraded" when either runs on its fallback dataset and
// "loading" before the first load completes. It always answers 200: a
// fallback catalog still serves queries.
func healthHandler(statuses ...func() catalog.Status) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{Status: "ok", Version: version, Catalogs: make(map[string]catalog.Status, len(statuses))}
		for _, fn := range statuses {
			st := fn()
			resp.Catalogs[st.Name] = st
			switch {
			case !st.Loaded:
				if resp.Status == "ok" {
					resp.Status = "loading"
				}
			case st.UsingFallback:
				resp.Status = "degraded"
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}
