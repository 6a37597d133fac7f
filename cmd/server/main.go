// Command server runs the PromptPolish HTTP API.
//
// @title                      PromptPolish API
// @version                    1.0
// @description                Prompt enhancement with credit-based billing, Stripe checkout and ad rewards.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/promptpolish-backend/docs"
	"github.com/tbourn/promptpolish-backend/internal/auth"
	"github.com/tbourn/promptpolish-backend/internal/config"
	httpapi "github.com/tbourn/promptpolish-backend/internal/http"
	"github.com/tbourn/promptpolish-backend/internal/llm"
	"github.com/tbourn/promptpolish-backend/internal/observability"
	"github.com/tbourn/promptpolish-backend/internal/payments"
	"github.com/tbourn/promptpolish-backend/internal/repo"
	"github.com/tbourn/promptpolish-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version string

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	// Local runs read .env; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, ver)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database setup failed")
	}

	deps := httpapi.Deps{}
	if cfg.Auth.JWKSURL != "" {
		v, err := auth.NewVerifier(ctx, cfg.Auth)
		if err != nil {
			log.Fatal().Err(err).Msg("auth verifier setup failed")
		}
		deps.Verifier = v
	}
	// Assigned only when configured so the interfaces stay nil otherwise.
	if p := payments.NewStripe(cfg.Stripe); p != nil {
		deps.Processor = p
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set: payment routes will fail")
	}
	if c := llm.NewGroq(cfg.Groq); c != nil {
		deps.Completer = c
	} else {
		log.Warn().Msg("GROQ_API_KEY not set: prompt polishing will fail")
	}

	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	httpapi.RegisterRoutes(r, db, cfg, deps)
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = ver
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	go purgeIdempotency(ctx, db, purgeInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("mode", cfg.GinMode).
			Str("db", cfg.DB.Driver).
			Str("stripe_key", sysutil.Mask(cfg.Stripe.SecretKey)).
			Bool("auth_disabled", cfg.Auth.Disabled).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// openDB connects, installs the tracing plugin and migrates the schema.
func openDB(cfg config.Config) (*gorm.DB, error) {
	lvl := logger.Warn
	if cfg.LogLevel == "debug" {
		lvl = logger.Info
	}
	db, err := repo.Open(cfg.DB, &gorm.Config{Logger: logger.Default.LogMode(lvl)})
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// purgeIdempotency deletes expired Idempotency-Key records every interval
// until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
