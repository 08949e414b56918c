package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-relay-backend/config"
	_ "contact-relay-backend/docs" // Important for Swagger
	v1 "contact-relay-backend/internal/delivery/http/v1"
	"contact-relay-backend/internal/metrics"
	"contact-relay-backend/internal/usecase"
	"contact-relay-backend/pkg/email"
	"contact-relay-backend/pkg/logger"
	"contact-relay-backend/pkg/ratelimit"
	"contact-relay-backend/pkg/redis"
	"contact-relay-backend/pkg/security"
	"contact-relay-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// @title           Contact Relay API
// @version         1.0
// @description     Relays contact form submissions to the site owner by email.
// @host            localhost:3000
// @BasePath        /
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	zl := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		LogFile:     cfg.LogFile,
	})
	defer func() { _ = zl.Sync() }()
	zl.Info("Starting contact relay",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("provider", cfg.EmailProvider),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zl); err != nil {
		zl.Error("Server exited with error", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	zl.Info("Server exiting")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Metrics
	m := metrics.New()

	// 4. Setup Email Backend
	backend, timeout, closeBackend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	dispatcher := email.NewDispatcher(backend, timeout,
		email.WithLogger(zl.Named("dispatcher")),
		email.WithDurationHistogram(m.DispatchHistogram()),
	)
	if err := dispatcher.Ready(); err != nil {
		zl.Warn("Email backend not fully configured - contact form will report a configuration error", zap.Error(err))
	}

	// 5. Setup Rate Limiter (Redis when configured, in-memory ledger otherwise)
	limitCfg := ratelimit.Config{MaxRequests: cfg.RateLimitMaxRequests, Window: cfg.RateLimitWindow}
	var (
		limiter     ratelimit.Limiter
		ledger      *ratelimit.Ledger
		redisHealth func() error
	)
	redisClient, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	switch {
	case err == nil:
		defer func() { _ = redisClient.Close() }()
		store := ratelimit.NewRedisStore(redisClient, limitCfg, zl.Named("ratelimit"))
		limiter, ledger = store, store.Fallback()
		redisHealth = redis.HealthCheck(redisClient)
		zl.Info("Rate limiting backed by Redis")
	case errors.Is(err, redis.ErrNotConfigured):
		ledger = ratelimit.NewLedger(limitCfg)
		limiter = ledger
	default:
		zl.Warn("Redis unavailable, using in-memory rate limiting", zap.Error(err))
		ledger = ratelimit.NewLedger(limitCfg)
		limiter = ledger
	}

	// 6. Setup UseCases
	secLogger := security.NewSecurityLogger(zl, "contact-relay", cfg.AppEnv)
	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Mailer:    dispatcher,
		Limiter:   limiter,
		Validate:  validation.New(),
		Addresses: email.Addresses{From: cfg.EmailFrom, To: cfg.ContactEmailTo},
		Logger:    zl,
		Security:  secLogger,
		Metrics:   m,
	})
	healthUC := usecase.NewHealthUsecase(usecase.HealthDeps{Mailer: dispatcher, Redis: redisHealth})

	// 7. Setup Router
	router, err := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  healthUC,
		Metrics:   m,
		Config:    cfg,
		Logger:    zl,
	})
	if err != nil {
		return err
	}

	// 8. Start Server and ledger sweeper
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return ledger.Run(gctx, cfg.RateLimitSweep)
	})
	g.Go(func() error {
		// Graceful Shutdown
		<-gctx.Done()
		zl.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newBackend selects the delivery backend and its default dispatch timeout.
func newBackend(cfg *config.Config) (email.Backend, time.Duration, func(), error) {
	switch cfg.EmailProvider {
	case config.ProviderResend:
		b, err := email.NewResendBackend(email.ResendConfig{APIKey: cfg.ResendAPIKey, Sender: cfg.EmailFrom, BaseURL: cfg.ResendBaseURL})
		if err != nil {
			return nil, 0, nil, err
		}
		return b, timeoutOr(cfg.EmailTimeout, email.DefaultAPITimeout), func() {}, nil
	default:
		b := email.NewSMTPBackend(email.SMTPConfig{
			Host:                 cfg.SMTPHost,
			Port:                 cfg.SMTPPort,
			Username:             cfg.SMTPUsername,
			Password:             cfg.SMTPPassword,
			Sender:               cfg.EmailFrom,
			TLSMode:              cfg.SMTPTLSMode,
			AllowUnauthenticated: cfg.SMTPAllowUnauthenticated,
			MaxConnections:       cfg.SMTPMaxConnections,
			MaxMessages:          cfg.SMTPMaxMessages,
			RateLimit:            cfg.SMTPRateLimit,
			RateWindow:           cfg.SMTPRateWindow,
		})
		return b, timeoutOr(cfg.EmailTimeout, email.DefaultSMTPTimeout), func() { _ = b.Close() }, nil
	}
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
