package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/config"
	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/handler"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/cache"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/client"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/resilience"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/supabase"
	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_schedule_periods", cfg.MaxSchedulePeriods),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), "flash-loan", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	summaryCache := cache.New[*domain.IBVSummary](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	zumrailsCB := resilience.NewCircuitBreaker("zumrails")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	provider := client.NewZumrails(
		httpClient,
		cfg.ZumrailsURL,
		cfg.ZumrailsAPIKey,
		zumrailsCB,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	loansSvc := service.NewLoans(store, metrics, logger, cfg.NSFFee, cfg.DeferralFee, cfg.MaxSchedulePeriods)
	verificationSvc := service.NewVerification(provider, store, summaryCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(loansSvc, verificationSvc, metrics, logger, cfg.JWTSecret)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
