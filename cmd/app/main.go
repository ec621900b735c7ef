package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stripe-installments/internal/config"
	"stripe-installments/internal/domain/ports/repository"
	pg "stripe-installments/internal/infra/db"
	"stripe-installments/internal/infra/logging"
	"stripe-installments/internal/infra/metrics"
	"stripe-installments/internal/infra/payment"
	red "stripe-installments/internal/infra/redis"
	"stripe-installments/internal/infra/web"
	"stripe-installments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	if cfg.Stripe.SecretKey == "" {
		// Deliberately not fatal: requests will answer with a configuration
		// error until the key is deployed.
		logger.Warn().Msg("stripe secret key not configured")
	}

	// ---- Idempotency store ----
	var store repository.EventStore
	switch cfg.Dedup.Backend {
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		pgStore := pg.NewPostgresEventStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		store = pgStore
	default:
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		store = red.NewEventStore(redisClient, cfg.Dedup.TTL)
	}
	logger.Info().Str("backend", cfg.Dedup.Backend).Msg("idempotency store ready")

	// ---- Provider gateway (constructed once, injected everywhere) ----
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey)

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(gateway, cfg.Plan, logger)
	hooks := usecase.NewLifecycleHooks(gateway, logger)
	webhookUC := usecase.NewWebhookUseCase(gateway, store, hooks, cfg.Stripe.WebhookSecret, logger)

	// ---- HTTP server ----
	srv := web.NewServer(cfg, planUC, webhookUC, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
