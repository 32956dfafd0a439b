package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"pubhook/internal/api"
	"pubhook/internal/api/handlers"
	"pubhook/internal/api/middleware"
	"pubhook/internal/engine/hooks"
	"pubhook/internal/engine/settings"
	"pubhook/internal/engine/webhooks"
	"pubhook/internal/pkg/logger"
	"pubhook/internal/platform/auth"
	"pubhook/internal/platform/config"
	"pubhook/internal/platform/database"
	"pubhook/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open options database")
	}
	defer db.Close()

	// Repositories
	optionRepo := repositories.NewOptionRepository(db)

	// Settings
	page := settings.DefaultPage()
	if err := page.Setup(context.Background(), optionRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to register settings")
	}
	overrides := settings.NewOverrides(cfg.Overrides)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Dispatcher, bound once to the save triggers
	hookRegistry := hooks.NewRegistry()
	dispatcher := webhooks.NewDispatcher(settings.NewResolver(optionRepo, overrides), cfg.Dispatch, webhooks.NewMetrics(registry))
	if err := dispatcher.Register(hookRegistry); err != nil {
		log.Fatal().Err(err).Msg("failed to register dispatcher")
	}

	if cfg.Hooks.Secret == "" {
		log.Warn().Msg("hooks.secret is empty, inbound hooks are not authenticated")
	}

	tokenSvc, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("set jwt.secret (or JWT_SECRET) before starting the server")
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.HooksPerMinute)

	deps := &api.Dependencies{
		HookHandler:         handlers.NewHookHandler(hookRegistry),
		SettingsHandler:     handlers.NewSettingsHandler(page, optionRepo, overrides),
		AuthHandler:         handlers.NewAuthHandler(auth.NewAuthenticator(cfg.Admin), tokenSvc),
		HealthHandler:       handlers.NewHealthHandler(db),
		MetricsHandler:      handlers.NewMetricsHandler(registry),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		SignatureMiddleware: middleware.NewSignatureMiddleware(cfg.Hooks.Secret),
		RateLimiter:         rateLimiter,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepRateLimiter(ctx, rateLimiter)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func sweepRateLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep(10 * time.Minute)
		}
	}
}
