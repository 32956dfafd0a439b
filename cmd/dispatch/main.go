package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"pubhook/internal/engine/hooks"
	"pubhook/internal/engine/settings"
	"pubhook/internal/engine/webhooks"
	"pubhook/internal/pkg/logger"
	"pubhook/internal/platform/config"
	"pubhook/internal/platform/database"
	"pubhook/internal/platform/repositories"
)

// dispatch fires one save trigger through the same wiring the server uses.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	triggerName := flag.String("trigger", string(hooks.SavePost), "Trigger: save_post, save_page or acf_save_post")
	id := flag.String("id", "", "Content item id")
	status := flag.String("status", webhooks.StatusPublish, "Content item status")

	flag.Parse()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "--id flag required")
		os.Exit(2)
	}

	trigger, err := hooks.ParseTrigger(*triggerName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

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

	optionRepo := repositories.NewOptionRepository(db)
	resolver := settings.NewResolver(optionRepo, settings.NewOverrides(cfg.Overrides))

	registry := hooks.NewRegistry()
	dispatcher := webhooks.NewDispatcher(resolver, cfg.Dispatch, nil)
	if err := dispatcher.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register dispatcher")
	}

	if err := registry.Fire(context.Background(), trigger, hooks.SaveEvent{ID: *id, Status: *status}); err != nil {
		log.Fatal().Err(err).Msg("failed to fire trigger")
	}
}
