package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"pubhook/internal/pkg/logger"
	"pubhook/internal/platform/config"
	"pubhook/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dir := flag.String("dir", "migrations", "Directory holding .sql migrations")

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

	if err := database.Migrate(db, *dir); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	fmt.Println("Migration completed successfully")
}
