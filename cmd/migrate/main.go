package main

import (
	"context"
	"os"

	"github.com/hygiapro/bookings/migrations"
	"github.com/hygiapro/bookings/pkg/config"
	"github.com/hygiapro/bookings/pkg/database"
	"github.com/hygiapro/bookings/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetDefault(logger.New(cfg.Env, os.Getenv("LOG_LEVEL")))
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("Migration failed", "error", err)
		pool.Close()
		os.Exit(1)
	}
}
