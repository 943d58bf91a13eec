package main

import (
	"log/slog"
	"os"

	"binwatch-backend/internal/database"
	"binwatch-backend/pkg/config"
	"binwatch-backend/pkg/logging"
)

// Applies the history archive schema to DATABASE_URL.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.Server.LogLevel))

	if !cfg.Database.Enabled() {
		slog.Error("DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Migration completed successfully")
}
