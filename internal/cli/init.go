// Package cli provides the common initialization shared by cmd/finpipe
// and cmd/finpipe-report.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"finpipe/internal/config"
	"finpipe/internal/storage"
)

// SetupLogger initializes structured logging and sets the default
// logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it. Exits the
// process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitRepository opens (and migrates) the pipeline database. Exits the
// process on failure.
func InitRepository(logger *slog.Logger, dbPath string) *storage.Repository {
	repo, err := storage.NewRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
