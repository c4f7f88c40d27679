// Shoply database seeder. Populates the catalog with sample products.
// Usage: seed [--force]  (--force replaces all existing products)
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/dkrylov/shoply/internal/config"
	"github.com/dkrylov/shoply/internal/seed"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	force := flag.Bool("force", false, "replace all existing products")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := seed.Products(context.Background(), repo, *force); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}
