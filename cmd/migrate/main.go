package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/goaltracker/internal/config"
	infraBQ "github.com/dvloznov/goaltracker/internal/infra/bigquery"
	"github.com/dvloznov/goaltracker/internal/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to config file (defaults to ./config.yaml when present)")
		projectID     = flag.String("project", "", "GCP project ID (overrides bigquery.project)")
		datasetID     = flag.String("dataset", "", "BigQuery dataset ID (overrides bigquery.dataset)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *projectID == "" {
		*projectID = cfg.BigQuery.Project
	}
	if *datasetID == "" {
		*datasetID = cfg.BigQuery.Dataset
	}
	if *projectID == "" {
		log.Fatal().Msg("-project flag or bigquery.project is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	migrations, err := infraBQ.ReadMigrations(ctx, dir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	migrator := infraBQ.NewMigratorWithClient(client, *projectID, *datasetID, *appliedBy)
	count, err := migrator.Up(ctx, migrations)
	if err != nil {
		log.Fatal().Err(err).Int("applied", count).Msg("Migration failed")
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
		return
	}
	log.Info().Int("applied", count).Msg("Migrations applied")
}

// resolveMigrationsDir finds dir relative to the working directory, falling
// back to the repository root when run from cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	candidates := []string{dir}
	if !filepath.IsAbs(dir) {
		candidates = append(candidates, filepath.Join("..", "..", dir))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}
