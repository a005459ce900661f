package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/goaltracker/internal/app"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/config"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notionsync"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ./config.yaml when present)")
	userID := flag.String("user", os.Getenv("GOALS_USER"), "User whose goals to sync (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (overrides notion.token)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (overrides notion.database_id)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or notion.token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or notion.database_id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log.With().Str("user_id", *userID).Logger())

	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	goals, err := a.Service.ListGoals(ctx, auth.User{UID: *userID})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list goals")
	}

	report, err := notionsync.SyncGoals(ctx, notionsync.NewNotionClient(*notionToken), *notionDBID, goals, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n",
		report.Created, report.Updated, report.Archived, report.Failed)
}
