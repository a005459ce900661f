package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/goaltracker/internal/api"
	"github.com/dvloznov/goaltracker/internal/api/handlers"
	"github.com/dvloznov/goaltracker/internal/app"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/config"
	"github.com/dvloznov/goaltracker/internal/gcs"
	"github.com/dvloznov/goaltracker/internal/jobs"
	"github.com/dvloznov/goaltracker/internal/jobs/inmemory"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notify"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (defaults to ./config.yaml when present)")
		port       = flag.Int("port", 0, "HTTP server port (overrides server.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("auth.secret (GOALS_AUTH_SECRET) is required to serve the API")
	}
	tokens, err := auth.NewTokens(cfg.Auth.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tokens")
	}

	ctx := logger.WithContext(context.Background(), log)

	broadcaster := notify.NewBroadcaster(16)
	defer broadcaster.Close()

	a, err := app.Open(ctx, cfg, broadcaster)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Statement source: Cloud Storage when a bucket is configured.
	var source gcs.StatementSource = gcs.NewLocalService()
	if cfg.GCS.Bucket != "" {
		svc, err := gcs.NewService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer svc.Close()
		source = svc
	} else {
		log.Warn().Msg("No GCS bucket configured - gs:// imports will fail")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.Buffer, cfg.Jobs.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewImportHandler(a.Service, source)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	var history handlers.ContributionHistory
	if a.Ledger != nil {
		history = a.Ledger
	}

	handler := api.NewRouter(api.Deps{
		Service:     a.Service,
		History:     history,
		Events:      broadcaster,
		Publisher:   jobQueue,
		JobStore:    jobStore,
		Tokens:      tokens,
		Location:    mustLocation(cfg),
		Log:         log,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxBodySize: cfg.Server.MaxBodySize,
		RatePerSec:  cfg.RateLimit.PerSecond,
		RateBurst:   cfg.RateLimit.Burst,
	})

	// No WriteTimeout: /api/events responses stay open.
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("backend", cfg.Store.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close event streams first so Shutdown does not wait on them.
	broadcaster.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

func mustLocation(cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		return time.Local
	}
	return loc
}
