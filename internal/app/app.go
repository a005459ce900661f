// Package app assembles the record store, ledger sink and goal service from
// configuration for the commands in cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/goaltracker/internal/config"
	infraBQ "github.com/dvloznov/goaltracker/internal/infra/bigquery"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notify"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/dvloznov/goaltracker/internal/records"
	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/dvloznov/goaltracker/internal/store/firestore"
	"github.com/dvloznov/goaltracker/internal/store/memory"
	"github.com/dvloznov/goaltracker/internal/store/sqlite"
)

// App holds the wired components. Ledger is nil when BigQuery is not
// configured.
type App struct {
	Store    store.RecordStore
	Repo     *records.Repository
	Ledger   *infraBQ.LedgerRepository
	Notifier notify.Notifier
	Service  *pipeline.Service
}

// OpenStore opens the backend selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.RecordStore, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	case config.BackendFirestore:
		s, err := firestore.Open(ctx, cfg.Store.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown backend %q", cfg.Store.Backend)
	}
}

// Open wires every component. notifier may be nil.
func Open(ctx context.Context, cfg *config.Config, notifier notify.Notifier) (*App, error) {
	log := logger.FromContext(ctx)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	s, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	log.Info().Str("backend", cfg.Store.Backend).Msg("Record store opened")

	a := &App{
		Store:    s,
		Repo:     records.NewRepository(s, records.WithLocation(loc)),
		Notifier: notifier,
	}

	opts := []pipeline.Option{pipeline.WithLocation(loc)}
	if cfg.BigQuery.Project != "" {
		ledger, err := infraBQ.NewLedgerRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.Ledger = ledger
		opts = append(opts, pipeline.WithLedgerSink(ledger))
		log.Info().
			Str("project", cfg.BigQuery.Project).
			Str("dataset", cfg.BigQuery.Dataset).
			Msg("BigQuery ledger enabled")
	} else {
		log.Debug().Msg("No BigQuery project configured; ledger disabled")
	}

	a.Service = pipeline.NewService(a.Repo, notifier, opts...)
	return a, nil
}

// Close releases the ledger client and the store.
func (a *App) Close() error {
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			a.Store.Close()
			return fmt.Errorf("Close: ledger: %w", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("Close: store: %w", err)
	}
	return nil
}
