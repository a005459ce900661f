package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/config"
	"github.com/shopspring/decimal"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Backend:    backend,
			SQLitePath: filepath.Join(t.TempDir(), "goals.db"),
		},
		Jobs:     config.JobsConfig{Workers: 1, Buffer: 10},
		TimeZone: "UTC",
	}
}

func TestOpen(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			a, err := Open(ctx, testConfig(t, backend), nil)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer a.Close()

			if a.Ledger != nil {
				t.Error("ledger must be disabled without a BigQuery project")
			}

			user := auth.User{UID: "u1"}
			if _, err := a.Service.CreateGoal(ctx, user, "Car", "100", "1000"); err != nil {
				t.Fatalf("CreateGoal failed: %v", err)
			}
			if _, err := a.Service.InputPaycheck(ctx, user, decimal.NewFromInt(500), time.Now(), true); err != nil {
				t.Fatalf("InputPaycheck failed: %v", err)
			}

			goals, err := a.Service.ListGoals(ctx, user)
			if err != nil {
				t.Fatalf("ListGoals failed: %v", err)
			}
			if len(goals) != 1 || !goals[0].Balance.Equal(decimal.NewFromInt(100)) {
				t.Errorf("goals = %+v, want one goal with balance 100", goals)
			}
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := OpenStore(context.Background(), testConfig(t, "postgres")); err == nil {
		t.Error("expected error for unknown backend")
	}
}
