package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveMigrationsDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "migrations", "bigquery"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "cmd", "migrate")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	t.Run("from repository root", func(t *testing.T) {
		t.Chdir(root)
		got, err := resolveMigrationsDir("migrations/bigquery")
		if err != nil {
			t.Fatalf("resolveMigrationsDir failed: %v", err)
		}
		if got != "migrations/bigquery" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("from cmd directory", func(t *testing.T) {
		t.Chdir(nested)
		got, err := resolveMigrationsDir("migrations/bigquery")
		if err != nil {
			t.Fatalf("resolveMigrationsDir failed: %v", err)
		}
		if got != filepath.Join("..", "..", "migrations", "bigquery") {
			t.Errorf("got %s", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Chdir(nested)
		if _, err := resolveMigrationsDir("nowhere"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", "migrations", "bigquery"))
	if err != nil {
		t.Fatalf("reading migrations: %v", err)
	}
	if len(entries) < 3 {
		t.Errorf("found %d migrations, want at least 3", len(entries))
	}
}
