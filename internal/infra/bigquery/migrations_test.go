package bigquery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_goal_contributions.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.goal_contributions` (x INT64);")
	writeMigration(t, dir, "0001_transactions.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.transactions` (x INT64);")
	writeMigration(t, dir, "001_invalid.sql", "SELECT 1;")
	writeMigration(t, dir, "README.md", "notes")
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	migrations, err := ReadMigrations(context.Background(), dir, "proj", "goals")
	if err != nil {
		t.Fatalf("ReadMigrations failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "transactions" {
		t.Errorf("first migration = %d %s", migrations[0].Version, migrations[0].Name)
	}
	if migrations[1].Version != 2 || migrations[1].Name != "goal_contributions" {
		t.Errorf("second migration = %d %s", migrations[1].Version, migrations[1].Name)
	}
	if !strings.Contains(migrations[0].SQL, "`proj.goals.transactions`") {
		t.Errorf("placeholders not replaced: %s", migrations[0].SQL)
	}
	if len(migrations[0].Checksum) != 64 {
		t.Errorf("Checksum = %q, want sha256 hex", migrations[0].Checksum)
	}
}

func TestReadMigrations_ChecksumIgnoresTarget(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")

	first, err := ReadMigrations(context.Background(), dir, "p1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ReadMigrations(context.Background(), dir, "p2", "d2")
	if err != nil {
		t.Fatal(err)
	}
	if first[0].Checksum != second[0].Checksum {
		t.Error("checksum must not depend on project or dataset")
	}
	if first[0].SQL == second[0].SQL {
		t.Error("SQL must reflect project and dataset")
	}
}

func TestReadMigrations_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := ReadMigrations(context.Background(), filepath.Join(t.TempDir(), "nope"), "p", "d"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("duplicate version", func(t *testing.T) {
		dir := t.TempDir()
		writeMigration(t, dir, "0001_a.sql", "SELECT 1;")
		writeMigration(t, dir, "0001_b.sql", "SELECT 2;")
		if _, err := ReadMigrations(context.Background(), dir, "p", "d"); err == nil {
			t.Error("expected error for duplicate version")
		}
	})
}

func TestMigrationPattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
	}{
		{"0001_init_schema_migrations.sql", true},
		{"001_invalid.sql", false},
		{"0001_test", false},
		{"0001.sql", false},
		{"invalid_0001_test.sql", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := migrationPattern.MatchString(tt.filename); got != tt.valid {
				t.Errorf("match = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestPending(t *testing.T) {
	migrations := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	pending := Pending(migrations, applied)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("Pending = %+v, want only version 2", pending)
	}
	if got := Pending(migrations, nil); len(got) != 3 {
		t.Errorf("Pending with nothing applied = %d, want 3", len(got))
	}
}
