package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/dvloznov/goaltracker/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "goals.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.RecordStore {
		return newTestStore(t)
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "goals.db")
	ns := store.GoalsNamespace("u1")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id, err := s.Create(ctx, ns, store.Document{"name": "Car", "balance": "12.50"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	doc, err := reopened.Get(ctx, ns, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["balance"] != "12.50" {
		t.Errorf("balance = %v, want 12.50", doc["balance"])
	}
}

func TestStore_MergeCreatesMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ns := store.GoalsNamespace("u1")

	if err := s.Merge(ctx, ns, "fixed-id", store.Document{"name": "Upserted"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	doc, err := s.Get(ctx, ns, "fixed-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["name"] != "Upserted" {
		t.Errorf("name = %v", doc["name"])
	}
}
