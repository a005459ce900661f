// Package storetest holds the behaviour every store.RecordStore backend must show.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/dvloznov/goaltracker/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.RecordStore) {
	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ns := store.GoalsNamespace("u1")

		id, err := s.Create(ctx, ns, store.Document{"name": "Vacation", "balance": "0"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}

		doc, err := s.Get(ctx, ns, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if doc["name"] != "Vacation" || doc["balance"] != "0" {
			t.Errorf("Get returned %v", doc)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), store.GoalsNamespace("u1"), "missing")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListIsNamespaced", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, name := range []string{"a", "b"} {
			if _, err := s.Create(ctx, store.GoalsNamespace("u1"), store.Document{"name": name}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}
		if _, err := s.Create(ctx, store.GoalsNamespace("u2"), store.Document{"name": "other"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		records, err := s.List(ctx, store.GoalsNamespace("u1"))
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("List returned %d records, want 2", len(records))
		}

		empty, err := s.List(ctx, store.TransactionsNamespace("u1"))
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected empty namespace, got %d records", len(empty))
		}
	})

	t.Run("MergeKeepsOtherFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ns := store.GoalsNamespace("u1")

		id, err := s.Create(ctx, ns, store.Document{"name": "Car", "balance": "10"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := s.Merge(ctx, ns, id, store.Document{"balance": "20"}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}

		doc, err := s.Get(ctx, ns, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if doc["name"] != "Car" || doc["balance"] != "20" {
			t.Errorf("after merge got %v", doc)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ns := store.TransactionsNamespace("u1")

		id, err := s.Create(ctx, ns, store.Document{"description": "x"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := s.Delete(ctx, ns, id); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, ns, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("TransactionRollsBackOnError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ns := store.GoalsNamespace("u1")

		id, err := s.Create(ctx, ns, store.Document{"balance": "1"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		boom := errors.New("boom")
		err = s.RunInTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.Get(ctx, ns, id); err != nil {
				return err
			}
			if err := tx.Merge(ctx, ns, id, store.Document{"balance": "2"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("RunInTransaction error = %v, want boom", err)
		}

		doc, err := s.Get(ctx, ns, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if doc["balance"] != "1" {
			t.Errorf("balance = %v, want unchanged 1", doc["balance"])
		}
	})

	t.Run("TransactionSerializesReadModifyWrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ns := store.GoalsNamespace("u1")

		id, err := s.Create(ctx, ns, store.Document{"count": "0"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.RunInTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
					doc, err := tx.Get(ctx, ns, id)
					if err != nil {
						return err
					}
					next := increment(doc["count"].(string))
					return tx.Merge(ctx, ns, id, store.Document{"count": next})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("RunInTransaction failed: %v", err)
			}
		}

		doc, err := s.Get(ctx, ns, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if doc["count"] != "8" {
			t.Errorf("count = %v, want 8", doc["count"])
		}
	})
}

func increment(s string) string {
	n, _ := strconv.Atoi(s)
	return strconv.Itoa(n + 1)
}
