package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of store.RecordStore.
// It is safe for concurrent use. Data is lost on restart - use the sqlite or
// firestore backend for persistence.
type Store struct {
	mu    sync.RWMutex
	seq   int64
	items map[string]map[string]*entry // namespace -> id -> entry
}

type entry struct {
	seq  int64
	data store.Document
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]map[string]*entry),
	}
}

// Create implements store.RecordStore.
func (s *Store) Create(ctx context.Context, namespace string, doc store.Document) (string, error) {
	if namespace == "" {
		return "", fmt.Errorf("namespace is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.put(namespace, id, doc.Clone())
	return id, nil
}

// Get implements store.RecordStore.
func (s *Store) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(namespace, id)
}

// List implements store.RecordStore. Records come back in insertion order.
func (s *Store) List(ctx context.Context, namespace string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.items[namespace]
	result := make([]store.Record, 0, len(ns))
	seqs := make(map[string]int64, len(ns))
	for id, e := range ns {
		// Return a copy to avoid external modifications
		result = append(result, store.Record{ID: id, Data: e.data.Clone()})
		seqs[id] = e.seq
	}
	sort.Slice(result, func(i, j int) bool {
		return seqs[result[i].ID] < seqs[result[j].ID]
	})

	return result, nil
}

// Merge implements store.RecordStore.
func (s *Store) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.merge(namespace, id, fields)
	return nil
}

// Delete implements store.RecordStore.
func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items[namespace], id)
	return nil
}

// RunInTransaction implements store.RecordStore. The store is locked for the
// whole of fn, and merges are staged until fn returns nil. fn must not call
// back into the Store directly.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		s.merge(w.namespace, w.id, w.fields)
	}
	return nil
}

// Close implements store.RecordStore.
func (s *Store) Close() error {
	return nil
}

func (s *Store) get(namespace, id string) (store.Document, error) {
	e, ok := s.items[namespace][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.data.Clone(), nil
}

func (s *Store) put(namespace, id string, doc store.Document) {
	ns, ok := s.items[namespace]
	if !ok {
		ns = make(map[string]*entry)
		s.items[namespace] = ns
	}
	s.seq++
	ns[id] = &entry{seq: s.seq, data: doc}
}

func (s *Store) merge(namespace, id string, fields store.Document) {
	e, ok := s.items[namespace][id]
	if !ok {
		s.put(namespace, id, fields.Clone())
		return
	}
	for k, v := range fields {
		e.data[k] = v
	}
}

type pendingWrite struct {
	namespace string
	id        string
	fields    store.Document
}

type memTx struct {
	s      *Store
	writes []pendingWrite
}

func (t *memTx) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	if len(t.writes) > 0 {
		return nil, fmt.Errorf("memory: read after write in transaction")
	}
	return t.s.get(namespace, id)
}

func (t *memTx) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	t.writes = append(t.writes, pendingWrite{namespace: namespace, id: id, fields: fields.Clone()})
	return nil
}

// Ensure Store implements store.RecordStore.
var _ store.RecordStore = (*Store)(nil)
