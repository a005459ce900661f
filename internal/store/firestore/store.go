// Package firestore is a store.RecordStore backed by Cloud Firestore.
// Namespaces map directly onto collection paths such as users/{uid}/goals.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/dvloznov/goaltracker/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements store.RecordStore on Firestore.
type Store struct {
	client *firestore.Client
	root   string // optional document path every namespace is nested under
}

// Open creates a Firestore client for projectID. When FIRESTORE_EMULATOR_HOST
// is set the client talks to the emulator.
func Open(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Open: failed to create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. A non-empty root (a document path
// like "envs/staging") nests every namespace under that document.
func NewWithClient(client *firestore.Client, root string) *Store {
	return &Store{client: client, root: root}
}

func (s *Store) collection(namespace string) *firestore.CollectionRef {
	if s.root != "" {
		namespace = s.root + "/" + namespace
	}
	return s.client.Collection(namespace)
}

func (s *Store) doc(namespace, id string) *firestore.DocumentRef {
	return s.collection(namespace).Doc(id)
}

// Create implements store.RecordStore.
func (s *Store) Create(ctx context.Context, namespace string, doc store.Document) (string, error) {
	coll := s.collection(namespace)
	if coll == nil {
		return "", fmt.Errorf("Create: invalid namespace %q", namespace)
	}

	ref, _, err := coll.Add(ctx, map[string]interface{}(doc))
	if err != nil {
		return "", fmt.Errorf("Create: failed to add document to %s: %w", namespace, err)
	}
	return ref.ID, nil
}

// Get implements store.RecordStore.
func (s *Store) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	snap, err := s.doc(namespace, id).Get(ctx)
	return snapshotDocument(snap, err, namespace, id)
}

// List implements store.RecordStore. Order follows Firestore's document id
// order; callers that need a specific order sort the result.
func (s *Store) List(ctx context.Context, namespace string) ([]store.Record, error) {
	iter := s.collection(namespace).Documents(ctx)
	defer iter.Stop()

	var records []store.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: failed to iterate %s: %w", namespace, err)
		}
		records = append(records, store.Record{ID: snap.Ref.ID, Data: store.Document(snap.Data())})
	}
	return records, nil
}

// Merge implements store.RecordStore.
func (s *Store) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	_, err := s.doc(namespace, id).Set(ctx, map[string]interface{}(fields), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("Merge: failed to write %s/%s: %w", namespace, id, err)
	}
	return nil
}

// Delete implements store.RecordStore.
func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	if _, err := s.doc(namespace, id).Delete(ctx); err != nil {
		return fmt.Errorf("Delete: failed to delete %s/%s: %w", namespace, id, err)
	}
	return nil
}

// RunInTransaction implements store.RecordStore on a Firestore transaction.
// Firestore may invoke fn more than once when the transaction contends with
// another writer, so fn must not have side effects outside the Tx.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{s: s, t: t})
	})
	if err != nil {
		return fmt.Errorf("RunInTransaction: %w", err)
	}
	return nil
}

// Close implements store.RecordStore.
func (s *Store) Close() error {
	return s.client.Close()
}

type firestoreTx struct {
	s *Store
	t *firestore.Transaction
}

func (x *firestoreTx) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	snap, err := x.t.Get(x.s.doc(namespace, id))
	return snapshotDocument(snap, err, namespace, id)
}

func (x *firestoreTx) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	if err := x.t.Set(x.s.doc(namespace, id), map[string]interface{}(fields), firestore.MergeAll); err != nil {
		return fmt.Errorf("Merge: failed to stage %s/%s: %w", namespace, id, err)
	}
	return nil
}

func snapshotDocument(snap *firestore.DocumentSnapshot, err error, namespace, id string) (store.Document, error) {
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: failed to read %s/%s: %w", namespace, id, err)
	}
	return store.Document(snap.Data()), nil
}

// Ensure Store implements store.RecordStore.
var _ store.RecordStore = (*Store)(nil)
