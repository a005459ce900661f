// Package store defines the user-scoped document store the rest of the
// module persists through. Backends live in the subpackages memory, sqlite
// and firestore.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document exists under the id.
var ErrNotFound = errors.New("document not found")

// Document is a flat set of named fields. Values are strings, bools,
// int64/float64 numbers, time.Time or nil.
type Document map[string]interface{}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Record is a stored document together with its id.
type Record struct {
	ID   string
	Data Document
}

// Tx is the view of the store inside RunInTransaction. All reads must happen
// before the first write.
type Tx interface {
	Get(ctx context.Context, namespace, id string) (Document, error)
	Merge(ctx context.Context, namespace, id string, fields Document) error
}

// RecordStore provides namespaced document CRUD.
type RecordStore interface {
	// Create appends a document and returns its generated id.
	Create(ctx context.Context, namespace string, doc Document) (string, error)

	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, namespace, id string) (Document, error)

	// List returns every document in the namespace.
	List(ctx context.Context, namespace string) ([]Record, error)

	// Merge writes the given fields and leaves all other fields untouched.
	// The document is created when it does not exist.
	Merge(ctx context.Context, namespace, id string, fields Document) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, namespace, id string) error

	// RunInTransaction runs fn atomically: either every Merge made through
	// the Tx is applied or none is.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Close releases backend resources.
	Close() error
}

// TransactionsNamespace is the collection holding a user's transactions.
func TransactionsNamespace(uid string) string {
	return fmt.Sprintf("users/%s/transactions", uid)
}

// GoalsNamespace is the collection holding a user's goals.
func GoalsNamespace(uid string) string {
	return fmt.Sprintf("users/%s/goals", uid)
}
