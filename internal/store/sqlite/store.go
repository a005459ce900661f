// Package sqlite is a store.RecordStore backed by a single SQLite file.
// Documents are kept as JSON blobs keyed by namespace and id.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	namespace TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(namespace, id)
);
CREATE INDEX IF NOT EXISTS idx_records_namespace ON records(namespace, seq);
`

// Store implements store.RecordStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("Open: database path is required")
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: failed to open database at %s: %w", path, err)
	}
	// A single connection serializes writers, which is what makes
	// RunInTransaction's read-modify-write safe.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create implements store.RecordStore.
func (s *Store) Create(ctx context.Context, namespace string, doc store.Document) (string, error) {
	if namespace == "" {
		return "", fmt.Errorf("Create: namespace is required")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("Create: failed to encode document: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (namespace, id, data) VALUES (?, ?, ?)`,
		namespace, id, string(data))
	if err != nil {
		return "", fmt.Errorf("Create: failed to insert into %s: %w", namespace, err)
	}
	return id, nil
}

// Get implements store.RecordStore.
func (s *Store) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	return get(ctx, s.db, namespace, id)
}

// List implements store.RecordStore. Records come back in insertion order.
func (s *Store) List(ctx context.Context, namespace string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM records WHERE namespace = ? ORDER BY seq`, namespace)
	if err != nil {
		return nil, fmt.Errorf("List: failed to query %s: %w", namespace, err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("List: failed to scan row: %w", err)
		}
		doc, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("List: record %s: %w", id, err)
		}
		records = append(records, store.Record{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: error iterating rows: %w", err)
	}
	return records, nil
}

// Merge implements store.RecordStore.
func (s *Store) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	return s.RunInTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Merge(ctx, namespace, id, fields)
	})
}

// Delete implements store.RecordStore.
func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE namespace = ? AND id = ?`, namespace, id)
	if err != nil {
		return fmt.Errorf("Delete: failed to delete %s/%s: %w", namespace, id, err)
	}
	return nil
}

// RunInTransaction implements store.RecordStore. fn must not call back into
// the Store directly: the only connection is held by the transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RunInTransaction: failed to begin: %w", err)
	}

	if err := fn(ctx, &sqliteTx{tx: sqlTx}); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("RunInTransaction: failed to commit: %w", err)
	}
	return nil
}

// Close implements store.RecordStore.
func (s *Store) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, namespace, id string) (store.Document, error) {
	return get(ctx, t.tx, namespace, id)
}

func (t *sqliteTx) Merge(ctx context.Context, namespace, id string, fields store.Document) error {
	existing, err := get(ctx, t.tx, namespace, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = store.Document{}
	case err != nil:
		return err
	}
	for k, v := range fields {
		existing[k] = v
	}

	data, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("Merge: failed to encode document: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO records (namespace, id, data) VALUES (?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET data = excluded.data`,
		namespace, id, string(data))
	if err != nil {
		return fmt.Errorf("Merge: failed to write %s/%s: %w", namespace, id, err)
	}
	return nil
}

func get(ctx context.Context, q queryer, namespace, id string) (store.Document, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM records WHERE namespace = ? AND id = ?`, namespace, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: failed to read %s/%s: %w", namespace, id, err)
	}
	return decode(data)
}

func decode(data string) (store.Document, error) {
	doc := store.Document{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Ensure Store implements store.RecordStore.
var _ store.RecordStore = (*Store)(nil)
