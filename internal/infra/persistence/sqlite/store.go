// Package sqlite implements a file-backed EntityStore on SQLite through the
// pure Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"remotefactory/internal/persistence/core"
)

// Store persists documents in a single two-key table.
type Store struct {
	db   *sql.DB
	path string
}

var _ core.EntityStore = (*Store)(nil)

// NewStore opens (creating if needed) the SQLite database at path and
// ensures the entities table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "remotefactory.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (kind, id)
	)`); err != nil {
		return nil, fmt.Errorf("create entities table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Put upserts the document body under kind and id.
func (s *Store) Put(ctx context.Context, kind, id string, body json.RawMessage) error {
	if kind == "" || id == "" {
		return fmt.Errorf("entitystore: kind and id required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO entities(kind,id,body) VALUES(?,?,?) ON CONFLICT(kind,id) DO UPDATE SET body=excluded.body`,
		kind, id, []byte(body)); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

// Get returns the stored body.
func (s *Store) Get(ctx context.Context, kind, id string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entities WHERE kind=? AND id=?`, kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", kind, id, err)
	}
	return body, nil
}

// Delete removes the document, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, kind, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE kind=? AND id=?`, kind, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns all documents of a kind ordered by id.
func (s *Store) List(ctx context.Context, kind string) ([]core.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM entities WHERE kind=? ORDER BY id`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()
	docs := []core.Document{}
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		docs = append(docs, core.Document{Kind: kind, ID: id, Body: body})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return docs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
