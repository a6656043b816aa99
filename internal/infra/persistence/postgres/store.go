// Package postgres implements a Postgres-backed EntityStore through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"remotefactory/internal/persistence/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/remotefactory?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents in a single two-key table with a JSONB body.
type Store struct {
	db *sql.DB
}

var _ core.EntityStore = (*Store)(nil)

// NewStore opens the database at dsn (falling back to defaultDSN), pings it,
// and ensures the entities table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		body JSONB NOT NULL,
		PRIMARY KEY (kind, id)
	)`); err != nil {
		return nil, fmt.Errorf("ensure entities table: %w", err)
	}
	return &Store{db: db}, nil
}

// Put upserts the document body under kind and id.
func (s *Store) Put(ctx context.Context, kind, id string, body json.RawMessage) error {
	if kind == "" || id == "" {
		return fmt.Errorf("entitystore: kind and id required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO entities(kind,id,body) VALUES($1,$2,$3) ON CONFLICT(kind,id) DO UPDATE SET body=EXCLUDED.body`,
		kind, id, []byte(body)); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

// Get returns the stored body.
func (s *Store) Get(ctx context.Context, kind, id string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entities WHERE kind=$1 AND id=$2`, kind, id).Scan(&body)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE kind=$1 AND id=$2`, kind, id)
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
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM entities WHERE kind=$1 ORDER BY id`, kind)
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

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
