// Package persistence selects and wraps the entity document stores. Callers
// depend on the EntityStore interface; the infra packages stay behind this
// facade.
package persistence

import (
	"context"
	"fmt"
	"os"

	"remotefactory/internal/infra/persistence/memory"
	"remotefactory/internal/infra/persistence/postgres"
	"remotefactory/internal/infra/persistence/sqlite"
	"remotefactory/internal/persistence/core"
)

// Re-exported contract types so callers need only this package.
type (
	EntityStore = core.EntityStore
	Document    = core.Document
)

// ErrNotFound is returned by Get when no document matches kind and id.
var ErrNotFound = core.ErrNotFound

// Store backend identifiers accepted by Open.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// NewMemory returns an in-memory entity store.
func NewMemory() EntityStore { return memory.NewStore() }

// NewSQLite returns a SQLite-backed entity store at path.
func NewSQLite(path string) (EntityStore, error) { return sqlite.NewStore(path) }

// NewPostgres returns a Postgres-backed entity store for the DSN.
func NewPostgres(ctx context.Context, dsn string) (EntityStore, error) {
	return postgres.NewStore(ctx, dsn)
}

// Open selects an EntityStore implementation using environment variables:
//
//	FACTORYD_STORE: memory|sqlite|postgres (default memory)
//	FACTORYD_SQLITE_PATH: database file when store=sqlite
//	FACTORYD_POSTGRES_DSN: connection string when store=postgres
func Open(ctx context.Context) (EntityStore, error) {
	backend := os.Getenv("FACTORYD_STORE")
	if backend == "" {
		backend = StoreMemory
	}
	switch backend {
	case StoreMemory:
		return NewMemory(), nil
	case StoreSQLite:
		return NewSQLite(os.Getenv("FACTORYD_SQLITE_PATH"))
	case StorePostgres:
		return NewPostgres(ctx, os.Getenv("FACTORYD_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown entity store backend %s", backend)
	}
}
