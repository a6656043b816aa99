package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	t.Setenv("FACTORYD_STORE", "memory")
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if err := store.Put(ctx, "order", "o1", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("memory put: %v", err)
	}

	t.Setenv("FACTORYD_STORE", "sqlite")
	t.Setenv("FACTORYD_SQLITE_PATH", filepath.Join(t.TempDir(), "entities.db"))
	store, err = Open(ctx)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Put(ctx, "order", "o1", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("sqlite put: %v", err)
	}

	t.Setenv("FACTORYD_STORE", "bogus")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("unknown backend must error")
	}
}
