// Package memory implements an in-memory EntityStore for tests and the
// default server configuration.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"remotefactory/internal/persistence/core"
)

// Store keeps documents in a nested map guarded by a RWMutex. Bodies are
// copied on write and on read so callers cannot alias internal state.
type Store struct {
	mu    sync.RWMutex
	kinds map[string]map[string]json.RawMessage
}

// NewStore returns an empty in-memory entity store.
func NewStore() *Store {
	return &Store{kinds: make(map[string]map[string]json.RawMessage)}
}

var _ core.EntityStore = (*Store)(nil)

// Put upserts the document body under kind and id.
func (s *Store) Put(_ context.Context, kind, id string, body json.RawMessage) error {
	if kind == "" || id == "" {
		return fmt.Errorf("entitystore: kind and id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.kinds[kind]
	if !ok {
		bucket = make(map[string]json.RawMessage)
		s.kinds[kind] = bucket
	}
	bucket[id] = cloneBody(body)
	return nil
}

// Get returns a copy of the stored body.
func (s *Store) Get(_ context.Context, kind, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.kinds[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, core.ErrNotFound)
	}
	return cloneBody(body), nil
}

// Delete removes the document, reporting whether it existed.
func (s *Store) Delete(_ context.Context, kind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.kinds[kind]
	if !ok {
		return false, nil
	}
	if _, ok := bucket[id]; !ok {
		return false, nil
	}
	delete(bucket, id)
	return true, nil
}

// List returns all documents of a kind ordered by id.
func (s *Store) List(_ context.Context, kind string) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.kinds[kind]
	docs := make([]core.Document, 0, len(bucket))
	for id, body := range bucket {
		docs = append(docs, core.Document{Kind: kind, ID: id, Body: cloneBody(body)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func cloneBody(body json.RawMessage) json.RawMessage {
	if body == nil {
		return nil
	}
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
