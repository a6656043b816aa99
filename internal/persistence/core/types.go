// Package core defines the contract for the entity document stores the
// demo factories persist through.
package core

import (
	"context"
	"encoding/json"
	"errors"
)

// Document is one stored entity snapshot. Body is the entity encoded as a
// JSON object.
type Document struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// EntityStore persists JSON documents keyed by kind and id. Put upserts,
// Delete reports whether the document existed, List returns all documents
// of a kind ordered by id.
type EntityStore interface {
	Put(ctx context.Context, kind, id string, body json.RawMessage) error
	Get(ctx context.Context, kind, id string) (json.RawMessage, error)
	Delete(ctx context.Context, kind, id string) (bool, error)
	List(ctx context.Context, kind string) ([]Document, error)
}

// ErrNotFound is returned by Get when no document matches kind and id.
var ErrNotFound = errors.New("entitystore: not found")
