package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	blobcore "remotefactory/internal/blob/core"
)

// Entry captures the audit trail metadata of one dispatch.
type Entry struct {
	Type       string        `json:"type"`
	Operation  string        `json:"operation"`
	Method     string        `json:"method,omitempty"`
	Origin     string        `json:"origin"`
	Outcome    string        `json:"outcome"`
	Message    string        `json:"message,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// AuditLogger records dispatch audit entries. Recording is best effort and
// must never fail the dispatch it describes.
type AuditLogger interface {
	Record(ctx context.Context, entry Entry)
}

// MemoryAuditLog retains entries in memory, primarily for tests.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryAuditLog constructs an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Record appends the entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// BlobAuditLog persists entries as JSON objects in a blob store, one object
// per dispatch under the audit/ prefix. Write failures are dropped: the
// audit trail never fails a dispatch.
type BlobAuditLog struct {
	store blobcore.Store
	seq   uint64
}

// NewBlobAuditLog constructs an audit log over the given blob store.
func NewBlobAuditLog(store blobcore.Store) *BlobAuditLog {
	return &BlobAuditLog{store: store}
}

// Record writes the entry to the backing store.
func (l *BlobAuditLog) Record(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	seq := atomic.AddUint64(&l.seq, 1)
	key := fmt.Sprintf("audit/%s-%06d.json", entry.OccurredAt.Format("20060102T150405.000000000Z"), seq)
	_, _ = l.store.Put(ctx, key, bytes.NewReader(payload), blobcore.PutOptions{ContentType: "application/json"})
}

var (
	_ AuditLogger = (*MemoryAuditLog)(nil)
	_ AuditLogger = (*BlobAuditLog)(nil)
)
