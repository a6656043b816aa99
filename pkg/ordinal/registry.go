package ordinal

import "sync"

// Registry maps type identities to their converters. Registration is
// append-only and idempotent; the expected pattern is all registration
// completing at process start before request traffic begins, but concurrent
// first-time registrations are safe.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry constructs an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]Converter)}
}

// Register inserts a converter keyed by its type name. Re-registering an
// already-known type is a no-op, not an error.
func (r *Registry) Register(c Converter) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.converters[c.TypeName()]; exists {
		return
	}
	r.converters[c.TypeName()] = c
}

// Lookup returns the converter for a type identity.
func (r *Registry) Lookup(typeName string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[typeName]
	return c, ok
}

// Len reports the number of registered converters, for diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.converters)
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry. Generated factories
// register their converters here during startup.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
