package factory

// ServiceResolver is the slice of the external dependency-injection
// container the dispatch core consumes: injected-service parameters,
// per-type invoker overrides and scoped entity instances resolve through
// it. The core borrows resolved instances for one call's duration; the
// container owns their lifetimes.
type ServiceResolver interface {
	Resolve(name string) (any, bool)
}

// ResolverMap is a map-backed ServiceResolver used by tests and as the
// per-request scope on the server side.
type ResolverMap map[string]any

// Resolve looks the service up by name.
func (m ResolverMap) Resolve(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// ResolveService resolves and type-asserts a service in one step. It fails
// when the service is missing or of the wrong concrete type.
func ResolveService[T any](resolver ServiceResolver, name string) (T, error) {
	var zero T
	v, ok := resolver.Resolve(name)
	if !ok {
		return zero, &ServiceNotFoundError{Name: name}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ServiceNotFoundError{Name: name, Mismatched: true}
	}
	return typed, nil
}
