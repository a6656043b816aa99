package factory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// CallFunc wraps one business method for invocation. The wrapper owns the
// method's return-convention normalization; the invoker only sequences
// hooks around it.
type CallFunc func(ctx context.Context) (any, error)

// Invocation describes one business-method execution. Target is absent for
// Create and Execute calls that construct their own instance.
type Invocation struct {
	Target    any
	Operation Operation
	Call      CallFunc
}

// VoidCall wraps a method with no result: success yields the target.
func VoidCall(target any, fn func(ctx context.Context) error) CallFunc {
	return func(ctx context.Context) (any, error) {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// BoolCall wraps a bool-returning method: false yields a nil result,
// meaning "did not produce", not an error; true yields the target.
func BoolCall(target any, fn func(ctx context.Context) (bool, error)) CallFunc {
	return func(ctx context.Context) (any, error) {
		ok, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return target, nil
	}
}

// ValueCall wraps a method that returns a constructed instance, passing it
// through unchanged. A nil instance propagates as a nil result.
func ValueCall[T any](fn func(ctx context.Context) (*T, error)) CallFunc {
	return func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		return v, nil
	}
}

// StartNotifiable receives the "on start" lifecycle notification before the
// business method runs. Hooks are notifications only and must not alter the
// computed result.
type StartNotifiable interface {
	FactoryStarting(op Operation)
}

// CompleteNotifiable receives the "on complete" notification on the success
// path.
type CompleteNotifiable interface {
	FactoryCompleted(op Operation)
}

// CancelNotifiable receives the "on cancelled" notification when the call is
// cancelled instead of completing.
type CancelNotifiable interface {
	FactoryCancelled(op Operation)
}

// Invoker executes the business method for one operation. Authorization is
// resolved before an invoker runs; implementations never evaluate rules.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (any, error)
}

// DefaultInvoker sequences lifecycle hooks around the wrapped business
// method. A context cancelled before invocation fires the cancelled hook and
// never runs the method; cancellation during the method is the method's own
// responsibility to honor. Business errors propagate unchanged.
type DefaultInvoker struct{}

var _ Invoker = DefaultInvoker{}

// Invoke runs the invocation's call with start/complete/cancelled hooks.
func (DefaultInvoker) Invoke(ctx context.Context, inv Invocation) (any, error) {
	if err := ctx.Err(); err != nil {
		notifyCancelled(inv.Target, inv.Operation)
		return nil, fmt.Errorf("invoke %s: %w", inv.Operation, err)
	}
	if hook, ok := inv.Target.(StartNotifiable); ok {
		hook.FactoryStarting(inv.Operation)
	}
	result, err := inv.Call(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			notifyCancelled(inv.Target, inv.Operation)
		}
		return nil, err
	}
	notifyCompleted(inv.Target, inv.Operation)
	if result != nil && !sameValue(result, inv.Target) {
		// The result may be an instance constructed by the call itself;
		// notify it too when it is distinct from the target.
		notifyCompleted(result, inv.Operation)
	}
	return result, nil
}

// sameValue reports whether result and target are the same value. Interface
// equality panics on non-comparable dynamic types, so maps, slices and funcs
// are compared by reference identity instead.
func sameValue(result, target any) bool {
	if target == nil {
		return false
	}
	rt := reflect.TypeOf(result)
	if rt != reflect.TypeOf(target) {
		return false
	}
	switch rt.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return reflect.ValueOf(result).Pointer() == reflect.ValueOf(target).Pointer()
	default:
		if !rt.Comparable() {
			return false
		}
		return result == target
	}
}

func notifyCompleted(target any, op Operation) {
	if hook, ok := target.(CompleteNotifiable); ok {
		hook.FactoryCompleted(op)
	}
}

func notifyCancelled(target any, op Operation) {
	if hook, ok := target.(CancelNotifiable); ok {
		hook.FactoryCancelled(op)
	}
}

// InvokerRegistry resolves the invoker strategy for an entity type,
// defaulting to DefaultInvoker when no override is registered. Overrides
// compose cross-cutting behavior (logging, metrics) around the default.
type InvokerRegistry struct {
	mu        sync.RWMutex
	overrides map[string]Invoker
	fallback  Invoker
}

// NewInvokerRegistry constructs a registry with DefaultInvoker fallback.
func NewInvokerRegistry() *InvokerRegistry {
	return &InvokerRegistry{
		overrides: make(map[string]Invoker),
		fallback:  DefaultInvoker{},
	}
}

// RegisterOverride installs an invoker for the given entity type name,
// replacing any previous override.
func (r *InvokerRegistry) RegisterOverride(typeName string, invoker Invoker) {
	if invoker == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[typeName] = invoker
}

// Resolve returns the invoker for the entity type, or the default.
func (r *InvokerRegistry) Resolve(typeName string) Invoker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if invoker, ok := r.overrides[typeName]; ok {
		return invoker
	}
	return r.fallback
}
