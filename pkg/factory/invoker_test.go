package factory

import (
	"context"
	"errors"
	"testing"
)

type hookRecorder struct {
	events []string
}

func (h *hookRecorder) FactoryStarting(op Operation)  { h.events = append(h.events, "start:"+op.String()) }
func (h *hookRecorder) FactoryCompleted(op Operation) { h.events = append(h.events, "done:"+op.String()) }
func (h *hookRecorder) FactoryCancelled(op Operation) {
	h.events = append(h.events, "cancelled:"+op.String())
}

func TestInvokeVoidSuccessReturnsTarget(t *testing.T) {
	target := &hookRecorder{}
	ran := false
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Insert,
		Call: VoidCall(target, func(context.Context) error {
			ran = true
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !ran {
		t.Fatalf("business method must run")
	}
	if result != target {
		t.Fatalf("void success must yield the target")
	}
	if len(target.events) != 2 || target.events[0] != "start:insert" || target.events[1] != "done:insert" {
		t.Fatalf("hook order wrong: %v", target.events)
	}
}

func TestInvokeBoolFalseYieldsNilResult(t *testing.T) {
	target := &hookRecorder{}
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Fetch,
		Call: BoolCall(target, func(context.Context) (bool, error) {
			return false, nil
		}),
	})
	if err != nil {
		t.Fatalf("bool false is not an error: %v", err)
	}
	if result != nil {
		t.Fatalf("bool false must yield a nil result, got %v", result)
	}
}

func TestInvokeBoolTrueYieldsTarget(t *testing.T) {
	target := &hookRecorder{}
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Fetch,
		Call:      BoolCall(target, func(context.Context) (bool, error) { return true, nil }),
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != target {
		t.Fatalf("bool true must yield the target")
	}
}

func TestInvokeValueCallPassesInstanceThrough(t *testing.T) {
	built := &hookRecorder{}
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Operation: Create,
		Call: ValueCall(func(context.Context) (*hookRecorder, error) {
			return built, nil
		}),
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != built {
		t.Fatalf("constructed instance must pass through unchanged")
	}
	// The constructed instance gets the completion notification.
	found := false
	for _, e := range built.events {
		if e == "done:create" {
			found = true
		}
	}
	if !found {
		t.Fatalf("constructed instance missed completion hook: %v", built.events)
	}
}

func TestInvokeValueCallNilPropagates(t *testing.T) {
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Operation: Fetch,
		Call: ValueCall(func(context.Context) (*hookRecorder, error) {
			return nil, nil
		}),
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != nil {
		t.Fatalf("nil instance must propagate as nil, got %#v", result)
	}
}

func TestInvokeNonComparableResultAndTarget(t *testing.T) {
	// Custom CallFuncs may return maps or slices; the result/target identity
	// check must not panic on them.
	target := map[string]int{"n": 1}
	result, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Execute,
		Call: func(context.Context) (any, error) {
			return map[string]int{"n": 2}, nil
		},
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	got, ok := result.(map[string]int)
	if !ok || got["n"] != 2 {
		t.Fatalf("result = %#v", result)
	}
}

func TestInvokeResultAliasingTargetNotifiesOnce(t *testing.T) {
	target := &hookRecorder{}
	_, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Update,
		Call: func(context.Context) (any, error) {
			return target, nil
		},
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	count := 0
	for _, e := range target.events {
		if e == "done:update" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("target notified %d times: %v", count, target.events)
	}
}

func TestInvokePreCancelledContextSkipsMethod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &hookRecorder{}
	ran := false
	_, err := DefaultInvoker{}.Invoke(ctx, Invocation{
		Target:    target,
		Operation: Update,
		Call: VoidCall(target, func(context.Context) error {
			ran = true
			return nil
		}),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation failure, got %v", err)
	}
	if ran {
		t.Fatalf("pre-cancelled context must never run the business method")
	}
	if len(target.events) != 1 || target.events[0] != "cancelled:update" {
		t.Fatalf("expected only the cancelled hook, got %v", target.events)
	}
}

func TestInvokeBusinessErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("constraint violation")
	target := &hookRecorder{}
	_, err := DefaultInvoker{}.Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Insert,
		Call:      VoidCall(target, func(context.Context) error { return boom }),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("business errors must propagate unchanged, got %v", err)
	}
	for _, e := range target.events {
		if e == "done:insert" {
			t.Fatalf("completion hook must not fire on failure: %v", target.events)
		}
	}
}

type countingInvoker struct {
	inner Invoker
	calls int
}

func (c *countingInvoker) Invoke(ctx context.Context, inv Invocation) (any, error) {
	c.calls++
	return c.inner.Invoke(ctx, inv)
}

func TestInvokerRegistryOverride(t *testing.T) {
	reg := NewInvokerRegistry()
	override := &countingInvoker{inner: DefaultInvoker{}}
	reg.RegisterOverride("order", override)

	if reg.Resolve("order") != Invoker(override) {
		t.Fatalf("override must resolve for its type")
	}
	if _, ok := reg.Resolve("widget").(DefaultInvoker); !ok {
		t.Fatalf("unregistered types must fall back to the default invoker")
	}

	target := &hookRecorder{}
	if _, err := reg.Resolve("order").Invoke(context.Background(), Invocation{
		Target:    target,
		Operation: Update,
		Call:      VoidCall(target, func(context.Context) error { return nil }),
	}); err != nil {
		t.Fatalf("invoke through override: %v", err)
	}
	if override.calls != 1 {
		t.Fatalf("override must wrap the invocation, calls=%d", override.calls)
	}
}

func TestResolverMap(t *testing.T) {
	resolver := ResolverMap{"store": 42}
	v, err := ResolveService[int](resolver, "store")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v != 42 {
		t.Fatalf("resolved %d, want 42", v)
	}
	if _, err := ResolveService[int](resolver, "missing"); err == nil {
		t.Fatalf("missing service must fail resolution")
	}
	if _, err := ResolveService[string](resolver, "store"); err == nil {
		t.Fatalf("mismatched service type must fail resolution")
	}
}

func TestNotAuthorizedErrorMatchesSentinel(t *testing.T) {
	err := error(&NotAuthorizedError{Message: "read only"})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("NotAuthorizedError must match ErrNotAuthorized")
	}
	if err.Error() != "not authorized: read only" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if (&NotAuthorizedError{}).Error() != "not authorized" {
		t.Fatalf("boolean denial renders bare message")
	}
}
