package dispatch

import (
	"context"
	"strings"
	"testing"

	"remotefactory/pkg/factory"
)

func noopReg(typeName string, op factory.Operation, method string) *Registration {
	return &Registration{
		TypeName:  typeName,
		Operation: op,
		Method:    method,
		Make: func(context.Context, []any) (factory.Invocation, error) {
			return factory.Invocation{Operation: op, Call: func(context.Context) (any, error) { return nil, nil }}, nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	if err := registry.Register(noopReg("widget", factory.Create, "")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := registry.Register(noopReg("widget", factory.Create, ""))
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("duplicate register: %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("len = %d", registry.Len())
	}
}

func TestMethodDistinguishesExecuteRegistrations(t *testing.T) {
	registry := NewHandlerRegistry()
	if err := registry.Register(noopReg("widget", factory.Execute, "Summarize")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(noopReg("widget", factory.Execute, "Archive")); err != nil {
		t.Fatalf("register second method: %v", err)
	}

	if _, ok := registry.Lookup("widget", factory.Execute, "Summarize"); !ok {
		t.Fatalf("lookup by method failed")
	}
	if _, ok := registry.Lookup("widget", factory.Execute, "Rename"); ok {
		t.Fatalf("unknown method must not resolve")
	}
}

func TestRegisterValidation(t *testing.T) {
	registry := NewHandlerRegistry()
	if err := registry.Register(nil); err == nil {
		t.Fatalf("nil registration must error")
	}
	if err := registry.Register(&Registration{Operation: factory.Create}); err == nil {
		t.Fatalf("missing type name must error")
	}
	if err := registry.Register(&Registration{TypeName: "widget", Operation: factory.Create}); err == nil {
		t.Fatalf("missing invocation builder must error")
	}
}

func TestMustRegisterPanicsOnConflict(t *testing.T) {
	registry := NewHandlerRegistry()
	registry.MustRegister(noopReg("widget", factory.Fetch, ""))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	registry.MustRegister(noopReg("widget", factory.Fetch, ""))
}
