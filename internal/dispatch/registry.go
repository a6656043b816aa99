package dispatch

import (
	"context"
	"fmt"
	"sync"

	"remotefactory/pkg/factory"
)

// Registration binds one factory operation of one entity type to its
// parameter layout, result framing, remote-or-local marking and the
// invocation builder the generated factory emits. Both the client portal
// and the server handler consult the same registration: the client uses the
// parameter encoders and the result decoder, the server the reverse.
type Registration struct {
	// TypeName is the entity's wire identity.
	TypeName string
	// Operation the registration serves.
	Operation factory.Operation
	// Method distinguishes Execute registrations that share an operation;
	// empty for lifecycle operations.
	Method string
	// Remote marks the operation for cross-process execution. Fixed at
	// generation time.
	Remote bool
	// Params is the positional parameter layout.
	Params []ParamSpec
	// Result frames the operation result.
	Result ResultCodec
	// Make builds the business invocation from the full positional argument
	// list: business values and resolved services interleaved per Params.
	Make func(ctx context.Context, args []any) (factory.Invocation, error)
}

func (r *Registration) key() string {
	return registrationKey(r.TypeName, r.Operation, r.Method)
}

func registrationKey(typeName string, op factory.Operation, method string) string {
	if method == "" {
		return typeName + "/" + op.String()
	}
	return typeName + "/" + op.String() + "#" + method
}

func (r *Registration) businessCount() int {
	n := 0
	for _, spec := range r.Params {
		if spec.Slot == BusinessParam {
			n++
		}
	}
	return n
}

// HandlerRegistry holds the registrations generated factories install at
// startup. Registration happens before traffic; lookups are concurrent.
type HandlerRegistry struct {
	mu   sync.RWMutex
	regs map[string]*Registration
}

// NewHandlerRegistry constructs an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{regs: make(map[string]*Registration)}
}

// Register installs a registration. Registering the same (type, operation,
// method) twice is an error: two factories must not claim one operation.
func (r *HandlerRegistry) Register(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("dispatch: registration cannot be nil")
	}
	if reg.TypeName == "" {
		return fmt.Errorf("dispatch: registration requires a type name")
	}
	if reg.Make == nil {
		return fmt.Errorf("dispatch: registration %s requires an invocation builder", reg.key())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reg.key()
	if _, exists := r.regs[key]; exists {
		return fmt.Errorf("dispatch: operation %s already registered", key)
	}
	r.regs[key] = reg
	return nil
}

// MustRegister is Register for startup paths where a conflict is a
// programming error.
func (r *HandlerRegistry) MustRegister(reg *Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Lookup resolves a registration by type, operation and execute method.
func (r *HandlerRegistry) Lookup(typeName string, op factory.Operation, method string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[registrationKey(typeName, op, method)]
	return reg, ok
}

// Len reports the number of installed registrations, for diagnostics.
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}
