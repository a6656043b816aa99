package integration

import (
	"context"
	"fmt"

	"remotefactory/internal/dispatch"
	"remotefactory/internal/persistence/core"
	"remotefactory/pkg/factory"
)

// orderRegs holds the positional registrations of every Order operation.
// Create and Fetch are marked remote; the write operations always execute
// where the entity store lives.
type orderRegs struct {
	create *dispatch.Registration
	fetch  *dispatch.Registration
	insert *dispatch.Registration
	update *dispatch.Registration
	remove *dispatch.Registration
}

func storeFromArg(arg any) (core.EntityStore, error) {
	store, ok := arg.(core.EntityStore)
	if !ok {
		return nil, fmt.Errorf("order: injected store is %T", arg)
	}
	return store, nil
}

func orderFromArg(arg any) (*Order, error) {
	o, ok := arg.(*Order)
	if !ok {
		return nil, fmt.Errorf("order: entity argument is %T", arg)
	}
	return o, nil
}

// writeReg builds one persistence registration: the entity itself followed
// by the injected store, executing body against the target.
func writeReg(op factory.Operation, body func(ctx context.Context, o *Order, store core.EntityStore) error) *dispatch.Registration {
	return &dispatch.Registration{
		TypeName:  OrderTypeName,
		Operation: op,
		Params: []dispatch.ParamSpec{
			dispatch.Business(dispatch.RegisteredParam(OrderTypeName)),
			dispatch.Service(OrderStoreService),
		},
		Result: dispatch.RegisteredResult(OrderTypeName),
		Make: func(_ context.Context, args []any) (factory.Invocation, error) {
			o, err := orderFromArg(args[0])
			if err != nil {
				return factory.Invocation{}, err
			}
			store, err := storeFromArg(args[1])
			if err != nil {
				return factory.Invocation{}, err
			}
			return factory.Invocation{
				Target:    o,
				Operation: op,
				Call: factory.VoidCall(o, func(ctx context.Context) error {
					return body(ctx, o, store)
				}),
			}, nil
		},
	}
}

func newOrderRegs() orderRegs {
	return orderRegs{
		create: &dispatch.Registration{
			TypeName:  OrderTypeName,
			Operation: factory.Create,
			Remote:    true,
			Params: []dispatch.ParamSpec{
				dispatch.Business(dispatch.ScalarParam[string]("string")),
				dispatch.Business(dispatch.ScalarParam[[]int64]("int64[]")),
			},
			Result: dispatch.RegisteredResult(OrderTypeName),
			Make: func(_ context.Context, args []any) (factory.Invocation, error) {
				id, ok := args[0].(string)
				if !ok {
					return factory.Invocation{}, fmt.Errorf("order: id argument is %T", args[0])
				}
				ids, ok := args[1].([]int64)
				if !ok {
					return factory.Invocation{}, fmt.Errorf("order: ids argument is %T", args[1])
				}
				return factory.Invocation{
					Operation: factory.Create,
					Call: factory.ValueCall(func(context.Context) (*Order, error) {
						return newOrder(id, ids), nil
					}),
				}, nil
			},
		},
		fetch: &dispatch.Registration{
			TypeName:  OrderTypeName,
			Operation: factory.Fetch,
			Remote:    true,
			Params: []dispatch.ParamSpec{
				dispatch.Business(dispatch.ScalarParam[string]("string")),
				dispatch.Service(OrderStoreService),
			},
			Result: dispatch.RegisteredResult(OrderTypeName),
			Make: func(_ context.Context, args []any) (factory.Invocation, error) {
				id, ok := args[0].(string)
				if !ok {
					return factory.Invocation{}, fmt.Errorf("order: id argument is %T", args[0])
				}
				store, err := storeFromArg(args[1])
				if err != nil {
					return factory.Invocation{}, err
				}
				return factory.Invocation{
					Operation: factory.Fetch,
					Call: factory.ValueCall(func(ctx context.Context) (*Order, error) {
						return fetchOrder(ctx, store, id)
					}),
				}, nil
			},
		},
		insert: writeReg(factory.Insert, func(ctx context.Context, o *Order, store core.EntityStore) error {
			return o.insert(ctx, store)
		}),
		update: writeReg(factory.Update, func(ctx context.Context, o *Order, store core.EntityStore) error {
			return o.update(ctx, store)
		}),
		remove: writeReg(factory.Delete, func(ctx context.Context, o *Order, store core.EntityStore) error {
			return o.remove(ctx, store)
		}),
	}
}

func (r orderRegs) all() []*dispatch.Registration {
	return []*dispatch.Registration{r.create, r.fetch, r.insert, r.update, r.remove}
}

func (r orderRegs) forSave(op factory.Operation) (*dispatch.Registration, error) {
	switch op {
	case factory.Insert:
		return r.insert, nil
	case factory.Update:
		return r.update, nil
	case factory.Delete:
		return r.remove, nil
	default:
		return nil, fmt.Errorf("order: save routed to %s", op)
	}
}

// DefaultOrderRules is the demo server posture: every operation allowed
// except deleting an order that still has line ids, which denies with a
// message.
func DefaultOrderRules() *factory.RuleSet {
	return factory.NewRuleSet().
		Add(factory.BoolRule(factory.Read|factory.Write|factory.Execute, func(context.Context) bool {
			return true
		})).
		Add(factory.StringRule1[*Order](factory.Delete, func(_ context.Context, o *Order) string {
			if len(o.IDs) > 0 {
				return "order still has lines"
			}
			return ""
		}))
}

// RegisterOrderHandlers installs every Order registration into the server
// handler registry.
func RegisterOrderHandlers(registry *dispatch.HandlerRegistry) error {
	for _, reg := range newOrderRegs().all() {
		if err := registry.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// OrderFactory is the call surface over one dispatcher. Create and Fetch
// follow the null denial convention: a denied call yields a nil order and no
// error. Save follows the error convention; TrySave reports the verdict
// alongside the result instead.
type OrderFactory struct {
	d    *dispatch.Dispatcher
	regs orderRegs
}

// NewOrderFactory binds the factory surface to a dispatcher.
func NewOrderFactory(d *dispatch.Dispatcher) *OrderFactory {
	return &OrderFactory{d: d, regs: newOrderRegs()}
}

// Create builds a new order with its derived summary. Nil without error
// means denied.
func (f *OrderFactory) Create(ctx context.Context, id string, ids []int64) (*Order, error) {
	o, err := f.dispatchOrder(ctx, dispatch.Call{Reg: f.regs.create, Deny: dispatch.DenyNull, Args: []any{id, ids}})
	if err != nil || o == nil {
		return nil, err
	}
	// Persistence flags never cross the wire; a created order is new on
	// whichever side receives it.
	o.Meta.IsNew = true
	return o, nil
}

// Fetch loads a persisted order. Nil without error means denied.
func (f *OrderFactory) Fetch(ctx context.Context, id string) (*Order, error) {
	return f.dispatchOrder(ctx, dispatch.Call{Reg: f.regs.fetch, Deny: dispatch.DenyNull, Args: []any{id}})
}

// Save routes the order to Insert, Update or Delete from its persistence
// flags and executes the routed operation. Denials surface as
// NotAuthorizedError.
func (f *OrderFactory) Save(ctx context.Context, o *Order) (*Order, error) {
	reg, err := f.regs.forSave(factory.RouteSave(o.FactoryMeta()))
	if err != nil {
		return nil, err
	}
	return f.dispatchOrder(ctx, dispatch.Call{Reg: reg, Deny: dispatch.DenyError, Args: []any{o}})
}

// TrySave is Save with the verdict folded into the result instead of an
// error.
func (f *OrderFactory) TrySave(ctx context.Context, o *Order) (factory.AuthorizedResult[*Order], error) {
	verdict, err := f.CanSave(ctx, o)
	if err != nil {
		return factory.AuthorizedResult[*Order]{}, err
	}
	if !verdict.HasAccess {
		return factory.Denied[*Order](verdict), nil
	}
	saved, err := f.Save(ctx, o)
	if err != nil {
		return factory.AuthorizedResult[*Order]{}, err
	}
	return factory.AuthorizedResult[*Order]{HasAccess: true, Result: saved}, nil
}

// CanCreate probes Create authorization without executing it.
func (f *OrderFactory) CanCreate(ctx context.Context, id string, ids []int64) (factory.Authorized, error) {
	return f.d.Can(ctx, dispatch.Call{Reg: f.regs.create, Args: []any{id, ids}})
}

// CanFetch probes Fetch authorization.
func (f *OrderFactory) CanFetch(ctx context.Context, id string) (factory.Authorized, error) {
	return f.d.Can(ctx, dispatch.Call{Reg: f.regs.fetch, Args: []any{id}})
}

// CanInsert probes Insert authorization for the order.
func (f *OrderFactory) CanInsert(ctx context.Context, o *Order) (factory.Authorized, error) {
	return f.d.Can(ctx, dispatch.Call{Reg: f.regs.insert, Args: []any{o}})
}

// CanUpdate probes Update authorization for the order.
func (f *OrderFactory) CanUpdate(ctx context.Context, o *Order) (factory.Authorized, error) {
	return f.d.Can(ctx, dispatch.Call{Reg: f.regs.update, Args: []any{o}})
}

// CanDelete probes Delete authorization for the order.
func (f *OrderFactory) CanDelete(ctx context.Context, o *Order) (factory.Authorized, error) {
	return f.d.Can(ctx, dispatch.Call{Reg: f.regs.remove, Args: []any{o}})
}

// CanSave probes the operation Save would route to.
func (f *OrderFactory) CanSave(ctx context.Context, o *Order) (factory.Authorized, error) {
	reg, err := f.regs.forSave(factory.RouteSave(o.FactoryMeta()))
	if err != nil {
		return factory.Authorized{}, err
	}
	return f.d.Can(ctx, dispatch.Call{Reg: reg, Args: []any{o}})
}

func (f *OrderFactory) dispatchOrder(ctx context.Context, call dispatch.Call) (*Order, error) {
	result, err := f.d.Dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	o, ok := result.(*Order)
	if !ok {
		return nil, fmt.Errorf("order: dispatch returned %T", result)
	}
	return o, nil
}
