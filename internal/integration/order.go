// Package integration carries the Order demo entity and its factory in the
// exact shape generated factory surfaces take: positional registrations,
// probe methods, and both denial conventions over one dispatcher.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"remotefactory/internal/persistence/core"
	"remotefactory/pkg/factory"
	"remotefactory/pkg/ordinal"
)

// OrderTypeName is the wire identity of the Order entity.
const OrderTypeName = "order"

// OrderStoreService is the resolver name of the injected entity store.
const OrderStoreService = "orderStore"

const orderKind = "order"

// Order is the demo entity. Summary is derived, never supplied. Events
// records lifecycle notifications for observability; it stays local and
// never crosses the wire.
type Order struct {
	ID      string
	IDs     []int64
	Summary string

	Meta   factory.SaveMeta
	Events []string
}

var (
	_ factory.Saveable           = (*Order)(nil)
	_ factory.StartNotifiable    = (*Order)(nil)
	_ factory.CompleteNotifiable = (*Order)(nil)
	_ factory.CancelNotifiable   = (*Order)(nil)
)

// FactoryMeta exposes the persistence flags Save routing reads.
func (o *Order) FactoryMeta() factory.SaveMeta { return o.Meta }

// FactoryStarting records the start notification.
func (o *Order) FactoryStarting(op factory.Operation) {
	o.Events = append(o.Events, "start:"+op.String())
}

// FactoryCompleted records the completion notification. Insert completion
// is the moment the entity stops being new.
func (o *Order) FactoryCompleted(op factory.Operation) {
	o.Events = append(o.Events, "done:"+op.String())
}

// FactoryCancelled records the cancellation notification.
func (o *Order) FactoryCancelled(op factory.Operation) {
	o.Events = append(o.Events, "cancelled:"+op.String())
}

// newOrder constructs a fresh order with its derived summary, flagged new.
func newOrder(id string, ids []int64) *Order {
	return &Order{
		ID:      id,
		IDs:     append([]int64(nil), ids...),
		Summary: deriveSummary(ids),
		Meta:    factory.SaveMeta{IsNew: true},
	}
}

// deriveSummary folds the id list into the canonical "count:N, sum:S" form.
func deriveSummary(ids []int64) string {
	var sum int64
	for _, id := range ids {
		sum += id
	}
	return fmt.Sprintf("count:%d, sum:%d", len(ids), sum)
}

// orderDoc is the persisted snapshot shape.
type orderDoc struct {
	ID      string  `json:"id"`
	IDs     []int64 `json:"ids"`
	Summary string  `json:"summary"`
}

func fetchOrder(ctx context.Context, store core.EntityStore, id string) (*Order, error) {
	body, err := store.Get(ctx, orderKind, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	var doc orderDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &Order{ID: doc.ID, IDs: doc.IDs, Summary: doc.Summary}, nil
}

func (o *Order) persist(ctx context.Context, store core.EntityStore) error {
	body, err := json.Marshal(orderDoc{ID: o.ID, IDs: o.IDs, Summary: o.Summary})
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	return store.Put(ctx, orderKind, o.ID, body)
}

// insert persists a new order and clears the new flag.
func (o *Order) insert(ctx context.Context, store core.EntityStore) error {
	if err := o.persist(ctx, store); err != nil {
		return err
	}
	o.Meta.IsNew = false
	return nil
}

// update persists changes to an existing order.
func (o *Order) update(ctx context.Context, store core.EntityStore) error {
	return o.persist(ctx, store)
}

// remove deletes the persisted order. The deleted flag stays set.
func (o *Order) remove(ctx context.Context, store core.EntityStore) error {
	if _, err := store.Delete(ctx, orderKind, o.ID); err != nil {
		return err
	}
	return nil
}

// orderConverter maps Order onto its positional wire form. Members encode
// in name-sorted order: ID, IDs, Summary.
type orderConverter struct{}

var _ ordinal.Converter = orderConverter{}

func (orderConverter) TypeName() string { return OrderTypeName }
func (orderConverter) MemberCount() int { return 3 }
func (orderConverter) New() any         { return &Order{} }

func (orderConverter) Encode(v any) ([]any, error) {
	o, ok := v.(*Order)
	if !ok {
		return nil, fmt.Errorf("encode %s: got %T", OrderTypeName, v)
	}
	return []any{o.ID, ordinal.NonNilSlice(o.IDs), o.Summary}, nil
}

func (orderConverter) Decode(slots []json.RawMessage, into any) error {
	o, ok := into.(*Order)
	if !ok {
		return fmt.Errorf("decode %s: got %T", OrderTypeName, into)
	}
	if err := ordinal.DecodeSlot(OrderTypeName, slots, 0, &o.ID); err != nil {
		return err
	}
	if err := ordinal.DecodeOptionalSlot(OrderTypeName, slots, 1, &o.IDs); err != nil {
		return err
	}
	return ordinal.DecodeOptionalSlot(OrderTypeName, slots, 2, &o.Summary)
}

// RegisterOrderConverter installs the Order converter. Registration is
// idempotent.
func RegisterOrderConverter(codecs *ordinal.Registry) {
	codecs.Register(orderConverter{})
}
