// Package dispatch routes factory calls either to in-process execution or
// across a process boundary. It owns parameter classification, the wire
// envelope, the HTTP portal and server adapter, and the per-call
// authorization/invocation sequencing both sides share.
package dispatch

import (
	"encoding/json"
	"fmt"

	"remotefactory/pkg/ordinal"
)

// ParamSlot classifies one call argument. Classification is fixed at
// generation time: only business parameters cross the wire; injected
// services resolve locally on whichever side executes; cancellation rides
// the context and is never serialized.
type ParamSlot int

const (
	// BusinessParam values are serialized through the ordinal codec.
	BusinessParam ParamSlot = iota
	// ServiceParam values resolve from the local service resolver.
	ServiceParam
)

// ParamCodec encodes and decodes one business parameter. Registered entity
// types go through the ordinal registry; scalar parameters use their native
// JSON form.
type ParamCodec struct {
	TypeName string
	Encode   func(reg *ordinal.Registry, v any) (json.RawMessage, error)
	Decode   func(reg *ordinal.Registry, raw json.RawMessage) (any, error)
}

// ScalarParam builds the codec for a plainly JSON-encoded parameter type
// such as int64, string or a slice of scalars.
func ScalarParam[T any](typeName string) ParamCodec {
	return ParamCodec{
		TypeName: typeName,
		Encode: func(_ *ordinal.Registry, v any) (json.RawMessage, error) {
			typed, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("dispatch: parameter is not %s", typeName)
			}
			return json.Marshal(typed)
		},
		Decode: func(_ *ordinal.Registry, raw json.RawMessage) (any, error) {
			var typed T
			if err := json.Unmarshal(raw, &typed); err != nil {
				return nil, fmt.Errorf("dispatch: decode %s parameter: %w", typeName, err)
			}
			return typed, nil
		},
	}
}

// RegisteredParam builds the codec for an ordinal-registered entity type.
func RegisteredParam(typeName string) ParamCodec {
	return ParamCodec{
		TypeName: typeName,
		Encode: func(reg *ordinal.Registry, v any) (json.RawMessage, error) {
			return ordinal.Marshal(reg, typeName, v)
		},
		Decode: func(reg *ordinal.Registry, raw json.RawMessage) (any, error) {
			return ordinal.Unmarshal(reg, typeName, raw)
		},
	}
}

// ParamSpec describes one positional parameter of a registered operation.
// Business parameters carry a codec; service parameters carry the name the
// resolver knows them by.
type ParamSpec struct {
	Slot    ParamSlot
	Codec   ParamCodec
	Service string
}

// Business declares a serialized business parameter.
func Business(codec ParamCodec) ParamSpec {
	return ParamSpec{Slot: BusinessParam, Codec: codec}
}

// Service declares a locally-resolved injected service parameter.
func Service(name string) ParamSpec {
	return ParamSpec{Slot: ServiceParam, Service: name}
}

// ResultCodec frames the operation result. A nil result crosses the wire as
// the null literal on both paths.
type ResultCodec struct {
	TypeName string
	Encode   func(reg *ordinal.Registry, v any) (json.RawMessage, error)
	Decode   func(reg *ordinal.Registry, raw json.RawMessage) (any, error)
}

// RegisteredResult builds the result codec for an ordinal-registered type.
func RegisteredResult(typeName string) ResultCodec {
	return ResultCodec{
		TypeName: typeName,
		Encode: func(reg *ordinal.Registry, v any) (json.RawMessage, error) {
			return ordinal.Marshal(reg, typeName, v)
		},
		Decode: func(reg *ordinal.Registry, raw json.RawMessage) (any, error) {
			return ordinal.Unmarshal(reg, typeName, raw)
		},
	}
}
