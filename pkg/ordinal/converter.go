// Package ordinal implements positional serialization for factory payloads.
// A type's serializable members are ordered by member name (stable, ordinal,
// locale-invariant) and the wire form is a JSON array whose i-th slot is the
// i-th member in that order. Converters are written ahead of time, one per
// type, and registered in a process-wide registry; nothing in this package
// discovers members at runtime.
package ordinal

import (
	"encoding/json"
	"fmt"
)

// Converter encodes and decodes one type's members positionally. Encode
// returns the members in name-sorted order; Decode populates a value
// produced by New from raw slots. Converters are built once at startup and
// must be read-only afterwards.
type Converter interface {
	// TypeName is the stable wire identity of the converted type.
	TypeName() string
	// MemberCount is the number of serializable members. Payloads with more
	// slots than members are rejected.
	MemberCount() int
	// New returns a fresh addressable instance for Decode to populate.
	New() any
	// Encode flattens the value into its positional member slots.
	Encode(v any) ([]any, error)
	// Decode populates into from the payload's slots. Missing trailing
	// slots are tolerated only for nullable members.
	Decode(slots []json.RawMessage, into any) error
}

// DecodeSlot decodes the i-th slot into a required member. A missing or
// null slot for a required member is a payload error.
func DecodeSlot[T any](typeName string, slots []json.RawMessage, i int, into *T) error {
	if i >= len(slots) {
		return &MissingValueError{TypeName: typeName, Index: i}
	}
	if isNullToken(slots[i]) {
		return &MissingValueError{TypeName: typeName, Index: i}
	}
	if err := json.Unmarshal(slots[i], into); err != nil {
		return fmt.Errorf("decode %s slot %d: %w", typeName, i, err)
	}
	return nil
}

// DecodeOptionalSlot decodes the i-th slot into a nullable member, leaving
// the zero value when the slot is missing or null. Trailing nullable members
// may be omitted from the payload entirely.
func DecodeOptionalSlot[T any](typeName string, slots []json.RawMessage, i int, into *T) error {
	if i >= len(slots) || isNullToken(slots[i]) {
		var zero T
		*into = zero
		return nil
	}
	if err := json.Unmarshal(slots[i], into); err != nil {
		return fmt.Errorf("decode %s slot %d: %w", typeName, i, err)
	}
	return nil
}

// NonNilSlice normalizes a nil collection member to an empty one so empty
// collections always encode as [] and never as null.
func NonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isNullToken(raw json.RawMessage) bool {
	token := firstToken(raw)
	return token == "" || token == "null"
}
