package ordinal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes a value of the named type as its positional JSON array.
// A nil value encodes as the null literal, never as an empty array.
func Marshal(reg *Registry, typeName string, v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	conv, ok := reg.Lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	slots, err := conv.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("ordinal: encode %s: %w", typeName, err)
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("ordinal: encode %s: %w", typeName, err)
	}
	return data, nil
}

// Unmarshal decodes a positional JSON array into a fresh instance of the
// named type. The null literal decodes to a nil value. A leading token
// other than array-start or null is a format error; more slots than the
// type has members is a too-many-values error; missing trailing slots are
// tolerated only for nullable members.
func Unmarshal(reg *Registry, typeName string, data []byte) (any, error) {
	conv, ok := reg.Lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	token := firstToken(data)
	switch token {
	case "null":
		return nil, nil
	case "[":
	default:
		return nil, &FormatError{TypeName: typeName, Expected: "[", Actual: token}
	}
	var slots []json.RawMessage
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("ordinal: decode %s: %w", typeName, err)
	}
	if len(slots) > conv.MemberCount() {
		return nil, &TooManyValuesError{TypeName: typeName, Members: conv.MemberCount(), Slots: len(slots)}
	}
	into := conv.New()
	if err := conv.Decode(slots, into); err != nil {
		return nil, err
	}
	return into, nil
}

// EncodeNested flattens a registered member type into its slot form for
// embedding inside an enclosing array. Nil members stay nil so they encode
// as the null literal.
func EncodeNested(reg *Registry, typeName string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	conv, ok := reg.Lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	slots, err := conv.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("ordinal: encode nested %s: %w", typeName, err)
	}
	return slots, nil
}

// DecodeNested decodes a registered member type from its raw slot.
func DecodeNested(reg *Registry, typeName string, raw json.RawMessage) (any, error) {
	return Unmarshal(reg, typeName, raw)
}

// firstToken names the leading JSON token of a payload: one of "[", "{",
// "null", "string", "number", "bool", or the raw leading byte when the
// payload is not valid JSON.
func firstToken(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '[':
		return "["
	case '{':
		return "{"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		if trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9') {
			return "number"
		}
		return string(trimmed[0])
	}
}
