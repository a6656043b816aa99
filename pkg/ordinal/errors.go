package ordinal

import "fmt"

// FormatError reports a payload whose leading token is not the one the
// decoder expected. It is a fatal protocol error, never retried.
type FormatError struct {
	TypeName string
	Expected string
	Actual   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ordinal: decoding %s: expected %q token, got %q", e.TypeName, e.Expected, e.Actual)
}

// TooManyValuesError reports a payload carrying more slots than the type
// has members.
type TooManyValuesError struct {
	TypeName string
	Members  int
	Slots    int
}

func (e *TooManyValuesError) Error() string {
	return fmt.Sprintf("ordinal: too many values for %s: %d slots for %d members", e.TypeName, e.Slots, e.Members)
}

// MissingValueError reports a required member whose slot is missing or
// null. Only trailing nullable members may be omitted.
type MissingValueError struct {
	TypeName string
	Index    int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("ordinal: missing required value for %s member %d", e.TypeName, e.Index)
}

// UnknownTypeError reports a lookup for a type with no registered converter.
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("ordinal: no converter registered for type %q", e.TypeName)
}
