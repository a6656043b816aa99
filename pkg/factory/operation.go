// Package factory defines the public contracts of the remote factory
// dispatch core: the operation taxonomy, save routing, authorization rules
// and their evaluator, the business-method invoker, and the slice of the
// dependency-injection surface the core consumes.
package factory

import (
	"fmt"
	"strings"
)

// Operation identifies one factory lifecycle operation. Values are bitmask
// flags so rule applicability can be declared over groups of operations.
type Operation uint8

const (
	// Create constructs a new entity instance.
	Create Operation = 1 << iota
	// Fetch loads an existing entity instance.
	Fetch
	// Insert persists a new entity.
	Insert
	// Update persists changes to an existing entity.
	Update
	// Delete removes a persisted entity.
	Delete
	// Execute runs an arbitrary remote-capable method.
	Execute
)

// Composite masks used for authorization grouping. A rule declared over
// Read applies to Create and Fetch; one declared over Write applies to
// Insert, Update and Delete.
const (
	Read  = Create | Fetch
	Write = Insert | Update | Delete
)

var operationNames = []struct {
	op   Operation
	name string
}{
	{Create, "create"},
	{Fetch, "fetch"},
	{Insert, "insert"},
	{Update, "update"},
	{Delete, "delete"},
	{Execute, "execute"},
}

// String renders a single operation by name and composite masks as a
// pipe-joined list of the bits they contain.
func (o Operation) String() string {
	if o == 0 {
		return "none"
	}
	parts := make([]string, 0, len(operationNames))
	for _, entry := range operationNames {
		if o&entry.op != 0 {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("operation(0x%x)", uint8(o))
	}
	return strings.Join(parts, "|")
}

// ParseOperation resolves a single-bit operation from its wire name.
func ParseOperation(name string) (Operation, error) {
	for _, entry := range operationNames {
		if entry.name == name {
			return entry.op, nil
		}
	}
	return 0, fmt.Errorf("unknown factory operation %q", name)
}

// Intersects reports whether the receiver shares at least one operation bit
// with the mask. Rule applicability is mask intersection, so a rule declared
// over Write intersects an Insert call.
func (o Operation) Intersects(mask Operation) bool {
	return o&mask != 0
}
