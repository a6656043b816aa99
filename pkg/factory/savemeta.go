package factory

// SaveMeta carries the persistence flags an entity exposes to Save routing.
// The entity owns and mutates these flags; routing only reads a snapshot.
// IsDeleted dominates IsNew when both are set.
type SaveMeta struct {
	IsNew     bool
	IsDeleted bool
}

// Saveable is implemented by entities that participate in Save routing.
type Saveable interface {
	FactoryMeta() SaveMeta
}

// RouteSave maps a SaveMeta snapshot onto the write operation a Save call
// executes: Delete when the entity is marked deleted, Insert when it is new,
// Update otherwise. The executed business body owns any post-operation flag
// updates (Insert conventionally clears IsNew).
func RouteSave(meta SaveMeta) Operation {
	switch {
	case meta.IsDeleted:
		return Delete
	case meta.IsNew:
		return Insert
	default:
		return Update
	}
}
