package types

import "iter"

// EntityContext owns a set of entity proxies created from one Schema.
// Mutation, comparison, inverse mirroring and notification dispatch all
// happen synchronously on the calling goroutine; a context is not safe for
// concurrent mutation.
type EntityContext interface {
	// Create returns a new entity of the named type with every slot unset.
	// Returns ErrUnknownEntityType if the schema does not declare the type.
	Create(typeName string) (Entity, error)

	// Get returns the entity with the given ID or ErrEntityNotFound.
	Get(id string) (Entity, error)

	// Entities returns every entity in creation order.
	Entities() []Entity

	// Modified returns the entities changed since they were created or
	// loaded, or since the last successful SaveChanges.
	Modified() []Entity

	// Load reconstructs entities from snapshots without emitting
	// notifications.
	Load(snaps []Snapshot) error

	// SaveChanges hands snapshots of modified entities to c. Modified
	// flags are cleared only when c succeeds.
	SaveChanges(c Committer) error

	// Dispose detaches every subscriber and rejects further mutation with
	// ErrContextDisposed. Idempotent.
	Dispose() error
}

// Entity is the in-memory proxy of one stored record.
type Entity interface {
	ID() string
	Type() string

	// Get returns the current value of a scalar slot.
	Get(property string) (any, error)

	// Set assigns a scalar slot. Assigning a value equal to the current
	// one is a no-op and emits nothing.
	Set(property string, value any) error

	// Collection returns the multi-value slot with the given name.
	Collection(property string) (Collection, error)

	// Subscribe registers h for property_changed notifications of every
	// scalar slot on this entity.
	Subscribe(h Handler) Handle

	// Unsubscribe stops delivery to the handle. Reports whether it was
	// attached.
	Unsubscribe(handle Handle) bool

	// Snapshot returns a read-only copy of the current slot state.
	Snapshot() Snapshot
}

// Collection is an observable multi-value slot.
type Collection interface {
	// Add inserts v and reports whether membership changed. Set-like
	// collections ignore values already present.
	Add(v any) (bool, error)

	// Remove deletes one occurrence of v and reports whether it was
	// present.
	Remove(v any) (bool, error)

	// Clear removes every member and always emits one reset notification.
	Clear() error

	Contains(v any) bool
	Len() int

	// Items returns a copy of the current members in order.
	Items() []any

	// All iterates over the members present when iteration starts.
	All() iter.Seq[any]

	Subscribe(h Handler) Handle
	Unsubscribe(handle Handle) bool
}
