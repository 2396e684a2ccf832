package types

// NotificationKind identifies what changed.
type NotificationKind string

// Notification kinds.
const (
	PropertyChanged  NotificationKind = "property_changed"
	CollectionAdd    NotificationKind = "collection_add"
	CollectionRemove NotificationKind = "collection_remove"
	CollectionReset  NotificationKind = "collection_reset"
)

// Notification is an immutable record of one change. It is delivered
// synchronously to the handlers attached when the change happened and is
// never queued or persisted.
type Notification struct {
	Kind     NotificationKind
	Subject  Entity // entity that owns the changed slot
	Property string

	// Item is the single element added or removed. Entity references are
	// delivered as the Entity itself. Nil for resets and property changes.
	Item any

	// Old and New carry the previous and current scalar value for
	// property changes.
	Old any
	New any
}

// Handler receives notifications.
type Handler func(Notification)

// Handle identifies one subscription. The zero Handle is never issued.
type Handle uint64
