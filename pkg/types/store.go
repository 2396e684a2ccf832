package types

// Store is a persistence backend for entity snapshots. Attach must be
// called before Commit or Load; after Detach both return ErrStoreDetached.
type Store interface {
	Committer
	Loader

	// Attach opens the store described by config.
	Attach(config Config) error

	// Detach flushes pending writes and releases resources. Detach is
	// idempotent.
	Detach() error
}
