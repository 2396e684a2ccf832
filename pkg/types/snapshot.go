package types

// Ref is how an entity reference appears in a Snapshot.
type Ref struct {
	ID string `json:"ref"`
}

// Snapshot is a read-only copy of an entity's slots, handed to a Committer.
// Scalars holds only slots that are set; Collections holds every
// collection slot, empty or not. Entity references appear as Ref.
type Snapshot struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Scalars     map[string]any   `json:"scalars"`
	Collections map[string][]any `json:"collections"`
}

// Committer persists snapshots of modified entities.
type Committer interface {
	Commit(snaps []Snapshot) error
}

// Loader returns snapshots of stored entities.
type Loader interface {
	Load() ([]Snapshot, error)
}
