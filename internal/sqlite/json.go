package sqlite

import "encoding/json"

// JSON record structures that mirror the JSONL file format.

// entityJSON represents an entity in entities.jsonl.
type entityJSON struct {
	EntityID string `json:"entity_id"`
	TypeName string `json:"type_name"`
	Position int64  `json:"position"`
}

// slotValueJSON represents one stored value in slot_values.jsonl. Scalars
// have a single row with ordinal 0; collections have one row per member in
// collection order. Value is the JSON encoding of the member; entity
// references are stored as the referenced ID.
type slotValueJSON struct {
	EntityID  string          `json:"entity_id"`
	Property  string          `json:"property"`
	Kind      string          `json:"kind"`
	Ordinal   int64           `json:"ordinal"`
	ValueType string          `json:"value_type"`
	Value     json.RawMessage `json:"value"`
}
