package sqlite

// JSONL file names in the data directory. These files are the source of
// truth; the SQLite database is rebuilt from them on every Attach.
const (
	entitiesJSONL   = "entities.jsonl"
	slotValuesJSONL = "slot_values.jsonl"
	databaseFile    = "entrack.db"
)

// Schema DDL for the store tables.
const (
	createEntities = `CREATE TABLE entities (
    entity_id TEXT PRIMARY KEY,
    type_name TEXT NOT NULL,
    position INTEGER NOT NULL
);`

	createSlotValues = `CREATE TABLE slot_values (
    entity_id TEXT NOT NULL,
    property TEXT NOT NULL,
    kind TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    value_type TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (entity_id, property, ordinal),
    FOREIGN KEY (entity_id) REFERENCES entities(entity_id) ON DELETE CASCADE
);`

	createSlotValuesIndex = `CREATE INDEX idx_slot_values_entity ON slot_values(entity_id);`
)

// schemaStatements lists the DDL in execution order.
var schemaStatements = []string{
	createEntities,
	createSlotValues,
	createSlotValuesIndex,
}
