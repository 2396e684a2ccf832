package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
)

// loadAllJSONL reads the JSONL files from dataDir and inserts their records
// into SQLite. Loading is transactional: all succeed or the database stays
// empty. Malformed lines and records that violate table constraints are
// skipped. Unknown fields are ignored so older binaries can read newer
// files.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	entities, err := readJSONL(filepath.Join(dataDir, entitiesJSONL))
	if err != nil {
		return err
	}
	if err := insertEntities(tx, entities); err != nil {
		return fmt.Errorf("loading %s: %w", entitiesJSONL, err)
	}

	values, err := readJSONL(filepath.Join(dataDir, slotValuesJSONL))
	if err != nil {
		return err
	}
	if err := insertSlotValues(tx, values); err != nil {
		return fmt.Errorf("loading %s: %w", slotValuesJSONL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func insertEntities(tx *sql.Tx, records []json.RawMessage) error {
	stmt, err := tx.Prepare("INSERT INTO entities (entity_id, type_name, position) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		var e entityJSON
		if err := json.Unmarshal(rec, &e); err != nil || e.EntityID == "" || e.TypeName == "" {
			continue
		}
		if _, err := stmt.Exec(e.EntityID, e.TypeName, e.Position); err != nil {
			continue
		}
	}
	return nil
}

func insertSlotValues(tx *sql.Tx, records []json.RawMessage) error {
	stmt, err := tx.Prepare(`INSERT INTO slot_values
    (entity_id, property, kind, ordinal, value_type, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		var v slotValueJSON
		if err := json.Unmarshal(rec, &v); err != nil || v.EntityID == "" || v.Property == "" || len(v.Value) == 0 {
			continue
		}
		if _, err := stmt.Exec(v.EntityID, v.Property, v.Kind, v.Ordinal, v.ValueType, string(v.Value)); err != nil {
			continue
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
