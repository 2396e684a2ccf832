// Package sqlite implements the entity snapshot store. JSONL files in the
// data directory are the source of truth; SQLite is rebuilt from them on
// every Attach and serves Load and Commit.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Backend implements types.Store using SQLite as the query engine and JSONL
// files as the source of truth. It is safe for concurrent use.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *slog.Logger

	// nextPosition orders entities by first commit.
	nextPosition int64

	syncStrategy  string         // effective sync strategy: immediate or on_close
	pendingWrites []pendingWrite // commits not yet persisted to JSONL
}

// pendingWrite records a commit whose JSONL persist was deferred by the
// on_close strategy.
type pendingWrite struct {
	entities int
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for store operations.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, recreates the SQLite database,
// creates missing JSONL files and loads them.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start fresh each time.
	dbPath := filepath.Join(dataDir, databaseFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	var next int64
	if err := db.QueryRow("SELECT COALESCE(MAX(position) + 1, 0) FROM entities").Scan(&next); err != nil {
		db.Close()
		return err
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.nextPosition = next
	b.syncStrategy = config.EffectiveSyncStrategy()
	b.pendingWrites = nil
	b.attached = true

	b.logger.Debug("store attached", "data_dir", dataDir, "sync_strategy", b.syncStrategy, "entities", next)
	return nil
}

// Detach releases all resources held by the backend.
// Flushes pending writes for the on_close strategy, then closes the SQLite
// connection. After Detach, Commit and Load return ErrStoreDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.logger.Debug("store detached", "data_dir", b.config.DataDir)
	return nil
}

// Commit stores snapshots in one transaction. Each snapshot replaces every
// stored slot value of its entity. An invalid snapshot fails the whole
// commit before anything is written.
func (b *Backend) Commit(snaps []types.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	if len(snaps) == 0 {
		return nil
	}

	encoded := make([][]slotRow, len(snaps))
	for i, s := range snaps {
		rows, err := encodeSnapshot(s)
		if err != nil {
			return err
		}
		encoded[i] = rows
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	next := b.nextPosition
	for i, s := range snaps {
		var pos int64
		err := tx.QueryRow("SELECT position FROM entities WHERE entity_id = ?", s.ID).Scan(&pos)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.Exec("INSERT INTO entities (entity_id, type_name, position) VALUES (?, ?, ?)", s.ID, s.Type, next); err != nil {
				return fmt.Errorf("insert entity %s: %w", s.ID, err)
			}
			next++
		case err != nil:
			return fmt.Errorf("lookup entity %s: %w", s.ID, err)
		default:
			if _, err := tx.Exec("UPDATE entities SET type_name = ? WHERE entity_id = ?", s.Type, s.ID); err != nil {
				return fmt.Errorf("update entity %s: %w", s.ID, err)
			}
		}

		if _, err := tx.Exec("DELETE FROM slot_values WHERE entity_id = ?", s.ID); err != nil {
			return fmt.Errorf("clear slots of %s: %w", s.ID, err)
		}
		for _, r := range encoded[i] {
			_, err := tx.Exec(`INSERT INTO slot_values
    (entity_id, property, kind, ordinal, value_type, value) VALUES (?, ?, ?, ?, ?, ?)`,
				s.ID, r.property, r.kind, r.ordinal, string(r.valueType), r.value)
			if err != nil {
				return fmt.Errorf("insert %s.%s: %w", s.ID, r.property, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	b.nextPosition = next
	b.logger.Debug("snapshots committed", "entities", len(snaps))

	if b.shouldPersistImmediately() {
		return b.persistJSONLLocked()
	}
	b.pendingWrites = append(b.pendingWrites, pendingWrite{entities: len(snaps)})
	return nil
}

// Load returns a snapshot of every stored entity in first-commit order.
func (b *Backend) Load() ([]types.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query("SELECT entity_id, type_name FROM entities ORDER BY position")
	if err != nil {
		return nil, err
	}
	var snaps []types.Snapshot
	index := make(map[string]int)
	for rows.Next() {
		var s types.Snapshot
		if err := rows.Scan(&s.ID, &s.Type); err != nil {
			rows.Close()
			return nil, err
		}
		s.Scalars = make(map[string]any)
		s.Collections = make(map[string][]any)
		index[s.ID] = len(snaps)
		snaps = append(snaps, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vals, err := b.db.Query(`SELECT entity_id, property, kind, value_type, value
    FROM slot_values ORDER BY entity_id, property, ordinal`)
	if err != nil {
		return nil, err
	}
	defer vals.Close()
	for vals.Next() {
		var id, property, kind, vt, text string
		if err := vals.Scan(&id, &property, &kind, &vt, &text); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		v, err := decodeValue(types.ValueType(vt), text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", types.ErrInvalidSnapshot, id, property, err)
		}
		switch kind {
		case kindScalar:
			snaps[i].Scalars[property] = v
		case kindCollection:
			snaps[i].Collections[property] = append(snaps[i].Collections[property], v)
		default:
			return nil, fmt.Errorf("%w: %s.%s has kind %q", types.ErrInvalidSnapshot, id, property, kind)
		}
	}
	return snaps, vals.Err()
}

// shouldPersistImmediately returns true if JSONL writes happen on every
// commit rather than at Detach.
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// flushPendingWritesLocked persists deferred commits. One rewrite covers
// every queued commit since the files are regenerated from SQLite.
// The caller must hold b.mu.
func (b *Backend) flushPendingWritesLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}
	total := 0
	for _, pw := range b.pendingWrites {
		total += pw.entities
	}
	if err := b.persistJSONLLocked(); err != nil {
		return err
	}
	b.logger.Debug("pending writes flushed", "commits", len(b.pendingWrites), "entities", total)
	b.pendingWrites = nil
	return nil
}

// persistJSONLLocked rewrites both JSONL files from SQLite.
// The caller must hold b.mu.
func (b *Backend) persistJSONLLocked() error {
	entities, err := b.queryEntities()
	if err != nil {
		return err
	}
	values, err := b.querySlotValues()
	if err != nil {
		return err
	}

	entityRecs, err := marshalRecords(entities)
	if err != nil {
		return err
	}
	valueRecs, err := marshalRecords(values)
	if err != nil {
		return err
	}

	dir := b.config.DataDir
	if err := writeJSONL(filepath.Join(dir, entitiesJSONL), entityRecs); err != nil {
		return fmt.Errorf("persist %s: %w", entitiesJSONL, err)
	}
	if err := writeJSONL(filepath.Join(dir, slotValuesJSONL), valueRecs); err != nil {
		return fmt.Errorf("persist %s: %w", slotValuesJSONL, err)
	}
	return nil
}

func (b *Backend) queryEntities() ([]entityJSON, error) {
	rows, err := b.db.Query("SELECT entity_id, type_name, position FROM entities ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entityJSON
	for rows.Next() {
		var e entityJSON
		if err := rows.Scan(&e.EntityID, &e.TypeName, &e.Position); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *Backend) querySlotValues() ([]slotValueJSON, error) {
	rows, err := b.db.Query(`SELECT s.entity_id, s.property, s.kind, s.ordinal, s.value_type, s.value
    FROM slot_values s JOIN entities e ON e.entity_id = s.entity_id
    ORDER BY e.position, s.property, s.ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []slotValueJSON
	for rows.Next() {
		var v slotValueJSON
		var text string
		if err := rows.Scan(&v.EntityID, &v.Property, &v.Kind, &v.Ordinal, &v.ValueType, &text); err != nil {
			return nil, err
		}
		v.Value = json.RawMessage(text)
		out = append(out, v)
	}
	return out, rows.Err()
}
