// Package proxy implements entity proxies with change tracking: scalar
// slots that only notify on real changes, observable collections that
// report the exact element added or removed, and inverse relationship
// mirroring that keeps both ends of a declared pair consistent.
//
// Everything runs synchronously on the caller's goroutine. By the time a
// mutating call returns, both ends of any inverse pair have changed and
// every subscriber attached at the time of the change has been notified.
package proxy

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

var _ types.EntityContext = (*Context)(nil)

// Context owns the entities created from one schema. It is not safe for
// concurrent mutation; callers sharing a Context across goroutines must
// serialize access.
type Context struct {
	schema   types.Schema
	entities map[string]*entity
	order    []*entity
	logger   *slog.Logger
	newID    func() string
	disposed bool

	// depth counts mutations in progress. Notifications raised while it is
	// above zero wait in pending until the outermost mutation has settled
	// every slot it touches.
	depth   int
	pending []delivery
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for debug tracing of creation,
// mirroring and commits. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID v7 generator used by Create.
func WithIDGenerator(fn func() string) Option {
	return func(c *Context) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewContext validates schema and returns an empty context. The schema is
// copied; later changes to the caller's value have no effect.
func NewContext(schema types.Schema, opts ...Option) (*Context, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	c := &Context{
		schema:   copySchema(schema),
		entities: make(map[string]*entity),
		logger:   slog.New(slog.DiscardHandler),
		newID:    generateUUID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("schema registered", "types", len(c.schema.Types))
	return c, nil
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

func copySchema(s types.Schema) types.Schema {
	out := types.Schema{Types: make([]types.EntityType, len(s.Types))}
	for i, t := range s.Types {
		out.Types[i] = types.EntityType{
			Name:       t.Name,
			Properties: append([]types.PropertyDef(nil), t.Properties...),
		}
	}
	return out
}

// Schema returns the schema the context was built from.
func (c *Context) Schema() types.Schema {
	return copySchema(c.schema)
}

// Create returns a new entity with every slot unset. New entities count as
// modified until the next successful SaveChanges.
func (c *Context) Create(typeName string) (types.Entity, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	typ, ok := c.schema.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownEntityType, typeName)
	}
	id := c.newID()
	if _, exists := c.entities[id]; exists {
		return nil, fmt.Errorf("%w: %s", types.ErrDuplicateEntity, id)
	}
	e := newEntity(c, typ, id)
	e.modified = true
	c.add(e)
	c.logger.Debug("entity created", "type", typeName, "id", id)
	return e, nil
}

// Get returns the entity with the given ID, or ErrEntityNotFound.
func (c *Context) Get(id string) (types.Entity, error) {
	e, ok := c.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrEntityNotFound, id)
	}
	return e, nil
}

// Entities returns every entity in creation or load order.
func (c *Context) Entities() []types.Entity {
	out := make([]types.Entity, len(c.order))
	for i, e := range c.order {
		out[i] = e
	}
	return out
}

// Modified returns the entities changed since they were created, loaded or
// last saved, in creation order.
func (c *Context) Modified() []types.Entity {
	var out []types.Entity
	for _, e := range c.order {
		if e.modified {
			out = append(out, e)
		}
	}
	return out
}

// SaveChanges commits snapshots of every modified entity. Nothing is
// handed to the committer when no entity changed. Modified flags survive a
// failed commit so that the next attempt resends the same entities.
func (c *Context) SaveChanges(committer types.Committer) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	var dirty []*entity
	for _, e := range c.order {
		if e.modified {
			dirty = append(dirty, e)
		}
	}
	if len(dirty) == 0 {
		return nil
	}
	snaps := make([]types.Snapshot, len(dirty))
	for i, e := range dirty {
		snaps[i] = e.Snapshot()
	}
	if err := committer.Commit(snaps); err != nil {
		return fmt.Errorf("commit %d entities: %w", len(snaps), err)
	}
	for _, e := range dirty {
		e.modified = false
	}
	c.logger.Debug("changes saved", "entities", len(snaps))
	return nil
}

// Dispose detaches every subscriber. Later mutations fail with
// ErrContextDisposed; reads keep working. Idempotent.
func (c *Context) Dispose() error {
	if c.disposed {
		return nil
	}
	for _, e := range c.order {
		e.detach()
	}
	c.disposed = true
	c.logger.Debug("context disposed", "entities", len(c.order))
	return nil
}

func (c *Context) checkLive() error {
	if c.disposed {
		return types.ErrContextDisposed
	}
	return nil
}

func (c *Context) add(e *entity) {
	c.entities[e.id] = e
	c.order = append(c.order, e)
}
