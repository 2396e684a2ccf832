package proxy

import (
	"fmt"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

var _ types.Entity = (*entity)(nil)

// entity is the proxy for one record. It owns its slots exclusively; the
// only other writer is the inverse coordinator acting on behalf of a peer.
type entity struct {
	ctx       *Context
	id        string
	typ       *types.EntityType
	scalars   map[string]*scalar
	colls     map[string]*collection
	observers registry
	modified  bool
}

func newEntity(ctx *Context, typ *types.EntityType, id string) *entity {
	e := &entity{
		ctx:     ctx,
		id:      id,
		typ:     typ,
		scalars: make(map[string]*scalar),
		colls:   make(map[string]*collection),
	}
	for i := range typ.Properties {
		def := &typ.Properties[i]
		switch def.Kind {
		case types.KindScalar:
			e.scalars[def.Name] = &scalar{owner: e, def: def, value: zeroValue(def)}
		case types.KindCollection:
			e.colls[def.Name] = &collection{owner: e, def: def}
		}
	}
	return e
}

func (e *entity) ID() string   { return e.id }
func (e *entity) Type() string { return e.typ.Name }

func (e *entity) String() string {
	return fmt.Sprintf("%s(%s)", e.typ.Name, e.id)
}

// Get returns the current value of a scalar slot; nil when unset.
func (e *entity) Get(property string) (any, error) {
	s, err := e.scalar(property)
	if err != nil {
		return nil, err
	}
	return s.value, nil
}

// Set assigns a scalar slot.
func (e *entity) Set(property string, value any) error {
	s, err := e.scalar(property)
	if err != nil {
		return err
	}
	if err := e.ctx.checkLive(); err != nil {
		return err
	}
	_, err = s.set(value)
	return err
}

func (e *entity) Collection(property string) (types.Collection, error) {
	if c, ok := e.colls[property]; ok {
		return c, nil
	}
	if _, ok := e.scalars[property]; ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrNotCollection, e.typ.Name, property)
	}
	return nil, fmt.Errorf("%w: %s.%s", types.ErrPropertyNotFound, e.typ.Name, property)
}

func (e *entity) Subscribe(h types.Handler) types.Handle {
	if e.ctx.disposed {
		return 0
	}
	return e.observers.add(h)
}

func (e *entity) Unsubscribe(h types.Handle) bool {
	return e.observers.remove(h)
}

// Snapshot copies the slot state for a committer. Unset scalars are
// omitted; non-nullable scalars always appear, at least with their zero
// value.
func (e *entity) Snapshot() types.Snapshot {
	snap := types.Snapshot{
		ID:          e.id,
		Type:        e.typ.Name,
		Scalars:     make(map[string]any, len(e.scalars)),
		Collections: make(map[string][]any, len(e.colls)),
	}
	for name, s := range e.scalars {
		if s.value != nil {
			snap.Scalars[name] = s.snapshot()
		}
	}
	for name, c := range e.colls {
		snap.Collections[name] = c.snapshot()
	}
	return snap
}

func (e *entity) scalar(property string) (*scalar, error) {
	if s, ok := e.scalars[property]; ok {
		return s, nil
	}
	if _, ok := e.colls[property]; ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrNotScalar, e.typ.Name, property)
	}
	return nil, fmt.Errorf("%w: %s.%s", types.ErrPropertyNotFound, e.typ.Name, property)
}

func (e *entity) touch() {
	e.modified = true
}

func (e *entity) detach() {
	e.observers.reset()
	for _, c := range e.colls {
		c.observers.reset()
	}
}
