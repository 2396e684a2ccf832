package proxy

import (
	"fmt"
	"math"
	"time"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Load reconstructs entities from snapshots without emitting notifications
// or marking anything modified. References may point at entities in the
// same batch or already in the context. Inverse ends that the snapshots
// leave out are filled in; ends that contradict each other fail the whole
// load and leave the context untouched.
func (c *Context) Load(snaps []types.Snapshot) error {
	if err := c.checkLive(); err != nil {
		return err
	}

	staged := make(map[string]*entity, len(snaps))
	order := make([]*entity, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID == "" {
			return fmt.Errorf("%w: snapshot of %s has no id", types.ErrInvalidSnapshot, snap.Type)
		}
		typ, ok := c.schema.Type(snap.Type)
		if !ok {
			return fmt.Errorf("%w: %q", types.ErrUnknownEntityType, snap.Type)
		}
		if _, exists := c.entities[snap.ID]; exists {
			return fmt.Errorf("%w: %s", types.ErrDuplicateEntity, snap.ID)
		}
		if _, exists := staged[snap.ID]; exists {
			return fmt.Errorf("%w: %s", types.ErrDuplicateEntity, snap.ID)
		}
		e := newEntity(c, typ, snap.ID)
		staged[snap.ID] = e
		order = append(order, e)
	}

	resolve := func(id string) (*entity, error) {
		if e, ok := staged[id]; ok {
			return e, nil
		}
		if e, ok := c.entities[id]; ok {
			return e, nil
		}
		return nil, fmt.Errorf("%w: %s", types.ErrEntityNotFound, id)
	}

	for i, snap := range snaps {
		if err := c.fill(order[i], snap, resolve); err != nil {
			return fmt.Errorf("load %s: %w", snap.ID, err)
		}
	}

	links, err := c.missingLinks(order)
	if err != nil {
		return err
	}
	for _, l := range links {
		l.apply()
	}
	for _, e := range order {
		c.add(e)
	}
	c.logger.Debug("entities loaded", "count", len(order), "mirrored", len(links))
	return nil
}

func (c *Context) fill(e *entity, snap types.Snapshot, resolve func(string) (*entity, error)) error {
	for name, raw := range snap.Scalars {
		s, ok := e.scalars[name]
		if !ok {
			return fmt.Errorf("%w: %s.%s", types.ErrPropertyNotFound, e.typ.Name, name)
		}
		v, err := c.loadValue(s.def, raw, resolve)
		if err != nil {
			return err
		}
		s.value = v
	}
	for name, raws := range snap.Collections {
		col, ok := e.colls[name]
		if !ok {
			return fmt.Errorf("%w: %s.%s", types.ErrPropertyNotFound, e.typ.Name, name)
		}
		for _, raw := range raws {
			v, err := c.loadValue(col.def, raw, resolve)
			if err != nil {
				return err
			}
			if col.def.IsSetLike() && col.indexOf(v) >= 0 {
				continue
			}
			col.items = append(col.items, v)
		}
	}
	return nil
}

// loadValue accepts the forms a snapshot takes after a trip through JSON:
// Ref or bare IDs for references, whole float64 for integers and RFC 3339
// strings for times.
func (c *Context) loadValue(def *types.PropertyDef, raw any, resolve func(string) (*entity, error)) (any, error) {
	switch def.ValueType {
	case types.ValueTypeEntity:
		var id string
		switch r := raw.(type) {
		case types.Ref:
			id = r.ID
		case string:
			id = r
		default:
			return c.coerce(def, raw)
		}
		e, err := resolve(id)
		if err != nil {
			return nil, err
		}
		raw = e
	case types.ValueTypeInteger:
		if f, ok := raw.(float64); ok && f == math.Trunc(f) {
			raw = int64(f)
		}
	case types.ValueTypeTime:
		if s, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", types.ErrTypeMismatch, def.Name, err)
			}
			raw = t
		}
	}
	return c.coerce(def, raw)
}

// pendingLink is an inverse end a load has to fill in.
type pendingLink struct {
	peer  *entity
	name  string
	owner *entity
}

func (l pendingLink) apply() {
	if s, ok := l.peer.scalars[l.name]; ok {
		s.value = l.owner
		return
	}
	col := l.peer.colls[l.name]
	if col.indexOf(l.owner) < 0 {
		col.items = append(col.items, l.owner)
	}
}

// missingLinks lists the inverse ends the loaded entities imply but do not
// hold. A scalar end already holding some other entity is a contradiction.
func (c *Context) missingLinks(loaded []*entity) ([]pendingLink, error) {
	var links []pendingLink
	claimed := make(map[*scalar]*entity)

	need := func(owner *entity, def *types.PropertyDef, peer *entity) error {
		if s, ok := peer.scalars[def.Inverse]; ok {
			cur, _ := s.value.(*entity)
			if cur == owner {
				return nil
			}
			if prev, ok := claimed[s]; ok && prev != owner {
				return fmt.Errorf("%w: %s.%s claimed by %s and %s", types.ErrInvalidSnapshot, peer.id, def.Inverse, prev.id, owner.id)
			}
			if cur != nil {
				return fmt.Errorf("%w: %s.%s holds %s but %s links to it", types.ErrInvalidSnapshot, peer.id, def.Inverse, cur.id, owner.id)
			}
			if _, ok := claimed[s]; !ok {
				claimed[s] = owner
				links = append(links, pendingLink{peer: peer, name: def.Inverse, owner: owner})
			}
			return nil
		}
		if peer.colls[def.Inverse].indexOf(owner) < 0 {
			links = append(links, pendingLink{peer: peer, name: def.Inverse, owner: owner})
		}
		return nil
	}

	for _, e := range loaded {
		for _, s := range e.scalars {
			peer, ok := s.value.(*entity)
			if !ok || s.def.Inverse == "" {
				continue
			}
			if err := need(e, s.def, peer); err != nil {
				return nil, err
			}
		}
		for _, col := range e.colls {
			if col.def.Inverse == "" {
				continue
			}
			for _, item := range col.items {
				if err := need(e, col.def, item.(*entity)); err != nil {
					return nil, err
				}
			}
		}
	}
	return links, nil
}
