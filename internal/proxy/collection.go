package proxy

import (
	"iter"
	"slices"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

var _ types.Collection = (*collection)(nil)

// collection is an observable multi-value slot. Literal collections keep
// list semantics unless declared unique; reference collections are always
// set-like so that inverse mirroring terminates.
type collection struct {
	owner     *entity
	def       *types.PropertyDef
	items     []any
	observers registry
}

// Add inserts v and reports whether membership changed.
func (c *collection) Add(v any) (bool, error) {
	if err := c.owner.ctx.checkLive(); err != nil {
		return false, err
	}
	return c.add(v)
}

// Remove deletes the first occurrence of v. Removing an absent value is a
// no-op and emits nothing.
func (c *collection) Remove(v any) (bool, error) {
	if err := c.owner.ctx.checkLive(); err != nil {
		return false, err
	}
	return c.remove(v)
}

// Clear empties the collection and emits one reset, even when it was
// already empty. Each removed reference is unlinked from its peer first.
func (c *collection) Clear() error {
	ctx := c.owner.ctx
	if err := ctx.checkLive(); err != nil {
		return err
	}
	ctx.begin()
	defer ctx.end()

	removed := c.items
	c.items = nil
	c.owner.touch()

	if c.def.Inverse != "" {
		for _, item := range removed {
			if err := ctx.mirrorUnlink(c.owner, c.def, item.(*entity)); err != nil {
				return err
			}
		}
	}

	ctx.emit(&c.observers, types.Notification{
		Kind:     types.CollectionReset,
		Subject:  c.owner,
		Property: c.def.Name,
	})
	return nil
}

// Contains reports membership. Values of the wrong type are never members.
func (c *collection) Contains(v any) bool {
	v, err := c.owner.ctx.coerce(c.def, v)
	if err != nil {
		return false
	}
	return c.indexOf(v) >= 0
}

func (c *collection) Len() int {
	return len(c.items)
}

func (c *collection) Items() []any {
	return slices.Clone(c.items)
}

// All yields the members present when iteration starts. Mutations made
// while iterating are not observed by that iteration.
func (c *collection) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, item := range slices.Clone(c.items) {
			if !yield(item) {
				return
			}
		}
	}
}

func (c *collection) Subscribe(h types.Handler) types.Handle {
	if c.owner.ctx.disposed {
		return 0
	}
	return c.observers.add(h)
}

func (c *collection) Unsubscribe(h types.Handle) bool {
	return c.observers.remove(h)
}

func (c *collection) add(v any) (bool, error) {
	ctx := c.owner.ctx
	ctx.begin()
	defer ctx.end()

	v, err := ctx.coerce(c.def, v)
	if err != nil {
		return false, err
	}
	if c.def.IsSetLike() && c.indexOf(v) >= 0 {
		return false, nil
	}

	c.items = append(c.items, v)
	c.owner.touch()

	if c.def.Inverse != "" {
		if err := ctx.mirrorLink(c.owner, c.def, v.(*entity)); err != nil {
			return true, err
		}
	}

	ctx.emit(&c.observers, types.Notification{
		Kind:     types.CollectionAdd,
		Subject:  c.owner,
		Property: c.def.Name,
		Item:     v,
	})
	return true, nil
}

func (c *collection) remove(v any) (bool, error) {
	ctx := c.owner.ctx
	ctx.begin()
	defer ctx.end()

	v, err := ctx.coerce(c.def, v)
	if err != nil {
		return false, err
	}
	i := c.indexOf(v)
	if i < 0 {
		return false, nil
	}

	c.items = slices.Delete(c.items, i, i+1)
	c.owner.touch()

	if c.def.Inverse != "" {
		if err := ctx.mirrorUnlink(c.owner, c.def, v.(*entity)); err != nil {
			return true, err
		}
	}

	ctx.emit(&c.observers, types.Notification{
		Kind:     types.CollectionRemove,
		Subject:  c.owner,
		Property: c.def.Name,
		Item:     v,
	})
	return true, nil
}

func (c *collection) link(peer *entity) error {
	_, err := c.add(peer)
	return err
}

func (c *collection) unlink(peer *entity) error {
	_, err := c.remove(peer)
	return err
}

func (c *collection) indexOf(v any) int {
	for i, item := range c.items {
		if Equal(item, v) {
			return i
		}
	}
	return -1
}

func (c *collection) snapshot() []any {
	out := make([]any, len(c.items))
	for i, item := range c.items {
		out[i] = snapshotValue(item)
	}
	return out
}
