package proxy

import (
	"github.com/mesh-intelligence/entrack/pkg/types"
)

// scalar is a single-valued slot. Assignments that do not change the value
// are dropped before any state or notification is touched.
type scalar struct {
	owner *entity
	def   *types.PropertyDef
	value any
}

// set stores v and reports whether the slot changed. Previous and new
// inverse ends are brought in line before any subscriber is notified.
func (s *scalar) set(v any) (bool, error) {
	ctx := s.owner.ctx
	ctx.begin()
	defer ctx.end()

	v, err := ctx.coerce(s.def, v)
	if err != nil {
		return false, err
	}
	if Equal(s.value, v) {
		return false, nil
	}

	old := s.value
	s.value = v
	s.owner.touch()

	if s.def.Inverse != "" {
		if prev, ok := old.(*entity); ok {
			if err := ctx.mirrorUnlink(s.owner, s.def, prev); err != nil {
				return true, err
			}
		}
		if next, ok := v.(*entity); ok {
			if err := ctx.mirrorLink(s.owner, s.def, next); err != nil {
				return true, err
			}
		}
	}

	ctx.emit(&s.owner.observers, types.Notification{
		Kind:     types.PropertyChanged,
		Subject:  s.owner,
		Property: s.def.Name,
		Old:      old,
		New:      v,
	})
	return true, nil
}

func (s *scalar) link(peer *entity) error {
	_, err := s.set(peer)
	return err
}

func (s *scalar) unlink(peer *entity) error {
	if cur, ok := s.value.(*entity); !ok || cur != peer {
		return nil
	}
	_, err := s.set(nil)
	return err
}

// snapshot returns the value as it appears in a types.Snapshot.
func (s *scalar) snapshot() any {
	return snapshotValue(s.value)
}

func snapshotValue(v any) any {
	if e, ok := v.(*entity); ok {
		return types.Ref{ID: e.id}
	}
	return v
}
