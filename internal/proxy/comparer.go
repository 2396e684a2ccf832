package proxy

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Equal reports whether two slot values are the same. nil equals only nil,
// entity references compare by identity, times compare by instant, NaN
// equals NaN, and everything else compares by value.
func Equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if isNaN(a) || isNaN(b) {
		return isNaN(a) && isNaN(b)
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// zeroValue is the initial value of a scalar slot: nil where the slot
// accepts nil, otherwise the zero of its canonical type.
func zeroValue(def *types.PropertyDef) any {
	if def.AcceptsNil() {
		return nil
	}
	switch def.ValueType {
	case types.ValueTypeInteger:
		return int64(0)
	case types.ValueTypeFloat:
		return float64(0)
	case types.ValueTypeBoolean:
		return false
	case types.ValueTypeTime:
		return time.Time{}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	e, ok := v.(*entity)
	return ok && e == nil
}

// coerce converts v to the canonical Go type of the slot declared by def:
// string, int64, float64, bool, time.Time or *entity. A nil result means
// "unset" and is only returned for scalars that accept nil.
func (c *Context) coerce(def *types.PropertyDef, v any) (any, error) {
	if isNil(v) {
		if def.Kind == types.KindScalar && def.AcceptsNil() {
			return nil, nil
		}
		return nil, c.mismatch(def, v)
	}

	switch def.ValueType {
	case types.ValueTypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case types.ValueTypeInteger:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case types.ValueTypeFloat:
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
	case types.ValueTypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case types.ValueTypeTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case types.ValueTypeEntity:
		e, ok := v.(*entity)
		if !ok {
			break
		}
		if e.ctx != c {
			return nil, fmt.Errorf("%w: %s", types.ErrForeignEntity, e.id)
		}
		if e.typ.Name != def.Target {
			return nil, fmt.Errorf("%w: %s expects %s, got %s entity", types.ErrTypeMismatch, def.Name, def.Target, e.typ.Name)
		}
		return e, nil
	}
	return nil, c.mismatch(def, v)
}

func (c *Context) mismatch(def *types.PropertyDef, v any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", types.ErrTypeMismatch, def.Name, def.ValueType, v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
