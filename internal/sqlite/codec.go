package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Slot kinds as stored in the kind column.
const (
	kindScalar     = string(types.KindScalar)
	kindCollection = string(types.KindCollection)
)

// slotRow is one slot_values row before it reaches SQLite.
type slotRow struct {
	property  string
	kind      string
	ordinal   int64
	valueType types.ValueType
	value     string
}

// encodeValue returns the value type and JSON text stored for a snapshot
// value. Snapshots carry canonical values, so the Go type alone decides
// the value type.
func encodeValue(v any) (types.ValueType, string, error) {
	var (
		vt  types.ValueType
		out any
	)
	switch x := v.(type) {
	case types.Ref:
		if x.ID == "" {
			return "", "", fmt.Errorf("%w: reference without id", types.ErrInvalidSnapshot)
		}
		vt, out = types.ValueTypeEntity, x.ID
	case string:
		vt, out = types.ValueTypeString, x
	case int64:
		vt, out = types.ValueTypeInteger, x
	case int:
		vt, out = types.ValueTypeInteger, int64(x)
	case float64:
		vt, out = types.ValueTypeFloat, x
	case bool:
		vt, out = types.ValueTypeBoolean, x
	case time.Time:
		vt, out = types.ValueTypeTime, x.Format(time.RFC3339Nano)
	default:
		return "", "", fmt.Errorf("%w: cannot store %T", types.ErrInvalidSnapshot, v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", "", err
	}
	return vt, string(b), nil
}

// decodeValue reverses encodeValue.
func decodeValue(vt types.ValueType, text string) (any, error) {
	data := []byte(text)
	switch vt {
	case types.ValueTypeString:
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	case types.ValueTypeInteger:
		var n int64
		err := json.Unmarshal(data, &n)
		return n, err
	case types.ValueTypeFloat:
		var f float64
		err := json.Unmarshal(data, &f)
		return f, err
	case types.ValueTypeBoolean:
		var b bool
		err := json.Unmarshal(data, &b)
		return b, err
	case types.ValueTypeTime:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case types.ValueTypeEntity:
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, err
		}
		return types.Ref{ID: id}, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", vt)
	}
}

// encodeSnapshot flattens a snapshot into slot rows, properties in name
// order and collection members in collection order.
func encodeSnapshot(s types.Snapshot) ([]slotRow, error) {
	if s.ID == "" || s.Type == "" {
		return nil, fmt.Errorf("%w: snapshot needs id and type", types.ErrInvalidSnapshot)
	}
	var rows []slotRow
	for _, name := range sortedKeys(s.Scalars) {
		vt, text, err := encodeValue(s.Scalars[name])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.ID, name, err)
		}
		rows = append(rows, slotRow{property: name, kind: kindScalar, valueType: vt, value: text})
	}
	for _, name := range sortedKeys(s.Collections) {
		for i, v := range s.Collections[name] {
			vt, text, err := encodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", s.ID, name, i, err)
			}
			rows = append(rows, slotRow{property: name, kind: kindCollection, ordinal: int64(i), valueType: vt, value: text})
		}
	}
	return rows, nil
}
