package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - create: {type: Market, as: nyse}
  - set: {entity: nyse, property: Name, value: NYSE}
  - watch: {entity: nyse}
  - expect: {entity: nyse, property: Name, equals: NYSE}
`))
	require.NoError(t, err)
	require.Len(t, s.Steps, 4)

	var ops []string
	for i := range s.Steps {
		ops = append(ops, s.Steps[i].Op())
	}
	assert.Equal(t, []string{"create", "set", "watch", "expect"}, ops)
	assert.Equal(t, "nyse", s.Steps[0].Create.As)
	assert.Equal(t, "NYSE", s.Steps[1].Set.Value)
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Steps)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"two operations", "steps:\n  - {create: {type: A, as: a}, clear: {entity: a, property: X}}\n"},
		{"no operation", "steps:\n  - {}\n"},
		{"unknown operation", "steps:\n  - delete: {entity: a}\n"},
		{"malformed", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidScript)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - create: {type: Market, as: m}\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
