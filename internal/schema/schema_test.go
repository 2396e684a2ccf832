package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

func TestParseExample(t *testing.T) {
	s, err := Parse(Example)
	require.NoError(t, err)
	require.Len(t, s.Types, 3)

	company, ok := s.Type("Company")
	require.True(t, ok)
	listedOn, ok := company.Property("ListedOn")
	require.True(t, ok)
	assert.Equal(t, types.KindScalar, listedOn.Kind)
	assert.Equal(t, types.ValueTypeEntity, listedOn.ValueType)
	assert.Equal(t, "Market", listedOn.Target)
	assert.Equal(t, "ListedCompanies", listedOn.Inverse)

	person, _ := s.Type("FoafPerson")
	nicks, _ := person.Property("Nicknames")
	assert.True(t, nicks.Unique)
	born, _ := person.Property("Born")
	assert.True(t, born.Nullable)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"empty document", "", types.ErrInvalidSchema},
		{"not yaml", "types: [", types.ErrInvalidSchema},
		{"unknown key", "types:\n  - name: A\n    properties:\n      - {name: X, kind: scalar, type: string, invers: Y}\n", types.ErrInvalidSchema},
		{"unknown value type", "types:\n  - name: A\n    properties:\n      - {name: X, kind: scalar, type: blob}\n", types.ErrInvalidSchema},
		{
			"one-sided inverse",
			"types:\n  - name: A\n    properties:\n      - {name: Out, kind: collection, type: entity, target: A, inverse: In}\n      - {name: In, kind: collection, type: entity, target: A}\n",
			types.ErrInvalidInversePair,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, Example, 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Types, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
