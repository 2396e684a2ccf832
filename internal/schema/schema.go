// Package schema reads entity type declarations from YAML files.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Example is a starter schema written by `entrack init`. It declares the
// company/market and FOAF person model.
//
//go:embed example.yaml
var Example []byte

// Parse decodes and validates a YAML schema. Unknown keys are rejected so
// a misspelled "inverse" fails here rather than silently dropping a pair.
func Parse(data []byte) (types.Schema, error) {
	var s types.Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return types.Schema{}, fmt.Errorf("%w: empty schema document", types.ErrInvalidSchema)
		}
		return types.Schema{}, fmt.Errorf("%w: %v", types.ErrInvalidSchema, err)
	}
	if err := s.Validate(); err != nil {
		return types.Schema{}, err
	}
	return s, nil
}

// Load reads and parses the schema file at path.
func Load(path string) (types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Schema{}, fmt.Errorf("read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return types.Schema{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
