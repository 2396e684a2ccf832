// Package script runs YAML mutation scripts against an entity context and
// records every change notification the script's watchers receive.
//
// A script is a list of steps. Each step holds exactly one operation:
//
//	steps:
//	  - create: {type: Market, as: nyse}
//	  - create: {type: Company, as: glaxo}
//	  - watch: {entity: nyse, property: ListedCompanies}
//	  - set: {entity: glaxo, property: ListedOn, value: nyse}
//	  - expect: {entity: nyse, property: ListedCompanies, contains: [glaxo]}
//
// Entity operands name an alias given by create, or the ID of an entity
// already in the context.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Script errors.
var (
	ErrInvalidScript     = errors.New("invalid script")
	ErrUnknownEntity     = errors.New("unknown entity alias")
	ErrExpectationFailed = errors.New("expectation failed")
)

// Script is a parsed mutation script.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one operation.
type Step struct {
	Create  *CreateOp `yaml:"create,omitempty"`
	Set     *SlotOp   `yaml:"set,omitempty"`
	Add     *SlotOp   `yaml:"add,omitempty"`
	Remove  *SlotOp   `yaml:"remove,omitempty"`
	Clear   *SlotOp   `yaml:"clear,omitempty"`
	Watch   *WatchOp  `yaml:"watch,omitempty"`
	Unwatch *WatchOp  `yaml:"unwatch,omitempty"`
	Expect  *ExpectOp `yaml:"expect,omitempty"`
}

// CreateOp creates an entity of Type and names it As.
type CreateOp struct {
	Type string `yaml:"type"`
	As   string `yaml:"as"`
}

// SlotOp targets one property of one entity. Value is ignored by clear.
// For entity properties Value names an entity; a missing value sets a
// scalar to nil.
type SlotOp struct {
	Entity   string `yaml:"entity"`
	Property string `yaml:"property"`
	Value    any    `yaml:"value,omitempty"`
}

// WatchOp subscribes to (or unsubscribes from) an entity's property
// changes, or to a single property when Property is set.
type WatchOp struct {
	Entity   string `yaml:"entity"`
	Property string `yaml:"property,omitempty"`
}

// ExpectOp asserts the state of one property. Every assertion given must
// hold.
type ExpectOp struct {
	Entity   string `yaml:"entity"`
	Property string `yaml:"property"`
	Equals   any    `yaml:"equals,omitempty"`
	Unset    bool   `yaml:"unset,omitempty"`
	Contains []any  `yaml:"contains,omitempty"`
	Lacks    []any  `yaml:"lacks,omitempty"`
	Len      *int   `yaml:"len,omitempty"`
}

// Op returns the name of the step's operation, or "" when the step holds
// none or several.
func (s *Step) Op() string {
	ops := []struct {
		name string
		set  bool
	}{
		{"create", s.Create != nil},
		{"set", s.Set != nil},
		{"add", s.Add != nil},
		{"remove", s.Remove != nil},
		{"clear", s.Clear != nil},
		{"watch", s.Watch != nil},
		{"unwatch", s.Unwatch != nil},
		{"expect", s.Expect != nil},
	}
	name := ""
	for _, op := range ops {
		if !op.set {
			continue
		}
		if name != "" {
			return ""
		}
		name = op.name
	}
	return name
}

// Parse decodes a YAML script and checks that every step holds exactly one
// operation.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &Script{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	for i := range s.Steps {
		if s.Steps[i].Op() == "" {
			return nil, fmt.Errorf("%w: step %d must hold exactly one operation", ErrInvalidScript, i+1)
		}
	}
	return &s, nil
}

// Load reads and parses the script file at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
