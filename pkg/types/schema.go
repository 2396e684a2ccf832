package types

import "fmt"

// ValueType is the declared type of a scalar slot or of a collection's
// elements.
type ValueType string

// Value types determine what values a slot accepts.
const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeFloat   ValueType = "float"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeTime    ValueType = "time"
	ValueTypeEntity  ValueType = "entity"
)

// validValueTypes is the set of recognized value types.
var validValueTypes = map[ValueType]bool{
	ValueTypeString:  true,
	ValueTypeInteger: true,
	ValueTypeFloat:   true,
	ValueTypeBoolean: true,
	ValueTypeTime:    true,
	ValueTypeEntity:  true,
}

// IsValidValueType reports whether vt is a recognized value type.
func IsValidValueType(vt ValueType) bool {
	return validValueTypes[vt]
}

// PropertyKind distinguishes single-valued slots from collections.
type PropertyKind string

// Property kinds.
const (
	KindScalar     PropertyKind = "scalar"
	KindCollection PropertyKind = "collection"
)

// PropertyDef declares one property of an entity type.
type PropertyDef struct {
	// Name is unique within the entity type.
	Name string `json:"name" yaml:"name"`

	// Kind is scalar or collection.
	Kind PropertyKind `json:"kind" yaml:"kind"`

	// ValueType is the slot type for scalars and the element type for
	// collections.
	ValueType ValueType `json:"type" yaml:"type"`

	// Target names the referenced entity type when ValueType is entity.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Inverse names the paired property on Target. Both ends must name
	// each other.
	Inverse string `json:"inverse,omitempty" yaml:"inverse,omitempty"`

	// Unique gives a literal collection set semantics. Reference
	// collections are always set-like.
	Unique bool `json:"unique,omitempty" yaml:"unique,omitempty"`

	// Nullable lets integer, float, boolean and time scalars hold nil.
	// String and entity scalars are always nullable.
	Nullable bool `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// IsReference reports whether the property holds entity references.
func (p *PropertyDef) IsReference() bool {
	return p.ValueType == ValueTypeEntity
}

// IsSetLike reports whether a collection ignores adds of present values.
func (p *PropertyDef) IsSetLike() bool {
	return p.Kind == KindCollection && (p.Unique || p.IsReference())
}

// AcceptsNil reports whether a scalar slot may be assigned nil.
func (p *PropertyDef) AcceptsNil() bool {
	switch p.ValueType {
	case ValueTypeString, ValueTypeEntity:
		return true
	default:
		return p.Nullable
	}
}

// EntityType declares the properties of one kind of entity.
type EntityType struct {
	Name       string        `json:"name" yaml:"name"`
	Properties []PropertyDef `json:"properties" yaml:"properties"`
}

// Property returns the named property definition.
func (t *EntityType) Property(name string) (*PropertyDef, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// Schema is the static declaration of every entity type a context can
// create.
type Schema struct {
	Types []EntityType `json:"types" yaml:"types"`
}

// Type returns the named entity type.
func (s *Schema) Type(name string) (*EntityType, bool) {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return &s.Types[i], true
		}
	}
	return nil, false
}

// Validate checks names, value types, reference targets and inverse
// pairs. Inverse pair failures wrap ErrInvalidInversePair; every other
// failure wraps ErrInvalidSchema.
func (s *Schema) Validate() error {
	if len(s.Types) == 0 {
		return fmt.Errorf("%w: no entity types declared", ErrInvalidSchema)
	}
	seenTypes := make(map[string]bool, len(s.Types))
	for _, t := range s.Types {
		if t.Name == "" {
			return fmt.Errorf("%w: entity type with empty name", ErrInvalidSchema)
		}
		if seenTypes[t.Name] {
			return fmt.Errorf("%w: duplicate entity type %q", ErrInvalidSchema, t.Name)
		}
		seenTypes[t.Name] = true
	}
	for i := range s.Types {
		if err := s.validateType(&s.Types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateType(t *EntityType) error {
	seen := make(map[string]bool, len(t.Properties))
	for i := range t.Properties {
		p := &t.Properties[i]
		if p.Name == "" {
			return fmt.Errorf("%w: %s has a property with empty name", ErrInvalidSchema, t.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate property %s.%s", ErrInvalidSchema, t.Name, p.Name)
		}
		seen[p.Name] = true

		if p.Kind != KindScalar && p.Kind != KindCollection {
			return fmt.Errorf("%w: %s.%s has unknown kind %q", ErrInvalidSchema, t.Name, p.Name, p.Kind)
		}
		if !IsValidValueType(p.ValueType) {
			return fmt.Errorf("%w: %s.%s has unknown value type %q", ErrInvalidSchema, t.Name, p.Name, p.ValueType)
		}
		if !p.IsReference() {
			if p.Target != "" {
				return fmt.Errorf("%w: %s.%s declares a target but is not an entity property", ErrInvalidSchema, t.Name, p.Name)
			}
			if p.Inverse != "" {
				return fmt.Errorf("%w: %s.%s declares an inverse but is not an entity property", ErrInvalidInversePair, t.Name, p.Name)
			}
			continue
		}
		target, ok := s.Type(p.Target)
		if !ok {
			return fmt.Errorf("%w: %s.%s targets unknown type %q", ErrInvalidSchema, t.Name, p.Name, p.Target)
		}
		if p.Inverse == "" {
			continue
		}
		partner, ok := target.Property(p.Inverse)
		if !ok {
			return fmt.Errorf("%w: %s.%s names missing inverse %s.%s", ErrInvalidInversePair, t.Name, p.Name, target.Name, p.Inverse)
		}
		if !partner.IsReference() || partner.Target != t.Name || partner.Inverse != p.Name {
			return fmt.Errorf("%w: %s.%s and %s.%s do not point back at each other", ErrInvalidInversePair, t.Name, p.Name, target.Name, partner.Name)
		}
	}
	return nil
}
