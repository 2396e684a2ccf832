package types

import "errors"

// Schema declaration errors. NewContext returns one of these (wrapped with
// the offending type and property) before any entity can be created.
var (
	ErrInvalidSchema      = errors.New("invalid schema")
	ErrInvalidInversePair = errors.New("invalid inverse pair declaration")
)

// Entity and collection operation errors.
var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrNotScalar         = errors.New("property is not a scalar")
	ErrNotCollection     = errors.New("property is not a collection")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrForeignEntity     = errors.New("entity belongs to another context")
	ErrContextDisposed   = errors.New("context is disposed")
)

// Snapshot loading errors.
var (
	ErrDuplicateEntity = errors.New("entity already exists")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
