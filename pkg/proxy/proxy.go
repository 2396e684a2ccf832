// Package proxy provides the public API for creating entity contexts.
// This package exposes the factory function and its options while keeping
// the change-tracking implementation internal.
package proxy

import (
	"log/slog"

	"github.com/mesh-intelligence/entrack/internal/proxy"
	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Option configures a context created by NewContext.
type Option = proxy.Option

// NewContext validates schema and returns an empty entity context.
// Schema errors wrap types.ErrInvalidSchema or types.ErrInvalidInversePair.
//
// Example:
//
//	ctx, err := proxy.NewContext(schema)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Dispose()
//	person, _ := ctx.Create("Person")
//	knows, _ := person.Collection("Knows")
//	knows.Subscribe(func(n types.Notification) { fmt.Println(n.Kind, n.Item) })
func NewContext(schema types.Schema, opts ...Option) (types.EntityContext, error) {
	ctx, err := proxy.NewContext(schema, opts...)
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return proxy.WithLogger(l)
}

// WithIDGenerator replaces the UUID v7 generator used for new entities.
func WithIDGenerator(fn func() string) Option {
	return proxy.WithIDGenerator(fn)
}
