package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/internal/logging"
	"github.com/mesh-intelligence/entrack/internal/proxy"
	"github.com/mesh-intelligence/entrack/internal/schema"
	"github.com/mesh-intelligence/entrack/internal/sqlite"
	"github.com/mesh-intelligence/entrack/pkg/types"
)

// newLogger builds the command logger. Logs go to stderr so stdout stays
// machine readable under --json.
func newLogger(cmd *cobra.Command, s *settings) (*slog.Logger, error) {
	return logging.New(logging.Config{Level: s.logLevel, Output: cmd.ErrOrStderr()})
}

// attachStore creates a SQLite store and attaches it. The caller must
// defer Detach.
func attachStore(s *settings, logger *slog.Logger) (*sqlite.Backend, error) {
	store := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := store.Attach(s.store); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

// openContext loads the schema and every stored entity into a new context.
func openContext(s *settings, store types.Loader, logger *slog.Logger) (*proxy.Context, types.Schema, error) {
	sch, err := schema.Load(s.schemaPath)
	if err != nil {
		return nil, types.Schema{}, err
	}
	ctx, err := proxy.NewContext(sch, proxy.WithLogger(logger))
	if err != nil {
		return nil, types.Schema{}, err
	}
	snaps, err := store.Load()
	if err != nil {
		return nil, types.Schema{}, fmt.Errorf("load store: %w", err)
	}
	if err := ctx.Load(snaps); err != nil {
		return nil, types.Schema{}, fmt.Errorf("load entities: %w", err)
	}
	return ctx, sch, nil
}
