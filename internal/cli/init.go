package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/internal/schema"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize entrack configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml and example\nschema.yaml, then initialize the data directory.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, s)
	if err != nil {
		return err
	}

	if err := writeIfMissing(s.schemaPath, schema.Example); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	// Attach then Detach creates the data directory and empty JSONL files.
	store, err := attachStore(s, logger)
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return fmt.Errorf("detach store: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "entrack initialized successfully")
	fmt.Fprintln(out, "  config:", s.configDir)
	fmt.Fprintln(out, "  schema:", s.schemaPath)
	fmt.Fprintln(out, "  data:  ", s.store.DataDir)
	return nil
}
