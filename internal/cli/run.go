package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/internal/script"
)

func newRunCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a mutation script against the stored entities",
		Long: "Load the stored entities, execute the YAML script step by step and print\n" +
			"every change notification the script watches. With --save the entities\n" +
			"modified by the script are committed to the store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "commit modified entities to the store")
	return cmd
}

func runScript(cmd *cobra.Command, path string, save bool) (err error) {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, s)
	if err != nil {
		return err
	}
	sc, err := script.Load(path)
	if err != nil {
		return err
	}

	store, err := attachStore(s, logger)
	if err != nil {
		return err
	}
	defer func() {
		if derr := store.Detach(); derr != nil {
			err = errors.Join(err, fmt.Errorf("detach store: %w", derr))
		}
	}()

	ctx, sch, err := openContext(s, store, logger)
	if err != nil {
		return err
	}
	defer ctx.Dispose()

	runner := script.NewRunner(ctx, sch, script.WithLogger(logger))
	events, runErr := runner.Run(sc)
	if err := printEvents(cmd.OutOrStdout(), events); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if !save {
		return nil
	}
	n := len(ctx.Modified())
	if err := ctx.SaveChanges(store); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if !flags.jsonMode {
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d entities\n", n)
	}
	return nil
}

func printEvents(w io.Writer, events []script.Event) error {
	if flags.jsonMode {
		if events == nil {
			events = []script.Event{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	for _, e := range events {
		fmt.Fprintln(w, e.String())
	}
	return nil
}
