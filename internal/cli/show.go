package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print stored entity snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, s)
	if err != nil {
		return err
	}
	store, err := attachStore(s, logger)
	if err != nil {
		return err
	}
	defer store.Detach()

	snaps, err := store.Load()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		i := slices.IndexFunc(snaps, func(s types.Snapshot) bool { return s.ID == args[0] })
		if i < 0 {
			return fmt.Errorf("%w: %s", types.ErrEntityNotFound, args[0])
		}
		snaps = snaps[i : i+1]
	}

	out := cmd.OutOrStdout()
	if flags.jsonMode {
		if snaps == nil {
			snaps = []types.Snapshot{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}
	for _, snap := range snaps {
		writeSnapshot(out, snap)
	}
	return nil
}

// writeSnapshot prints one entity with its slots in name order. References
// print as @id.
func writeSnapshot(w io.Writer, s types.Snapshot) {
	fmt.Fprintf(w, "%s (%s)\n", s.ID, s.Type)
	for _, name := range slices.Sorted(maps.Keys(s.Scalars)) {
		fmt.Fprintf(w, "  %s = %s\n", name, formatStored(s.Scalars[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(s.Collections)) {
		items := make([]string, len(s.Collections[name]))
		for i, v := range s.Collections[name] {
			items[i] = formatStored(v)
		}
		fmt.Fprintf(w, "  %s = [%s]\n", name, strings.Join(items, ", "))
	}
}

func formatStored(v any) string {
	switch x := v.(type) {
	case types.Ref:
		return "@" + x.ID
	case string:
		return fmt.Sprintf("%q", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
