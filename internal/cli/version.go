package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/pkg/entrack"
)

const modulePath = "github.com/mesh-intelligence/entrack"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the entrack version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "entrack v%s\nmodule: %s\n", entrack.Version, modulePath)
			return nil
		},
	}
}
