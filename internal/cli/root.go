// Package cli implements the entrack command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/entrack/internal/script"
	"github.com/mesh-intelligence/entrack/pkg/entrack"
	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "entrack" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "entrack",
		Short:   "Track entity changes and keep inverse relationships in sync",
		Long:    "entrack loads entities from a local snapshot store, applies scripted\nmutations, reports change notifications and saves the result.",
		Version: entrack.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .entrack-db)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newShowCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "entrack:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to a process exit code. Mistakes in scripts,
// schemas and arguments are user errors; everything else is a system error.
func exitCode(err error) int {
	userErrors := []error{
		script.ErrInvalidScript,
		script.ErrUnknownEntity,
		script.ErrExpectationFailed,
		types.ErrInvalidSchema,
		types.ErrInvalidInversePair,
		types.ErrTypeMismatch,
		types.ErrPropertyNotFound,
		types.ErrNotScalar,
		types.ErrNotCollection,
		types.ErrUnknownEntityType,
		types.ErrEntityNotFound,
		types.ErrBackendUnknown,
		types.ErrSyncStrategyUnknown,
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
