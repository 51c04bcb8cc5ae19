// Package main provides the CLI entrypoint for jarsmith.
//
// jarsmith prepares a decompilable game jar:
//   - Assembles a multi-namespace mapping tree from several sources
//   - Strips, remaps and binary-patches the client and server jars
//   - Merges both variants and applies access transformers
//   - Caches every intermediate artifact and only re-runs stale stages
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarsmith/internal/logging"
)

var (
	verbose bool
	jsonLog bool
	logger  = zap.NewNop()
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jarsmith",
		Short:         "Remap, patch and merge game jars",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if jsonLog {
				logger, err = logging.New(verbose)
			} else {
				logger, err = logging.NewConsole(verbose)
			}

			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	root.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Log JSON lines instead of console output")

	root.AddCommand(setupCmd(), mappingsCmd(), patchCmd())

	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
