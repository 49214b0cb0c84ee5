package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/scanlibs/internal/config"
)

// NewRootCmd creates the root command for scanlibs.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanlibs",
		Short: "Scan ELF files for library dependencies and plot them",
		Long: `scanlibs scans ELF binaries and shared libraries for the libraries they
depend on. Linked libraries come from DT_NEEDED entries of the dynamic
section; runtime candidates are lib*.so names found in .rodata, which
usually end up in dlopen calls.

Results are written in a plain text deps file format that can be read back
with --deps-file, or drawn as a dependency graph with --plot.

Environment variables from a .env file in the current directory are loaded
before the configuration file is read.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadEnv()
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
