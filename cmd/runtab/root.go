package main

import (
	"fmt"

	"runtab/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root runtab command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "runtab",
		Short:         "Run a command and browse its output as a live table",
		Long:          "runtab wraps a long-running command, parses its progress output,\nand loads its result rows into a filterable live table.",
		Version:       fmt.Sprintf("runtab %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newManifestCmd(),
		newVersionCmd(),
	)

	return cmd
}
