package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"runtab/internal/appversion"
)

// newVersionCmd creates the "runtab version" subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the runtab version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "runtab %s\n", appversion.String())
			return nil
		},
	}
}
