package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"runtab/pkg/config"
)

// newManifestCmd creates the "runtab manifest" subcommand.
func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "List the named commands in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			manifest, err := config.LoadManifest(paths.ManifestPath)
			if err != nil {
				return err
			}

			if len(manifest.Commands) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no manifest entries in %s\n", paths.ManifestPath)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOMMAND\tSEARCH FIELDS")
			for _, e := range manifest.Commands {
				fields := "-"
				if len(e.SearchFields) > 0 {
					fields = strings.Join(e.SearchFields, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, commandLine(e.Command, e.Args), fields)
			}
			return w.Flush()
		},
	}
}
