package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"runtab/pkg/runlog"
)

// runsConfig holds flags for the runs command.
type runsConfig struct {
	state string
	limit int
}

// newRunsCmd creates the "runtab runs" subcommand.
func newRunsCmd() *cobra.Command {
	var cfg runsConfig

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.state, "state", "", "filter by terminal state (completed, failed, cancelled)")
	cmd.Flags().IntVar(&cfg.limit, "limit", 20, "maximum number of runs to show (0 = all)")

	return cmd
}

func runRuns(cmd *cobra.Command, cfg runsConfig) error {
	paths, err := ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}

	store, err := runlog.Open(paths.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(cmd.Context(), runlog.QueryOpts{State: cfg.state, Limit: cfg.limit})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATE\tEXIT\tROWS\tSTARTED\tDURATION\tCOMMAND")
	for _, r := range runs {
		rows := fmt.Sprintf("%d", r.RowsLoaded)
		if r.Partial {
			rows += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			shortRunID(r.RunID),
			r.State,
			r.ExitCode,
			rows,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.EndedAt.Sub(r.StartedAt).Round(time.Second),
			r.Command,
		)
	}
	return w.Flush()
}

// shortRunID abbreviates a run id for table display.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
