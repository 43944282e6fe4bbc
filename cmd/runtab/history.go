package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"runtab/pkg/controller"
	"runtab/pkg/runlog"
)

// recordResult appends the run outcome to the history database. History is
// best effort: a broken database must not turn a finished run into a
// failure, so errors are only warned about.
func recordResult(errw io.Writer, paths *Paths, res controller.Result) {
	if err := ensureHome(paths); err != nil {
		fmt.Fprintf(errw, "runtab: warning: %v\n", err)
		return
	}

	store, err := runlog.Open(paths.HistoryPath)
	if err != nil {
		fmt.Fprintf(errw, "runtab: warning: open history: %v\n", err)
		return
	}
	defer func() { _ = store.Close() }()

	run := runlog.Run{
		RunID:       res.RunID,
		Command:     commandLine(res.Spec.Command, res.Spec.Args),
		State:       res.State.String(),
		ExitCode:    res.ExitCode,
		RowsLoaded:  res.RowsLoaded,
		RowsDropped: res.RowsDropped,
		Partial:     res.Partial,
		StartedAt:   res.Started,
		EndedAt:     res.Ended,
	}
	if err := store.Record(context.Background(), run); err != nil {
		fmt.Fprintf(errw, "runtab: warning: record run: %v\n", err)
	}
}

// commandLine joins a command and its args for display and storage.
func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
