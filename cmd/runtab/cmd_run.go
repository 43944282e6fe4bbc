package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"runtab/pkg/config"
	"runtab/pkg/controller"
	"runtab/pkg/dash"
	"runtab/pkg/executor"
)

// runConfig holds flags for the run command.
type runConfig struct {
	plain bool
	name  string
}

// newRunCmd creates the "runtab run" subcommand.
func newRunCmd() *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command and load its output rows into a live table",
		Long: "Runs the given command, parses progress lines from its output,\n" +
			"and loads '@row' JSON lines into a filterable table.\n" +
			"With a terminal attached this opens the interactive dashboard;\n" +
			"otherwise (or with --plain) progress is printed line by line.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, cfg, args)
		},
	}

	cmd.Flags().BoolVar(&cfg.plain, "plain", false, "print progress instead of opening the dashboard")
	cmd.Flags().StringVar(&cfg.name, "name", "", "run a command from the manifest by name")

	return cmd
}

func runRun(cmd *cobra.Command, cfg runConfig, args []string) error {
	paths, err := ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	settings, err := config.Load(paths.ConfigPath)
	if err != nil {
		return err
	}

	spec, searchFields, err := resolveSpec(cfg, args, paths, settings)
	if err != nil {
		return err
	}

	resultCh := make(chan controller.Result, 1)
	ctrl := controller.New(controller.Config{
		ChunkSize:       settings.ChunkSize,
		Quantum:         settings.Quantum(),
		SyncThreshold:   settings.SyncThreshold,
		TailLines:       settings.TailLines,
		SearchFields:    searchFields,
		ChannelCapacity: settings.ChannelCapacity,
		GracePeriod:     settings.Grace(),
		OnFinish: func(r controller.Result) {
			resultCh <- r
		},
	})
	defer ctrl.Close()

	if _, err := ctrl.Start(spec); err != nil {
		return fmt.Errorf("start %s: %w", spec.Command, err)
	}

	interactive := !cfg.plain && isatty.IsTerminal(os.Stdout.Fd())
	var res controller.Result
	if interactive {
		dashErr := dash.Run(dash.Options{
			Controller: ctrl,
			Debounce:   settings.Debounce(),
			ConfigPath: paths.ConfigPath,
		})
		if dashErr != nil {
			return fmt.Errorf("dashboard: %w", dashErr)
		}
		// Quitting the dashboard cancels any active run, so a result is
		// always on its way.
		res = <-resultCh
	} else {
		res = plainLoop(cmd, ctrl, resultCh)
	}

	recordResult(cmd.ErrOrStderr(), paths, res)

	return reportResult(cmd.OutOrStdout(), res)
}

// resolveSpec builds the executor spec from either the manifest (--name) or
// the command line args after "--".
func resolveSpec(cfg runConfig, args []string, paths *Paths, settings config.Config) (executor.Spec, []string, error) {
	if cfg.name != "" {
		if len(args) > 0 {
			return executor.Spec{}, nil, fmt.Errorf("--name and an explicit command are mutually exclusive")
		}
		manifest, err := config.LoadManifest(paths.ManifestPath)
		if err != nil {
			return executor.Spec{}, nil, err
		}
		entry, ok := manifest.Find(cfg.name)
		if !ok {
			return executor.Spec{}, nil, fmt.Errorf("no manifest entry named %q in %s", cfg.name, paths.ManifestPath)
		}
		fields := settings.SearchFields
		if len(entry.SearchFields) > 0 {
			fields = entry.SearchFields
		}
		return executor.Spec{Command: entry.Command, Args: entry.Args}, fields, nil
	}

	if len(args) == 0 {
		return executor.Spec{}, nil, fmt.Errorf("no command given: use 'runtab run -- <command> [args...]' or --name")
	}
	return executor.Spec{Command: args[0], Args: args[1:]}, settings.SearchFields, nil
}

// plainLoop drives a non-interactive run: it prints progress events as they
// arrive and cancels the run on SIGINT/SIGTERM.
func plainLoop(cmd *cobra.Command, ctrl *controller.Controller, resultCh <-chan controller.Result) controller.Result {
	w := cmd.OutOrStdout()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var last controller.Summary
	for {
		select {
		case res := <-resultCh:
			return res
		case <-sigCh:
			fmt.Fprintln(w, "runtab: interrupted, cancelling")
			ctrl.Cancel()
		case <-ctrl.Updates():
			snap := ctrl.Snapshot()
			printSummaryDelta(w, last, snap.Summary)
			last = snap.Summary
		}
	}
}

// printSummaryDelta prints progress events that changed since the last
// snapshot.
func printSummaryDelta(w io.Writer, last, cur controller.Summary) {
	if cur.Step != nil && (last.Step == nil || *cur.Step != *last.Step) {
		fmt.Fprintf(w, "[%d/%d] %s\n", cur.Step.Index, cur.Step.Total, cur.Step.Label)
	}
	if cur.Item != nil && (last.Item == nil || *cur.Item != *last.Item) {
		fmt.Fprintf(w, "%d/%d items (%d%%)\n", cur.Item.Index, cur.Item.Total, cur.Item.Percent)
	}
	if cur.Completion != nil && (last.Completion == nil || *cur.Completion != *last.Completion) {
		fmt.Fprintf(w, "✓ %s (%.1fs)\n", cur.Completion.Operation, cur.Completion.Seconds)
	}
	if cur.Status != nil && (last.Status == nil || *cur.Status != *last.Status) {
		fmt.Fprintf(w, "• %s\n", cur.Status.Text)
	}
}

// reportResult prints the run outcome and maps it to the process exit.
func reportResult(w io.Writer, res controller.Result) error {
	elapsed := res.Ended.Sub(res.Started).Round(10 * time.Millisecond)
	switch res.State {
	case executor.Completed:
		fmt.Fprintf(w, "runtab: completed, %d rows loaded (%d dropped) in %s\n", res.RowsLoaded, res.RowsDropped, elapsed)
		return nil
	case executor.Cancelled:
		fmt.Fprintf(w, "runtab: cancelled, %d rows loaded (partial) in %s\n", res.RowsLoaded, elapsed)
		return nil
	default:
		fmt.Fprintf(w, "runtab: failed (exit %d), %d rows loaded (partial) in %s\n", res.ExitCode, res.RowsLoaded, elapsed)
		return fmt.Errorf("%s exited with code %d", res.Spec.Command, res.ExitCode)
	}
}
