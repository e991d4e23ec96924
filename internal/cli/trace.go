package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/janus-vm/janus/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect journaled runs",
		Long: `List journaled runs, or print one run's step stream.

Without a run-id every recorded run is listed newest-last. With one,
the run's statements print in execution order: each line shows the
step's position in the program and the target's value before and after.

Example:
  janus trace --db trace.db
  janus trace --db trace.db 0d9a1f3c-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal database not found", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening journal", err)
	}
	defer j.Close()

	ctx := commandContext(cmd)
	if len(args) == 0 {
		return listRuns(opts, j, cmd)
	}

	runID := args[0]
	steps, err := j.Steps(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading steps", err)
	}
	if len(steps) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no steps recorded for run %s", runID))
	}

	if opts.Format == "json" {
		return formatter.Success(steps)
	}
	for _, s := range steps {
		op := s.Op
		if s.Fn != "" && s.Fn != "id" {
			op += "." + s.Fn
		}
		fmt.Fprintf(formatter.Writer, "%3d  %-32s %s %s: %s -> %s\n",
			s.Seq, s.Path, op, s.Target, s.Before, s.After)
	}
	return nil
}

func listRuns(opts *TraceOptions, j *journal.Journal, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	runs, err := j.Runs(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-10s %-8s ir=%s runtime=%s\n",
			r.ID, r.Direction, r.Program, r.IRVersion, r.RuntimeVersion)
	}
	return nil
}
