package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janus-vm/janus/internal/compiler"
	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/engine"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/journal"
	"github.com/janus-vm/janus/internal/stack"
	"github.com/janus-vm/janus/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Inputs   []string
	Inverse  bool
	Unsafe   bool
	MaxSteps int64
	Database string
}

// RunReport is the run command's output payload.
type RunReport struct {
	Program   string            `json:"program"`
	Direction string            `json:"direction"`
	Bindings  map[string]string `json:"bindings"`

	params []ir.Param
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a program forward or backward",
		Long: `Execute a reversible program against the given inputs.

The program is a CUE file or a directory of CUE files. Params not named
by --input start at their domain zero. With --inverse the exact inverse
program runs instead: applied to a forward run's output it restores the
input state bit for bit.

Example:
  janus run norm.cue --input x1=3 --input x2=4
  janus run norm.cue --input res=5 --inverse
  janus run --db trace.db norm.cue --input x1=3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "input binding as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Inverse, "inverse", false, "run the inverse program")
	cmd.Flags().BoolVar(&opts.Unsafe, "unsafe", false, "skip runtime predicate and cleanliness assertions")
	cmd.Flags().Int64Var(&opts.MaxSteps, "max-steps", 0, "step quota (0 uses the default)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal executed steps to this SQLite database")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd)

	result, loadErrs := LoadProgram(path, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return reportLoadError(formatter, loadErrs[0])
	}
	prog := result.Program
	slog.Debug("program loaded", "name", prog.Name, "files", result.FileCount)

	sc, err := bindInputs(prog, opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "binding inputs", err)
	}

	direction := journal.DirectionForward
	if opts.Inverse {
		direction = journal.DirectionInverse
	}

	ctx := commandContext(cmd)
	eng, cleanup, err := buildEngine(ctx, opts.RootOptions, engineFlags{
		unsafe:   opts.Unsafe,
		maxSteps: opts.MaxSteps,
		database: opts.Database,
	}, prog.Name, direction)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.Inverse {
		err = eng.RunInverse(ctx, prog, sc)
	} else {
		err = eng.Run(ctx, prog, sc)
	}
	if err != nil {
		return reportRuntimeError(formatter, err)
	}

	report := &RunReport{
		Program:   prog.Name,
		Direction: direction,
		Bindings:  make(map[string]string, len(prog.Params)),
		params:    prog.Params,
	}
	for _, p := range prog.Params {
		v, err := sc.Get(p.Name)
		if err != nil {
			return WrapExitError(ExitFailure, "reading result", err)
		}
		report.Bindings[p.Name] = v.String()
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "program: %s\ndirection: %s\n", report.Program, report.Direction)
	for _, p := range report.params {
		fmt.Fprintf(formatter.Writer, "%s = %s\n", p.Name, report.Bindings[p.Name])
	}
	return nil
}

// engineFlags are the per-command execution knobs; config file values fill
// in whatever the flags leave unset.
type engineFlags struct {
	unsafe   bool
	maxSteps int64
	database string
}

// buildEngine assembles an engine from flags and config, opening a journal
// run when a database path is set. The returned cleanup closes the journal
// and must run after the execution finishes.
func buildEngine(ctx context.Context, root *RootOptions, f engineFlags, program, direction string) (*engine.Engine, func(), error) {
	unsafe := f.unsafe || root.Config.Unsafe
	maxSteps := f.maxSteps
	if maxSteps == 0 {
		maxSteps = root.Config.MaxSteps
	}
	database := f.database
	if database == "" {
		database = root.Config.Journal
	}

	eopts := []engine.Option{
		engine.WithSafeChecks(!unsafe),
		engine.WithStack(stack.New()),
		engine.WithMaxSteps(maxSteps),
	}

	cleanup := func() {}
	if database != "" {
		j, err := journal.Open(database)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "opening journal", err)
		}
		run, err := j.BeginRun(ctx, program, direction)
		if err != nil {
			j.Close()
			return nil, nil, WrapExitError(ExitCommandError, "starting journal run", err)
		}
		slog.Debug("journaling run", "db", database, "run_id", run.ID)
		eopts = append(eopts, engine.WithObserver(run))
		cleanup = func() {
			if err := run.Err(); err != nil {
				slog.Error("journal write failed", "error", err)
			}
			if err := j.Close(); err != nil {
				slog.Error("closing journal", "error", err)
			}
		}
	}

	return engine.New(eopts...), cleanup, nil
}

// bindInputs allocates a scope holding every declared param. Params without
// an explicit name=value input start at their domain zero.
func bindInputs(prog *ir.Program, inputs []string) (*store.Scope, error) {
	given, err := parseInputs(inputs)
	if err != nil {
		return nil, err
	}
	sc := store.NewScope()
	for _, p := range prog.Params {
		v := domain.ZeroOf(p.Kind)
		if raw, ok := given[p.Name]; ok {
			v, err = domain.ParseValue(p.Kind, raw)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", p.Name, err)
			}
			delete(given, p.Name)
		}
		if _, err := sc.Allocate(p.Name, v); err != nil {
			return nil, err
		}
	}
	for name := range given {
		return nil, fmt.Errorf("input %q does not match any program param", name)
	}
	return sc, nil
}

func parseInputs(inputs []string) (map[string]string, error) {
	out := make(map[string]string, len(inputs))
	for _, in := range inputs {
		name, value, ok := strings.Cut(in, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed input %q: want name=value", in)
		}
		out[name] = value
	}
	return out, nil
}

func newFormatter(root *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    root.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   root.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// reportLoadError prints a loading failure and maps it to a command error.
func reportLoadError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = f.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, "loading program", err)
	}
	var buildErr compiler.BuildError
	if errors.As(err, &buildErr) {
		_ = f.Error(string(buildErr.Code), buildErr.Path+": "+buildErr.Message, nil)
		return WrapExitError(ExitFailure, "program rejected", err)
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "loading program", err)
}

// reportRuntimeError prints an execution failure with its runtime code.
func reportRuntimeError(f *OutputFormatter, err error) error {
	var rte *engine.RuntimeError
	if errors.As(err, &rte) {
		_ = f.Error(string(rte.Code), rte.Error(), rte.Details)
		return WrapExitError(ExitFailure, "execution failed", err)
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "execution failed", err)
}
