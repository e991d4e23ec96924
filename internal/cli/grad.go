package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/journal"
)

// GradOptions holds flags for the grad command.
type GradOptions struct {
	*RootOptions
	Inputs   []string
	Loss     string
	Seed     float64
	MaxSteps int64
	Database string
}

// GradReport is the grad command's output payload.
type GradReport struct {
	Program string             `json:"program"`
	Loss    string             `json:"loss"`
	Output  string             `json:"output"`
	Grads   map[string]float64 `json:"grads"`
}

// NewGradCommand creates the grad command.
func NewGradCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GradOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grad <program>",
		Short: "Differentiate a program via its inverse",
		Long: `Run a program forward, then propagate adjoints through its inverse.

The backward pass recomputes forward values by un-executing each
statement, so no tape is recorded: memory stays constant in the number
of steps. The gradient of the loss param is reported with respect to
every program param.

Example:
  janus grad norm.cue --input x1=3 --input x2=4 --loss res`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "input binding as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Loss, "loss", "", "param the gradient is taken of (required)")
	cmd.Flags().Float64Var(&opts.Seed, "seed", 1, "loss adjoint seed")
	cmd.Flags().Int64Var(&opts.MaxSteps, "max-steps", 0, "step quota (0 uses the default)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal executed steps to this SQLite database")
	_ = cmd.MarkFlagRequired("loss")

	return cmd
}

func runGrad(opts *GradOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd)

	result, loadErrs := LoadProgram(path, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return reportLoadError(formatter, loadErrs[0])
	}
	prog := result.Program

	loss := -1
	inputs := make([]domain.Value, len(prog.Params))
	given, err := parseInputs(opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "binding inputs", err)
	}
	for i, p := range prog.Params {
		if p.Name == opts.Loss {
			loss = i
		}
		inputs[i] = domain.ZeroOf(p.Kind)
		if raw, ok := given[p.Name]; ok {
			inputs[i], err = domain.ParseValue(p.Kind, raw)
			if err != nil {
				return WrapExitError(ExitCommandError, "binding inputs", fmt.Errorf("input %s: %w", p.Name, err))
			}
			delete(given, p.Name)
		}
	}
	for name := range given {
		return WrapExitError(ExitCommandError, "binding inputs",
			fmt.Errorf("input %q does not match any program param", name))
	}
	if loss < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("loss %q is not a program param", opts.Loss))
	}

	ctx := commandContext(cmd)
	eng, cleanup, err := buildEngine(ctx, opts.RootOptions, engineFlags{
		maxSteps: opts.MaxSteps,
		database: opts.Database,
	}, prog.Name, journal.DirectionGradient)
	if err != nil {
		return err
	}
	defer cleanup()

	out, grads, err := eng.Gradient(ctx, prog, inputs, loss, opts.Seed)
	if err != nil {
		return reportRuntimeError(formatter, err)
	}
	slog.Debug("gradient computed", "program", prog.Name, "loss", opts.Loss)

	report := &GradReport{
		Program: prog.Name,
		Loss:    opts.Loss,
		Output:  out.String(),
		Grads:   make(map[string]float64, len(grads)),
	}
	for i, p := range prog.Params {
		report.Grads[p.Name] = grads[i]
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "program: %s\nloss: %s = %s\n", report.Program, report.Loss, report.Output)
	for _, p := range prog.Params {
		fmt.Fprintf(formatter.Writer, "d%s/d%s = %g\n", report.Loss, p.Name, report.Grads[p.Name])
	}
	return nil
}
