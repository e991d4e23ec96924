package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janus-vm/janus/internal/compiler"
)

// ValidationReport holds the validate command's output payload.
type ValidationReport struct {
	Valid  bool                  `json:"valid"`
	Errors []compiler.BuildError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a program without executing it",
		Long: `Decode and validate a reversible program.

Every build error is reported: unknown ops, undeclared or aliased
bindings, kind mismatches, and operations registered over domains they
cannot be inverted on. Nothing is executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, loadErrs := LoadProgram(path, LoadModeCollectAll)
	if result == nil && len(loadErrs) > 0 {
		return reportLoadError(formatter, loadErrs[0])
	}
	formatter.VerboseLog("Loaded %d CUE file(s)", result.FileCount)

	var buildErrs []compiler.BuildError
	for _, err := range loadErrs {
		var be compiler.BuildError
		if errors.As(err, &be) {
			buildErrs = append(buildErrs, be)
			continue
		}
		return reportLoadError(formatter, err)
	}

	if len(buildErrs) > 0 {
		report := ValidationReport{Valid: false, Errors: buildErrs}
		if opts.Format == "json" {
			_ = formatter.Success(report)
		} else {
			for _, be := range buildErrs {
				fmt.Fprintln(formatter.Writer, be.Error())
			}
			fmt.Fprintf(formatter.Writer, "invalid: %d error(s)\n", len(buildErrs))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(buildErrs)))
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationReport{Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "ok: program %q is reversible\n", result.Program.Name)
	return nil
}
