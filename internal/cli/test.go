package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/janus-vm/janus/internal/harness"
)

// ScenarioResult is one scenario's outcome in a test run.
type ScenarioResult struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Direction string `json:"direction,omitempty"`
	Status    string `json:"status"` // "pass" or "fail"
	Error     string `json:"error,omitempty"`
}

// TestReport is the test command's output payload.
type TestReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario>...",
		Short: "Run conformance scenarios",
		Long: `Run scenario YAML files against their programs.

Each scenario binds inputs, runs its direction (forward, inverse,
roundtrip, or gradient), and checks expectations. Roundtrip scenarios
additionally assert that the inverse leg restores every input exactly.

Example:
  janus test scenarios/norm_roundtrip.yaml
  janus test scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runScenarios(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	report := &TestReport{}

	for _, path := range paths {
		sr := ScenarioResult{File: path, Name: filepath.Base(path)}

		s, err := harness.LoadScenario(path)
		if err != nil {
			sr.Status = "fail"
			sr.Error = err.Error()
			report.Scenarios = append(report.Scenarios, sr)
			report.Failed++
			continue
		}
		sr.Name = s.Name
		sr.Direction = s.Direction

		if _, err := harness.Run(s, filepath.Dir(path)); err != nil {
			sr.Status = "fail"
			sr.Error = err.Error()
			report.Failed++
		} else {
			sr.Status = "pass"
			report.Passed++
		}
		report.Scenarios = append(report.Scenarios, sr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		for _, sr := range report.Scenarios {
			if sr.Status == "pass" {
				fmt.Fprintf(formatter.Writer, "ok   %s\n", sr.Name)
			} else {
				fmt.Fprintf(formatter.Writer, "FAIL %s: %s\n", sr.Name, sr.Error)
			}
		}
		fmt.Fprintf(formatter.Writer, "%d passed, %d failed\n", report.Passed, report.Failed)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}
