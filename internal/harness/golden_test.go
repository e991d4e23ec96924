package harness

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario file and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioPath string) *Result {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	res, err := Run(s, filepath.Dir(scenarioPath))
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, []byte(snapshotText(s, res)))
	return res
}

// snapshotText renders a deterministic scenario snapshot: the step stream
// and the param values in declaration order.
func snapshotText(s *Scenario, r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", s.Name)
	fmt.Fprintf(&b, "direction: %s\n", s.direction())
	b.WriteString("steps:\n")
	b.WriteString(r.Steps)
	if r.Final != nil {
		b.WriteString("final:\n")
		for _, p := range r.Params {
			fmt.Fprintf(&b, "  %s = %s\n", p.Name, r.Final[p.Name])
		}
	}
	if r.Restored != nil {
		b.WriteString("restored:\n")
		for _, p := range r.Params {
			fmt.Fprintf(&b, "  %s = %s\n", p.Name, r.Restored[p.Name])
		}
	}
	if r.Grads != nil {
		fmt.Fprintf(&b, "output: %s\n", r.Output)
		b.WriteString("grads:\n")
		for _, p := range r.Params {
			fmt.Fprintf(&b, "  %s = %g\n", p.Name, r.Grads[p.Name])
		}
	}
	return b.String()
}
