// Package harness executes conformance scenarios for reversible programs.
//
// A scenario names a program file, its inputs, and a direction of travel,
// and the harness runs it with an isolated escape stack and an in-memory
// step recorder. Round-trip scenarios additionally assert the central law:
// running the inverse against the forward output restores every input
// bit for bit.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: norm_roundtrip
//	description: "compute-uncompute norm restores its ancilla"
//	program: ../programs/norm.cue
//	direction: roundtrip
//	inputs:
//	  x1: "3"
//	  x2: "4"
//	  res: "0"
//	expect:
//	  res: "5"
//
// direction is forward (default), inverse, roundtrip, or gradient;
// gradient scenarios name a loss param and may set a seed. All scenarios
// execute deterministically, so recorded step streams are stable for
// golden snapshot comparison.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario directions.
const (
	DirectionForward   = "forward"
	DirectionInverse   = "inverse"
	DirectionRoundTrip = "roundtrip"
	DirectionGradient  = "gradient"
)

// Scenario defines one conformance run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Program is the program file path, relative to the scenario file.
	Program string `yaml:"program"`

	// Direction selects forward, inverse, roundtrip, or gradient.
	// Empty means forward.
	Direction string `yaml:"direction,omitempty"`

	// Inputs binds every declared param to a rendered value.
	Inputs map[string]string `yaml:"inputs"`

	// Loss names the param differentiated against (gradient only).
	Loss string `yaml:"loss,omitempty"`

	// Seed scales the loss adjoint (gradient only; 0 means 1).
	Seed float64 `yaml:"seed,omitempty"`

	// Unsafe disables runtime predicate assertions.
	Unsafe bool `yaml:"unsafe,omitempty"`

	// MaxSteps overrides the step quota when positive.
	MaxSteps int64 `yaml:"max_steps,omitempty"`

	// Expect lists final binding values to assert, a subset match over the
	// params. For roundtrip scenarios it applies to the forward leg.
	Expect map[string]string `yaml:"expect,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	switch s.Direction {
	case "", DirectionForward, DirectionInverse, DirectionRoundTrip, DirectionGradient:
	default:
		return fmt.Errorf("unknown direction %q", s.Direction)
	}
	if s.Direction == DirectionGradient && s.Loss == "" {
		return fmt.Errorf("gradient scenarios must name a loss param")
	}
	if s.Direction != DirectionGradient && s.Loss != "" {
		return fmt.Errorf("loss is only meaningful for gradient scenarios")
	}
	return nil
}

// direction returns the normalized direction.
func (s *Scenario) direction() string {
	if s.Direction == "" {
		return DirectionForward
	}
	return s.Direction
}
