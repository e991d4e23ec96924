package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"

	"github.com/janus-vm/janus/internal/compiler"
	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/engine"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/stack"
	"github.com/janus-vm/janus/internal/store"
	"github.com/janus-vm/janus/internal/testutil"
)

// Result captures one scenario execution.
type Result struct {
	// Params are the program's declared params, fixing render order.
	Params []ir.Param

	// Final holds the rendered binding values after the forward or inverse
	// leg (whichever the direction ran last before restoration).
	Final map[string]string

	// Restored holds the values after the inverse leg of a roundtrip.
	Restored map[string]string

	// Output is the rendered loss value (gradient only).
	Output string

	// Grads maps param names to accumulated adjoints (gradient only).
	Grads map[string]float64

	// Steps is the recorded step stream across all executed legs.
	Steps string
}

// Run executes a scenario. Program and input errors, runtime errors, failed
// expectations, and round-trip violations all surface as errors: a scenario
// either conforms or it does not.
func Run(s *Scenario, baseDir string) (*Result, error) {
	prog, err := loadProgram(filepath.Join(baseDir, s.Program))
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.Value, len(prog.Params))
	for i, p := range prog.Params {
		raw, ok := s.Inputs[p.Name]
		if !ok {
			return nil, fmt.Errorf("scenario %s: no input for param %q", s.Name, p.Name)
		}
		v, err := domain.ParseValue(p.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: input %s: %w", s.Name, p.Name, err)
		}
		inputs[i] = v
	}

	rec := testutil.NewRecorder()
	e := engine.New(
		engine.WithSafeChecks(!s.Unsafe),
		engine.WithStack(stack.New()),
		engine.WithObserver(rec),
		engine.WithMaxSteps(s.MaxSteps),
	)
	res := &Result{Params: prog.Params}
	ctx := context.Background()

	switch s.direction() {
	case DirectionForward:
		sc, err := bind(prog, inputs)
		if err != nil {
			return nil, err
		}
		if err := e.Run(ctx, prog, sc); err != nil {
			return nil, err
		}
		res.Final = snapshot(sc, prog)

	case DirectionInverse:
		sc, err := bind(prog, inputs)
		if err != nil {
			return nil, err
		}
		if err := e.RunInverse(ctx, prog, sc); err != nil {
			return nil, err
		}
		res.Final = snapshot(sc, prog)

	case DirectionRoundTrip:
		sc, err := bind(prog, inputs)
		if err != nil {
			return nil, err
		}
		if err := e.Run(ctx, prog, sc); err != nil {
			return nil, err
		}
		res.Final = snapshot(sc, prog)
		if err := e.RunInverse(ctx, prog, sc); err != nil {
			return nil, err
		}
		res.Restored = snapshot(sc, prog)
		for i, p := range prog.Params {
			v, err := sc.Get(p.Name)
			if err != nil {
				return nil, err
			}
			if !v.Equal(inputs[i]) {
				return nil, fmt.Errorf("scenario %s: round trip left %s at %s, input was %s",
					s.Name, p.Name, v, inputs[i])
			}
		}

	case DirectionGradient:
		loss := -1
		for i, p := range prog.Params {
			if p.Name == s.Loss {
				loss = i
			}
		}
		if loss < 0 {
			return nil, fmt.Errorf("scenario %s: loss %q is not a param", s.Name, s.Loss)
		}
		seed := s.Seed
		if seed == 0 {
			seed = 1
		}
		out, grads, err := e.Gradient(ctx, prog, inputs, loss, seed)
		if err != nil {
			return nil, err
		}
		res.Output = out.String()
		res.Grads = make(map[string]float64, len(grads))
		for i, p := range prog.Params {
			res.Grads[p.Name] = grads[i]
		}
	}

	res.Steps = rec.Render()

	for name, want := range s.Expect {
		got, ok := res.Final[name]
		if !ok {
			return nil, fmt.Errorf("scenario %s: expect names unknown binding %q", s.Name, name)
		}
		if got != want {
			return nil, fmt.Errorf("scenario %s: %s = %s, want %s", s.Name, name, got, want)
		}
	}
	return res, nil
}

func loadProgram(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	v := cuecontext.New().CompileString(string(data))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	prog, errs := compiler.DecodeProgram(v)
	if len(errs) > 0 {
		return nil, compiler.Join(errs)
	}
	if errs := compiler.Validate(prog); len(errs) > 0 {
		return nil, compiler.Join(errs)
	}
	return prog, nil
}

func bind(prog *ir.Program, inputs []domain.Value) (*store.Scope, error) {
	sc := store.NewScope()
	for i, p := range prog.Params {
		if _, err := sc.Allocate(p.Name, inputs[i]); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func snapshot(sc *store.Scope, prog *ir.Program) map[string]string {
	out := make(map[string]string, len(prog.Params))
	for _, p := range prog.Params {
		if v, err := sc.Get(p.Name); err == nil {
			out[p.Name] = v.String()
		}
	}
	return out
}
