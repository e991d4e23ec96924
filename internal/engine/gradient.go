package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/janus-vm/janus/internal/compiler"
	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/store"
)

// Gradient computes the partial derivatives of one program param (the loss)
// with respect to every param, without recording a tape.
//
// The program runs forward once, the loss binding's adjoint shadow is
// seeded, and then the structural inverse runs: each inverted statement
// first restores the forward statement's input values, which are exactly
// the values its local derivative rule needs, and then propagates adjoints
// through that rule. When the inverse walk finishes, the params hold their
// original inputs again and their adjoint shadows hold the gradient.
// Memory stays proportional to the live bindings.
//
// inputs are positional per prog.Params; the returned output is the loss
// param's forward value and grads[i] is ∂loss/∂inputs[i] scaled by seed.
func (e *Engine) Gradient(ctx context.Context, prog *ir.Program, inputs []domain.Value, loss int, seed float64) (domain.Value, []float64, error) {
	if errs := compiler.CheckDifferentiable(prog); len(errs) > 0 {
		return nil, nil, compiler.Join(errs)
	}
	if loss < 0 || loss >= len(prog.Params) {
		return nil, nil, fmt.Errorf("engine: loss index %d out of range for %d params", loss, len(prog.Params))
	}
	if len(inputs) != len(prog.Params) {
		return nil, nil, fmt.Errorf("engine: %d inputs for %d params", len(inputs), len(prog.Params))
	}

	sc := store.NewScope()
	for i, p := range prog.Params {
		if inputs[i].Kind() != p.Kind {
			return nil, nil, runtimeErrf(ErrCodeKindMismatch, 0, p.Name,
				"input %d is %s but param declares %s", i, inputs[i].Kind(), p.Kind)
		}
		if _, err := sc.Allocate(p.Name, inputs[i]); err != nil {
			return nil, nil, asRuntime(err, 0, prog.Name)
		}
	}

	clock := NewClock()
	if err := e.runWith(ctx, prog, sc, false, clock); err != nil {
		return nil, nil, err
	}
	lb, err := sc.Lookup(prog.Params[loss].Name)
	if err != nil {
		return nil, nil, asRuntime(err, 0, prog.Name)
	}
	output := lb.Val

	sc.ClearAdjoints()
	lb.Adj = seed
	if err := e.runWith(ctx, ir.InvertProgram(prog), sc, true, clock); err != nil {
		return nil, nil, err
	}

	grads := make([]float64, len(prog.Params))
	for i, p := range prog.Params {
		b, err := sc.Lookup(p.Name)
		if err != nil {
			return nil, nil, asRuntime(err, 0, prog.Name)
		}
		grads[i] = b.Adj
	}
	sc.ClearAdjoints()
	return output, grads, nil
}

// propagate runs after apply restored the undone statement's input values,
// so every derivative below is evaluated where the forward statement read
// its operands.
func (w *walk) propagate(s ir.Stmt, b *store.Binding, sc *store.Scope, seq int64, path string) error {
	fwd, ok := ir.Invert(s).(ir.Stmt)
	if !ok {
		return fmt.Errorf("engine: statement inverted to %T at %s", ir.Invert(s), path)
	}
	switch fwd.Op {
	case ir.OpAdd, ir.OpSub:
		sign := 1.0
		if fwd.Op == ir.OpSub {
			sign = -1
		}
		a, err := w.refValue(fwd.A, sc, path)
		if err != nil {
			return err
		}
		var second domain.Value
		if ir.Fns[fwd.Fn].Arity == 2 {
			if second, err = w.refValue(fwd.B, sc, path); err != nil {
				return err
			}
		}
		da, db := fnDerivs(fwd.Fn, a, second)
		if err := w.bump(fwd.A, sc, sign*b.Adj*da, seq, path); err != nil {
			return err
		}
		if ir.Fns[fwd.Fn].Arity == 2 {
			if err := w.bump(fwd.B, sc, sign*b.Adj*db, seq, path); err != nil {
				return err
			}
		}
		return nil

	case ir.OpMul:
		ab, err := sc.Lookup(fwd.A.Name)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		tAdj := b.Adj
		b.Adj = tAdj * ab.Val.Float()
		ab.Adj += tAdj * b.Val.Float()
		return nil

	case ir.OpDiv:
		ab, err := sc.Lookup(fwd.A.Name)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		af := ab.Val.Float()
		tAdj := b.Adj
		b.Adj = tAdj / af
		ab.Adj -= tAdj * b.Val.Float() / (af * af)
		return nil

	case ir.OpNeg:
		b.Adj = -b.Adj
		return nil

	case ir.OpSwap:
		// apply exchanged the adjoint shadows with the values already.
		return nil

	// In real-value terms the paired conversions are t += a and t -= a:
	// the image carries the operand's value, so the adjoint flows straight
	// through with the increment's sign.
	case ir.OpToLog, ir.OpFromLog:
		return w.bump(fwd.A, sc, b.Adj, seq, path)
	case ir.OpUnToLog, ir.OpUnFromLog:
		return w.bump(fwd.A, sc, -b.Adj, seq, path)
	}
	return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
		"no adjoint rule for %s", fwd.Op)
}

// bump accumulates into a named operand's adjoint shadow. Constants absorb
// their contribution.
func (w *walk) bump(r ir.Ref, sc *store.Scope, delta float64, seq int64, path string) error {
	if r.IsConst() {
		return nil
	}
	b, err := sc.Lookup(r.Name)
	if err != nil {
		return asRuntime(err, seq, path)
	}
	b.Adj += delta
	return nil
}

// fnDerivs returns the increment function's partial derivatives with
// respect to its first and second operand, evaluated at the given values.
func fnDerivs(fn ir.Fn, a, b domain.Value) (da, db float64) {
	switch fn {
	case ir.FnIdentity:
		return 1, 0
	case ir.FnMul:
		return b.Float(), a.Float()
	case ir.FnDiv:
		bf := b.Float()
		return 1 / bf, -a.Float() / (bf * bf)
	case ir.FnSquare:
		return 2 * a.Float(), 0
	case ir.FnSqrt:
		return 1 / (2 * math.Sqrt(a.Float())), 0
	}
	return 0, 0
}
