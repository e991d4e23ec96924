package engine

import (
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/store"
)

func (w *walk) stmt(s ir.Stmt, sc *store.Scope, path string) error {
	seq, err := w.tick(path)
	if err != nil {
		return err
	}
	b, err := sc.Lookup(s.Target)
	if err != nil {
		return asRuntime(err, seq, path)
	}
	before := b.Val.String()
	if err := w.apply(s, b, sc, seq, path); err != nil {
		return err
	}
	if w.adjoint {
		if err := w.propagate(s, b, sc, seq, path); err != nil {
			return err
		}
	}
	if w.eng.obs != nil {
		w.eng.obs.OnStep(StepEvent{
			Seq:    seq,
			Path:   path,
			Op:     s.Op,
			Fn:     s.Fn,
			Target: s.Target,
			Before: before,
			After:  b.Val.String(),
		})
	}
	return nil
}

func (w *walk) apply(s ir.Stmt, b *store.Binding, sc *store.Scope, seq int64, path string) error {
	switch s.Op {
	case ir.OpAdd, ir.OpSub:
		a, err := w.refValue(s.A, sc, path)
		if err != nil {
			return err
		}
		var second domain.Value
		if ir.Fns[s.Fn].Arity == 2 {
			if second, err = w.refValue(s.B, sc, path); err != nil {
				return err
			}
		}
		inc, err := increment(s.Fn, a, second)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		nv, err := addSub(s.Op, b.Val, inc)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		b.Val = nv
		return nil

	case ir.OpMul, ir.OpDiv:
		a, err := w.refValue(s.A, sc, path)
		if err != nil {
			return err
		}
		lt, ok1 := b.Val.(domain.ULog)
		la, ok2 := a.(domain.ULog)
		if !ok1 || !ok2 {
			return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
				"%s is admissible over log values only", s.Op)
		}
		var nv domain.ULog
		if s.Op == ir.OpMul {
			nv, err = domain.MulLog(lt, la)
		} else {
			nv, err = domain.DivLog(lt, la)
		}
		if err != nil {
			return asRuntime(err, seq, path)
		}
		b.Val = nv
		return nil

	case ir.OpNeg:
		switch tv := b.Val.(type) {
		case domain.Int:
			nv, err := domain.NegInt(tv)
			if err != nil {
				return asRuntime(err, seq, path)
			}
			b.Val = nv
		case domain.Fixed:
			nv, err := domain.NegFixed(tv)
			if err != nil {
				return asRuntime(err, seq, path)
			}
			b.Val = nv
		case domain.ULog:
			b.Val = domain.NegLog(tv)
		}
		return nil

	case ir.OpSwap:
		ob, err := sc.Lookup(s.A.Name)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		if ob.Val.Kind() != b.Val.Kind() {
			return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
				"swap across kinds %s and %s", b.Val.Kind(), ob.Val.Kind())
		}
		// Adjoint shadows travel with the values, so an inverted swap in
		// a gradient walk needs no separate rule.
		b.Val, ob.Val = ob.Val, b.Val
		b.Adj, ob.Adj = ob.Adj, b.Adj
		return nil

	case ir.OpPush:
		w.eng.stk.Push(b.Val)
		b.Val = domain.ZeroOf(b.Val.Kind())
		return nil

	case ir.OpPop:
		if !b.Val.IsZero() {
			return runtimeErrf(ErrCodeNonZeroPopTarget, seq, s.Target,
				"pop into a binding holding %s; the target must be at its domain zero", b.Val)
		}
		v, ok := w.eng.stk.Pop()
		if !ok {
			return runtimeErrf(ErrCodeEmptyStack, seq, s.Target, "pop from an empty escape stack")
		}
		if v.Kind() != b.Val.Kind() {
			return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
				"stack holds %s but the target is %s", v.Kind(), b.Val.Kind())
		}
		b.Val = v
		return nil

	case ir.OpToLog, ir.OpUnToLog:
		a, err := w.refValue(s.A, sc, path)
		if err != nil {
			return err
		}
		af, ok := a.(domain.Fixed)
		if !ok {
			return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
				"%s operand %s is %s, want fixed", s.Op, s.A, a.Kind())
		}
		enc, err := domain.Encode(af)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		if s.Op == ir.OpToLog {
			if !b.Val.IsZero() {
				return runtimeErrf(ErrCodeNonZeroDeallocation, seq, s.Target,
					"conversion fills a target holding %s; it must be at its domain zero", b.Val)
			}
			b.Val = enc
			return nil
		}
		if !b.Val.Equal(enc) {
			return runtimeErrf(ErrCodeNonZeroDeallocation, seq, s.Target,
				"conversion clears %s but the operand encodes to %s", b.Val, enc)
		}
		b.Val = domain.ZeroOf(domain.KindLog)
		return nil

	case ir.OpFromLog, ir.OpUnFromLog:
		a, err := w.refValue(s.A, sc, path)
		if err != nil {
			return err
		}
		al, ok := a.(domain.ULog)
		if !ok {
			return runtimeErrf(ErrCodeKindMismatch, seq, s.Target,
				"%s operand %s is %s, want log", s.Op, s.A, a.Kind())
		}
		dec, err := domain.Decode(al)
		if err != nil {
			return asRuntime(err, seq, path)
		}
		if s.Op == ir.OpFromLog {
			if !b.Val.IsZero() {
				return runtimeErrf(ErrCodeNonZeroDeallocation, seq, s.Target,
					"conversion fills a target holding %s; it must be at its domain zero", b.Val)
			}
			b.Val = dec
			return nil
		}
		if !b.Val.Equal(dec) {
			return runtimeErrf(ErrCodeNonZeroDeallocation, seq, s.Target,
				"conversion clears %s but the operand decodes to %s", b.Val, dec)
		}
		b.Val = domain.Fixed(0)
		return nil
	}
	return fmt.Errorf("engine: unknown op %q at %s", s.Op, path)
}

// increment evaluates the pure increment function feeding += and -=. The
// identical value is produced on both directions of travel, which is what
// makes rounded products and roots exactly invertible as increments.
func increment(fn ir.Fn, a, b domain.Value) (domain.Value, error) {
	switch av := a.(type) {
	case domain.Int:
		switch fn {
		case ir.FnIdentity:
			return av, nil
		case ir.FnMul:
			bv, ok := b.(domain.Int)
			if !ok {
				return nil, incKindErr(fn, b)
			}
			return domain.MulInt(av, bv)
		case ir.FnSquare:
			return domain.MulInt(av, av)
		}
	case domain.Fixed:
		switch fn {
		case ir.FnIdentity:
			return av, nil
		case ir.FnMul:
			bv, ok := b.(domain.Fixed)
			if !ok {
				return nil, incKindErr(fn, b)
			}
			return domain.MulFixed(av, bv)
		case ir.FnDiv:
			bv, ok := b.(domain.Fixed)
			if !ok {
				return nil, incKindErr(fn, b)
			}
			return domain.DivFixed(av, bv)
		case ir.FnSquare:
			return domain.SquareFixed(av)
		case ir.FnSqrt:
			return domain.SqrtFixed(av)
		}
	}
	return nil, &domain.ArithError{
		Code:    domain.CodeKindMismatch,
		Message: fmt.Sprintf("increment %s is undefined over %s", fn, a.Kind()),
	}
}

func incKindErr(fn ir.Fn, b domain.Value) error {
	got := "nothing"
	if b != nil {
		got = string(b.Kind())
	}
	return &domain.ArithError{
		Code:    domain.CodeKindMismatch,
		Message: fmt.Sprintf("increment %s requires operands of one kind, got %s", fn, got),
	}
}

func addSub(op ir.Op, target, inc domain.Value) (domain.Value, error) {
	switch tv := target.(type) {
	case domain.Int:
		iv, ok := inc.(domain.Int)
		if !ok {
			return nil, incKindErr(ir.FnIdentity, inc)
		}
		if op == ir.OpAdd {
			return domain.AddInt(tv, iv)
		}
		return domain.SubInt(tv, iv)
	case domain.Fixed:
		fv, ok := inc.(domain.Fixed)
		if !ok {
			return nil, incKindErr(ir.FnIdentity, inc)
		}
		if op == ir.OpAdd {
			return domain.AddFixed(tv, fv)
		}
		return domain.SubFixed(tv, fv)
	}
	return nil, &domain.ArithError{
		Code:    domain.CodeKindMismatch,
		Message: fmt.Sprintf("%s is undefined over %s targets", op, target.Kind()),
	}
}
