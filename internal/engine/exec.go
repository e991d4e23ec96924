package engine

import (
	"context"
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/store"
)

// walk is the per-execution state: one clock, one adjoint flag. The Engine
// is reusable; walks are not.
type walk struct {
	eng     *Engine
	clock   *Clock
	adjoint bool
}

func (w *walk) block(ctx context.Context, b ir.Block, sc *store.Scope, path string) error {
	for i, n := range b.Body {
		if err := w.node(ctx, n, sc, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) node(ctx context.Context, n ir.Node, sc *store.Scope, path string) error {
	// Cancellation is observed at statement granularity only: there are no
	// suspension points inside a statement.
	if err := ctx.Err(); err != nil {
		return err
	}
	switch t := n.(type) {
	case ir.Stmt:
		return w.stmt(t, sc, path)
	case ir.Block:
		return w.block(ctx, t, sc, path)
	case ir.For:
		return w.forLoop(ctx, t, sc, path)
	case ir.If:
		return w.ifNode(ctx, t, sc, path)
	case ir.While:
		return w.whileNode(ctx, t, sc, path)
	case ir.Routine:
		return w.routine(ctx, t, sc, path)
	case ir.Call:
		return w.call(ctx, t, sc, path)
	}
	return fmt.Errorf("engine: unknown node %T at %s", n, path)
}

// tick stamps one step and enforces the quota.
func (w *walk) tick(path string) (int64, error) {
	seq := w.clock.Next()
	if seq > w.eng.maxSteps {
		return seq, &RuntimeError{
			Code:    ErrCodeStepQuota,
			Message: fmt.Sprintf("execution exceeded max steps (%d)", w.eng.maxSteps),
			Step:    seq,
			Details: pathDetails(path),
		}
	}
	return seq, nil
}

// forLoop walks the inclusive index range start..stop by step. The index is
// loop-control metadata, not reversible state: it lives in a child scope
// the body may read but never write, and the scope is dropped without the
// zero-deallocation obligation.
func (w *walk) forLoop(ctx context.Context, f ir.For, sc *store.Scope, path string) error {
	start, err := w.refValue(f.Start, sc, path)
	if err != nil {
		return err
	}
	stop, err := w.refValue(f.Stop, sc, path)
	if err != nil {
		return err
	}
	si, ok := start.(domain.Int)
	if !ok {
		return runtimeErrf(ErrCodeKindMismatch, w.clock.Current(), f.Var,
			"loop bound %s is %s, want int", f.Start, start.Kind())
	}
	ti, ok := stop.(domain.Int)
	if !ok {
		return runtimeErrf(ErrCodeKindMismatch, w.clock.Current(), f.Var,
			"loop bound %s is %s, want int", f.Stop, stop.Kind())
	}

	diff, err := domain.SubInt(ti, si)
	if err != nil {
		return asRuntime(err, w.clock.Current(), path)
	}
	if diff != 0 && (diff > 0) != (f.Step > 0) {
		return nil // empty range, and its inversion is empty too
	}
	// The inverse traversal starts at stop and must land exactly on start,
	// so the range has to be reachable by the step.
	if int64(diff)%f.Step != 0 {
		return runtimeErrf(ErrCodePredicateInconsistent, w.clock.Current(), f.Var,
			"loop range %s..%s is not reachable by step %d", f.Start, f.Stop, f.Step)
	}

	child := sc.Child()
	b, err := child.Allocate(f.Var, si)
	if err != nil {
		return asRuntime(err, w.clock.Current(), path)
	}
	for i := si; ; {
		b.Val = i
		if err := w.block(ctx, f.Body, child, path+".body"); err != nil {
			return err
		}
		if i == ti {
			return nil
		}
		next, err := domain.AddInt(i, domain.Int(f.Step))
		if err != nil {
			return asRuntime(err, w.clock.Current(), path)
		}
		i = next
	}
}

// ifNode picks the branch from the precondition and, in safe mode, asserts
// the postcondition agrees: Post must hold afterwards iff Then ran. The
// same code executes inverted conditionals, whose predicates arrive
// pre-swapped.
func (w *walk) ifNode(ctx context.Context, t ir.If, sc *store.Scope, path string) error {
	pre, err := w.pred(t.Pre, sc, path)
	if err != nil {
		return err
	}
	branch, bpath := t.Else, path+".else"
	if pre {
		branch, bpath = t.Then, path+".then"
	}
	if err := w.block(ctx, branch, sc, bpath); err != nil {
		return err
	}
	if w.eng.safeChecks {
		post, err := w.pred(t.Post, sc, path)
		if err != nil {
			return err
		}
		if post != pre {
			return runtimeErrf(ErrCodePredicateInconsistent, w.clock.Current(), "",
				"conditional at %s entered with (%s)=%v but exits with (%s)=%v",
				path, t.Pre, pre, t.Post, post)
		}
	}
	return nil
}

// whileNode runs the body until the postcondition holds. The precondition
// must hold on entry and never again at the top of a later iteration;
// those two assertions are exactly what lets the inverse loop, which
// arrives with the predicates swapped, retrace the iteration count.
// The body always runs at least once.
func (w *walk) whileNode(ctx context.Context, t ir.While, sc *store.Scope, path string) error {
	if w.eng.safeChecks {
		pre, err := w.pred(t.Pre, sc, path)
		if err != nil {
			return err
		}
		if !pre {
			return runtimeErrf(ErrCodePredicateInconsistent, w.clock.Current(), "",
				"loop at %s entered with (%s) false", path, t.Pre)
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Each iteration costs a step so an empty body cannot spin forever.
		if _, err := w.tick(path); err != nil {
			return err
		}
		if err := w.block(ctx, t.Body, sc, path+".body"); err != nil {
			return err
		}
		post, err := w.pred(t.Post, sc, path)
		if err != nil {
			return err
		}
		if post {
			return nil
		}
		if w.eng.safeChecks {
			pre, err := w.pred(t.Pre, sc, path)
			if err != nil {
				return err
			}
			if pre {
				return runtimeErrf(ErrCodePredicateInconsistent, w.clock.Current(), "",
					"loop at %s: entry predicate (%s) recurs mid-loop", path, t.Pre)
			}
		}
	}
}

// routine is the compute-uncompute composer: ancillas come to life at their
// domain zero, the compute leg fills them, the use leg consumes them, and
// the inverted compute leg must return every ancilla to zero so it can be
// deallocated.
func (w *walk) routine(ctx context.Context, t ir.Routine, sc *store.Scope, path string) error {
	child := sc.Child()
	for _, a := range t.Ancillas {
		if _, err := child.Allocate(a.Name, domain.ZeroOf(a.Kind)); err != nil {
			return asRuntime(err, w.clock.Current(), path)
		}
	}
	if err := w.block(ctx, t.Compute, child, path+".compute"); err != nil {
		return err
	}
	if err := w.block(ctx, t.Use, child, path+".use"); err != nil {
		return err
	}
	if err := w.block(ctx, ir.InvertBlock(t.Compute), child, path+".uncompute"); err != nil {
		return err
	}
	for _, a := range t.Ancillas {
		b, err := child.Lookup(a.Name)
		if err != nil {
			return asRuntime(err, w.clock.Current(), path)
		}
		if !b.Val.IsZero() {
			return runtimeErrf(ErrCodeRoutineNotClean, w.clock.Current(), a.Name,
				"ancilla holds %s after uncompute; the use leg must not disturb what compute reads", b.Val)
		}
	}
	return asRuntime(child.Close(), w.clock.Current(), path)
}

// call binds the callee's params to the caller's bindings by position.
// The slots are aliased, not copied: the callee mutates the caller's
// state, because outputs are the mutated inputs themselves.
func (w *walk) call(ctx context.Context, t ir.Call, sc *store.Scope, path string) error {
	inner := store.NewScope()
	for i, arg := range t.Args {
		b, err := sc.Lookup(arg)
		if err != nil {
			return asRuntime(err, w.clock.Current(), path)
		}
		p := t.Callee.Params[i]
		if b.Val.Kind() != p.Kind {
			return runtimeErrf(ErrCodeKindMismatch, w.clock.Current(), arg,
				"argument %s is %s but %s declares %s %s", arg, b.Val.Kind(), t.Callee.Name, p.Kind, p.Name)
		}
		if err := inner.Bind(p.Name, b); err != nil {
			return asRuntime(err, w.clock.Current(), path)
		}
	}
	return w.block(ctx, t.Callee.Body, inner, path+"."+t.Callee.Name)
}

func (w *walk) refValue(r ir.Ref, sc *store.Scope, path string) (domain.Value, error) {
	if r.IsConst() {
		return r.Const, nil
	}
	v, err := sc.Get(r.Name)
	if err != nil {
		return nil, asRuntime(err, w.clock.Current(), path)
	}
	return v, nil
}

func (w *walk) pred(p ir.Pred, sc *store.Scope, path string) (bool, error) {
	a, err := w.refValue(p.A, sc, path)
	if err != nil {
		return false, err
	}
	b, err := w.refValue(p.B, sc, path)
	if err != nil {
		return false, err
	}
	switch p.Cmp {
	case ir.CmpEQ:
		return a.Equal(b), nil
	case ir.CmpNE:
		return !a.Equal(b), nil
	}
	c, err := compare(a, b)
	if err != nil {
		return false, asRuntime(err, w.clock.Current(), path)
	}
	switch p.Cmp {
	case ir.CmpLT:
		return c < 0, nil
	case ir.CmpLE:
		return c <= 0, nil
	case ir.CmpGT:
		return c > 0, nil
	case ir.CmpGE:
		return c >= 0, nil
	}
	return false, fmt.Errorf("engine: unknown comparator %q at %s", p.Cmp, path)
}

// compare orders two values of the same ordered kind. Logarithmic values
// have no exact ordering and are rejected at build time; this is the
// runtime backstop.
func compare(a, b domain.Value) (int, error) {
	switch av := a.(type) {
	case domain.Int:
		if bv, ok := b.(domain.Int); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	case domain.Fixed:
		if bv, ok := b.(domain.Fixed); ok {
			return cmpInt64(int64(av), int64(bv)), nil
		}
	default:
		return 0, &domain.ArithError{
			Code:    domain.CodeKindMismatch,
			Message: "ordering is undefined over logarithmic values",
		}
	}
	return 0, &domain.ArithError{
		Code:    domain.CodeKindMismatch,
		Message: fmt.Sprintf("cannot order %s against %s", a.Kind(), b.Kind()),
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
