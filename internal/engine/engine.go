package engine

import (
	"context"

	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/stack"
	"github.com/janus-vm/janus/internal/store"
)

// DefaultMaxSteps bounds executions that carry no explicit quota. The while
// construct makes non-termination expressible, so every run has some bound.
const DefaultMaxSteps = 1 << 20

// Engine executes reversible programs against a scope. An Engine is
// reusable and carries no per-execution state; each Run builds its own
// walk with a fresh logical clock.
type Engine struct {
	safeChecks bool
	stk        stack.Stack
	obs        Observer
	maxSteps   int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSafeChecks toggles runtime assertion of declared predicate pairs and
// routine cleanliness. Enabled by default; disabling trades the
// inconsistency diagnostics for speed, not correctness of well-formed
// programs.
func WithSafeChecks(enabled bool) Option {
	return func(e *Engine) { e.safeChecks = enabled }
}

// WithStack injects the escape stack. Defaults to the process-wide stack;
// concurrent executions must inject isolated stacks.
func WithStack(s stack.Stack) Option {
	return func(e *Engine) { e.stk = s }
}

// WithObserver attaches a step observer (journal, test recorder).
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// WithMaxSteps overrides the step quota. Values <= 0 keep the default.
func WithMaxSteps(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// New creates an Engine. Safe checks are on and the escape stack is the
// process-wide one unless options say otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{
		safeChecks: true,
		stk:        stack.Default(),
		maxSteps:   DefaultMaxSteps,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes prog forward against sc. Every declared param must already
// be live in sc with its declared kind; outputs are the mutated params.
func (e *Engine) Run(ctx context.Context, prog *ir.Program, sc *store.Scope) error {
	return e.run(ctx, prog, sc, false)
}

// RunInverse executes the exact inverse of prog: applied to prog's output
// state it restores the input state bit for bit.
func (e *Engine) RunInverse(ctx context.Context, prog *ir.Program, sc *store.Scope) error {
	return e.run(ctx, ir.InvertProgram(prog), sc, false)
}

func (e *Engine) run(ctx context.Context, prog *ir.Program, sc *store.Scope, adjoint bool) error {
	return e.runWith(ctx, prog, sc, adjoint, NewClock())
}

// runWith executes with a caller-owned clock so multi-leg executions (the
// gradient's forward and adjoint passes) keep one monotonic step sequence.
func (e *Engine) runWith(ctx context.Context, prog *ir.Program, sc *store.Scope, adjoint bool, clock *Clock) error {
	if err := checkParams(prog, sc); err != nil {
		return err
	}
	w := &walk{eng: e, clock: clock, adjoint: adjoint}
	return w.block(ctx, prog.Body, sc, prog.Name+".body")
}

// checkParams verifies every declared param is live with the declared kind
// before any statement runs, so failures surface at step 0.
func checkParams(prog *ir.Program, sc *store.Scope) error {
	for _, p := range prog.Params {
		b, err := sc.Lookup(p.Name)
		if err != nil {
			return asRuntime(err, 0, prog.Name)
		}
		if b.Val.Kind() != p.Kind {
			return runtimeErrf(ErrCodeKindMismatch, 0, p.Name,
				"param declared %s but bound value is %s", p.Kind, b.Val.Kind())
		}
	}
	return nil
}
