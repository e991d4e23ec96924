package compiler

import (
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
)

// Validate checks a program against the reversible operation tables and the
// binding declarations it carries. Returns all errors found (does not
// fail-fast) so a program author sees every rejection at once.
func Validate(p *ir.Program) []BuildError {
	v := &validator{visited: make(map[*ir.Program]bool)}
	v.program(p)
	return v.errs
}

// CheckDifferentiable rejects any program containing a statement without a
// registered adjoint-propagation rule. The gradient engine calls it before
// seeding any adjoint; CLI clients call it ahead of time.
func CheckDifferentiable(p *ir.Program) []BuildError {
	v := &validator{visited: make(map[*ir.Program]bool)}
	v.adjointBlock(fmt.Sprintf("%s.body", p.Name), p.Body)
	return v.errs
}

// kindEnv is the static symbol table: binding name to declared kind, with
// parent chaining mirroring the runtime scope chain. Loop-control variables
// are tracked separately because they are read-only to program statements.
type kindEnv struct {
	parent *kindEnv
	vars   map[string]domain.Kind
	loop   map[string]bool
}

func newKindEnv(parent *kindEnv) *kindEnv {
	return &kindEnv{parent: parent, vars: make(map[string]domain.Kind), loop: make(map[string]bool)}
}

func (e *kindEnv) lookup(name string) (kind domain.Kind, isLoop bool, ok bool) {
	for env := e; env != nil; env = env.parent {
		if k, found := env.vars[name]; found {
			return k, env.loop[name], true
		}
	}
	return "", false, false
}

type validator struct {
	errs    []BuildError
	visited map[*ir.Program]bool
}

func (v *validator) errf(code BuildErrorCode, path, format string, args ...any) {
	v.errs = append(v.errs, BuildError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) program(p *ir.Program) {
	if v.visited[p] {
		return
	}
	v.visited[p] = true

	env := newKindEnv(nil)
	seen := make(map[string]bool)
	for i, pa := range p.Params {
		path := fmt.Sprintf("%s.params[%d]", p.Name, i)
		if pa.Name == "" {
			v.errf(ErrCodeMalformedNode, path, "param has no name")
			continue
		}
		if !domain.ValidKinds[pa.Kind] {
			v.errf(ErrCodeMalformedNode, path, "invalid kind %q", pa.Kind)
			continue
		}
		if seen[pa.Name] {
			v.errf(ErrCodeMalformedNode, path, "duplicate param %q", pa.Name)
			continue
		}
		seen[pa.Name] = true
		env.vars[pa.Name] = pa.Kind
	}
	v.block(fmt.Sprintf("%s.body", p.Name), env, p.Body)
}

func (v *validator) block(path string, env *kindEnv, b ir.Block) {
	for i, n := range b.Body {
		v.node(fmt.Sprintf("%s[%d]", path, i), env, n)
	}
}

func (v *validator) node(path string, env *kindEnv, n ir.Node) {
	switch t := n.(type) {
	case ir.Stmt:
		v.stmt(path, env, t)

	case ir.Block:
		v.block(path, env, t)

	case ir.For:
		if t.Var == "" {
			v.errf(ErrCodeMalformedNode, path, "for loop has no index variable")
			return
		}
		if t.Step == 0 {
			v.errf(ErrCodeMalformedNode, path, "for loop step must be non-zero")
		}
		v.ref(path+".start", env, t.Start, domain.KindInt)
		v.ref(path+".stop", env, t.Stop, domain.KindInt)
		child := newKindEnv(env)
		child.vars[t.Var] = domain.KindInt
		child.loop[t.Var] = true
		v.block(path+".body", child, t.Body)

	case ir.If:
		v.pred(path+".pre", env, t.Pre)
		v.pred(path+".post", env, t.Post)
		v.block(path+".then", env, t.Then)
		v.block(path+".else", env, t.Else)

	case ir.While:
		v.pred(path+".pre", env, t.Pre)
		v.pred(path+".post", env, t.Post)
		v.block(path+".body", env, t.Body)

	case ir.Routine:
		child := newKindEnv(env)
		seen := make(map[string]bool)
		for i, a := range t.Ancillas {
			apath := fmt.Sprintf("%s.ancillas[%d]", path, i)
			if a.Name == "" {
				v.errf(ErrCodeMalformedNode, apath, "ancilla has no name")
				continue
			}
			if !domain.ValidKinds[a.Kind] {
				v.errf(ErrCodeMalformedNode, apath, "invalid kind %q", a.Kind)
				continue
			}
			if seen[a.Name] {
				v.errf(ErrCodeMalformedNode, apath, "duplicate ancilla %q", a.Name)
				continue
			}
			seen[a.Name] = true
			child.vars[a.Name] = a.Kind
		}
		v.block(path+".compute", child, t.Compute)
		v.block(path+".use", child, t.Use)

	case ir.Call:
		if t.Callee == nil {
			v.errf(ErrCodeMalformedNode, path, "call has no callee")
			return
		}
		if len(t.Args) != len(t.Callee.Params) {
			v.errf(ErrCodeMalformedNode, path, "call passes %d args, %s declares %d params",
				len(t.Args), t.Callee.Name, len(t.Callee.Params))
			return
		}
		seenArgs := make(map[string]bool)
		for i, arg := range t.Args {
			apath := fmt.Sprintf("%s.args[%d]", path, i)
			if seenArgs[arg] {
				v.errf(ErrCodeIrreversibleOp, apath,
					"binding %q aliased to multiple params of %s", arg, t.Callee.Name)
				continue
			}
			seenArgs[arg] = true
			kind, isLoop, ok := env.lookup(arg)
			if !ok {
				v.errf(ErrCodeUndeclaredBinding, apath, "binding %q is not declared", arg)
				continue
			}
			if isLoop {
				v.errf(ErrCodeMalformedNode, apath, "loop-control variable %q cannot be passed by reference", arg)
				continue
			}
			if want := t.Callee.Params[i].Kind; kind != want {
				v.errf(ErrCodeKindMismatch, apath, "binding %q is %s, param %s is %s",
					arg, kind, t.Callee.Params[i].Name, want)
			}
		}
		v.program(t.Callee)

	default:
		v.errf(ErrCodeMalformedNode, path, "unknown node type %T", n)
	}
}

func (v *validator) stmt(path string, env *kindEnv, s ir.Stmt) {
	spec, ok := ir.Ops[s.Op]
	if !ok {
		v.errf(ErrCodeMalformedNode, path, "unknown op %q", s.Op)
		return
	}
	if s.Target == "" {
		v.errf(ErrCodeMalformedNode, path, "statement has no target")
		return
	}
	kind, isLoop, ok := env.lookup(s.Target)
	if !ok {
		v.errf(ErrCodeUndeclaredBinding, path, "target %q is not declared", s.Target)
		return
	}
	if isLoop {
		v.errf(ErrCodeMalformedNode, path, "loop-control variable %q is read-only", s.Target)
		return
	}
	if !spec.TargetKinds[kind] {
		v.errf(ErrCodeIrreversibleOp, path,
			"op %s is not in the %s domain's reversible set", s.Op, kind)
		return
	}
	// Aliasing the target as an operand breaks inversion: the inverse of
	// x += x is not halving but zeroing.
	if s.A.Name == s.Target || s.B.Name == s.Target {
		v.errf(ErrCodeIrreversibleOp, path, "operand aliases the target %q", s.Target)
		return
	}

	if spec.TakesFn {
		fs, ok := ir.Fns[s.Fn]
		if !ok {
			v.errf(ErrCodeMalformedNode, path, "unknown increment function %q", s.Fn)
			return
		}
		if !fs.Kinds[kind] {
			v.errf(ErrCodeIrreversibleOp, path,
				"increment function %s is not defined over the %s domain", s.Fn, kind)
			return
		}
		v.ref(path+".a", env, s.A, kind)
		if fs.Arity == 2 {
			v.ref(path+".b", env, s.B, kind)
		} else if !s.B.IsZero() {
			v.errf(ErrCodeMalformedNode, path, "%s takes one operand", s.Fn)
		}
		return
	}

	if s.Fn != ir.FnNone {
		v.errf(ErrCodeMalformedNode, path, "op %s takes no increment function", s.Op)
		return
	}
	switch spec.Operands {
	case 0:
		if !s.A.IsZero() || !s.B.IsZero() {
			v.errf(ErrCodeMalformedNode, path, "op %s takes no operands", s.Op)
		}
	case 1:
		if !s.B.IsZero() {
			v.errf(ErrCodeMalformedNode, path, "op %s takes one operand", s.Op)
			return
		}
		if spec.NamedOperand && s.A.IsConst() {
			v.errf(ErrCodeMalformedNode, path, "op %s requires a binding operand", s.Op)
			return
		}
		v.ref(path+".a", env, s.A, ir.OperandKindOf(spec, kind))
		if s.Op == ir.OpSwap {
			if _, aLoop, ok := env.lookup(s.A.Name); ok && aLoop {
				v.errf(ErrCodeMalformedNode, path+".a", "loop-control variable %q is read-only", s.A.Name)
			}
		}
	}
}

func (v *validator) ref(path string, env *kindEnv, r ir.Ref, want domain.Kind) {
	if r.IsZero() {
		v.errf(ErrCodeMalformedNode, path, "missing operand")
		return
	}
	if r.IsConst() {
		if r.Const.Kind() != want {
			v.errf(ErrCodeKindMismatch, path, "constant is %s, %s required", r.Const.Kind(), want)
		}
		return
	}
	kind, _, ok := env.lookup(r.Name)
	if !ok {
		v.errf(ErrCodeUndeclaredBinding, path, "binding %q is not declared", r.Name)
		return
	}
	if kind != want {
		v.errf(ErrCodeKindMismatch, path, "binding %q is %s, %s required", r.Name, kind, want)
	}
}

func (v *validator) pred(path string, env *kindEnv, p ir.Pred) {
	if !ir.ValidCmps[p.Cmp] {
		v.errf(ErrCodeMalformedNode, path, "unknown comparison %q", p.Cmp)
		return
	}
	ka, okA := v.refKind(path+".a", env, p.A)
	kb, okB := v.refKind(path+".b", env, p.B)
	if !okA || !okB {
		return
	}
	if ka != kb {
		v.errf(ErrCodeKindMismatch, path, "comparing %s against %s", ka, kb)
		return
	}
	// Ordering over the logarithmic domain would compare stored logs and
	// ignore the sign tag.
	if ka == domain.KindLog && p.Cmp != ir.CmpEQ && p.Cmp != ir.CmpNE {
		v.errf(ErrCodeKindMismatch, path, "logarithmic values admit only equality comparison")
	}
}

func (v *validator) refKind(path string, env *kindEnv, r ir.Ref) (domain.Kind, bool) {
	if r.IsZero() {
		v.errf(ErrCodeMalformedNode, path, "missing operand")
		return "", false
	}
	if r.IsConst() {
		return r.Const.Kind(), true
	}
	kind, _, ok := env.lookup(r.Name)
	if !ok {
		v.errf(ErrCodeUndeclaredBinding, path, "binding %q is not declared", r.Name)
		return "", false
	}
	return kind, true
}

func (v *validator) adjointBlock(path string, b ir.Block) {
	for i, n := range b.Body {
		v.adjointNode(fmt.Sprintf("%s[%d]", path, i), n)
	}
}

func (v *validator) adjointNode(path string, n ir.Node) {
	switch t := n.(type) {
	case ir.Stmt:
		if !ir.HasAdjointRule(t) {
			v.errf(ErrCodeNoAdjointRule, path, "op %s has no registered adjoint rule", t.Op)
		}
	case ir.Block:
		v.adjointBlock(path, t)
	case ir.For:
		v.adjointBlock(path+".body", t.Body)
	case ir.If:
		v.adjointBlock(path+".then", t.Then)
		v.adjointBlock(path+".else", t.Else)
	case ir.While:
		v.adjointBlock(path+".body", t.Body)
	case ir.Routine:
		v.adjointBlock(path+".compute", t.Compute)
		v.adjointBlock(path+".use", t.Use)
	case ir.Call:
		if t.Callee != nil && !v.visited[t.Callee] {
			v.visited[t.Callee] = true
			v.adjointBlock(t.Callee.Name+".body", t.Callee.Body)
		}
	}
}
