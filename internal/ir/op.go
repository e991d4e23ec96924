package ir

import (
	"github.com/janus-vm/janus/internal/domain"
)

// Op identifies a reversible update applied to a target binding. The set is
// closed: dispatch tables below are resolved at program-construction time,
// never per call.
type Op string

const (
	// OpAdd is `target += fn(a, b)`.
	OpAdd Op = "add"
	// OpSub is `target -= fn(a, b)`.
	OpSub Op = "sub"
	// OpMul is `target *= a`, admissible only in the logarithmic domain
	// where it reduces to addition of the stored logarithm.
	OpMul Op = "mul"
	// OpDiv is `target /= a` (logarithmic domain only).
	OpDiv Op = "div"
	// OpNeg is `target = -target`. Self-inverse.
	OpNeg Op = "neg"
	// OpSwap exchanges target and a. Self-inverse.
	OpSwap Op = "swap"
	// OpPush moves target onto the escape stack, leaving it at domain zero.
	OpPush Op = "push"
	// OpPop moves the top of the escape stack into a zero-valued target.
	OpPop Op = "pop"
	// OpToLog fills a zero logarithmic target with the encoding of fixed a.
	OpToLog Op = "tolog"
	// OpUnToLog clears a logarithmic target holding the encoding of fixed a.
	OpUnToLog Op = "untolog"
	// OpFromLog fills a zero fixed target with the decoding of logarithmic a.
	OpFromLog Op = "fromlog"
	// OpUnFromLog clears a fixed target holding the decoding of logarithmic a.
	OpUnFromLog Op = "unfromlog"
)

// Fn identifies the pure increment function feeding OpAdd/OpSub.
type Fn string

const (
	// FnNone marks ops that take no increment function.
	FnNone Fn = ""
	// FnIdentity is f(a) = a.
	FnIdentity Fn = "id"
	// FnMul is f(a, b) = a*b. Reversible as an increment even over fixed
	// point: the identical rounded product is subtracted on the way back.
	FnMul Fn = "mul"
	// FnDiv is f(a, b) = a/b (fixed point only).
	FnDiv Fn = "div"
	// FnSquare is f(a) = a*a.
	FnSquare Fn = "square"
	// FnSqrt is f(a) = sqrt(a) (fixed point only).
	FnSqrt Fn = "sqrt"
)

var allKinds = map[domain.Kind]bool{
	domain.KindInt:   true,
	domain.KindFixed: true,
	domain.KindLog:   true,
}

var addSubKinds = map[domain.Kind]bool{
	domain.KindInt:   true,
	domain.KindFixed: true,
}

var logOnly = map[domain.Kind]bool{domain.KindLog: true}
var fixedOnly = map[domain.Kind]bool{domain.KindFixed: true}

// OpSpec is an operation's registration: its strict inverse, its shape, the
// target domains over which it is exactly invertible, and whether it carries
// an adjoint-propagation rule.
type OpSpec struct {
	// Inverse is the registered op⁻¹ with op⁻¹(op(t, ...)) == t for every
	// admissible domain.
	Inverse Op

	// TakesFn reports whether the op consumes an increment function (Fn
	// determines operand arity in that case).
	TakesFn bool

	// Operands is the operand count for ops without an increment function.
	Operands int

	// NamedOperand requires operand A to be a binding, not a constant
	// (swap mutates it; conversion pairing reads it on both legs).
	NamedOperand bool

	// TargetKinds lists admissible target domains. Registering the op over
	// any other domain is an IrreversibleOperation build error.
	TargetKinds map[domain.Kind]bool

	// OperandKind maps the target kind to the required operand kind.
	// nil means operands share the target's kind.
	OperandKind func(domain.Kind) domain.Kind

	// HasAdjoint reports whether an adjoint-propagation rule is registered.
	// For OpAdd/OpSub the increment function's rule also applies.
	HasAdjoint bool
}

// Ops is the closed reversible operation table.
var Ops = map[Op]OpSpec{
	OpAdd: {Inverse: OpSub, TakesFn: true, TargetKinds: addSubKinds, HasAdjoint: true},
	OpSub: {Inverse: OpAdd, TakesFn: true, TargetKinds: addSubKinds, HasAdjoint: true},

	OpMul: {Inverse: OpDiv, Operands: 1, TargetKinds: logOnly, HasAdjoint: true},
	OpDiv: {Inverse: OpMul, Operands: 1, TargetKinds: logOnly, HasAdjoint: true},

	OpNeg:  {Inverse: OpNeg, TargetKinds: allKinds, HasAdjoint: true},
	OpSwap: {Inverse: OpSwap, Operands: 1, NamedOperand: true, TargetKinds: allKinds, HasAdjoint: true},

	// The escape stack is the sanctioned departure from strict
	// reversibility bookkeeping; no adjoint rule exists for it.
	OpPush: {Inverse: OpPop, TargetKinds: allKinds},
	OpPop:  {Inverse: OpPush, TargetKinds: allKinds},

	OpToLog: {Inverse: OpUnToLog, Operands: 1, NamedOperand: true, TargetKinds: logOnly,
		OperandKind: func(domain.Kind) domain.Kind { return domain.KindFixed }, HasAdjoint: true},
	OpUnToLog: {Inverse: OpToLog, Operands: 1, NamedOperand: true, TargetKinds: logOnly,
		OperandKind: func(domain.Kind) domain.Kind { return domain.KindFixed }, HasAdjoint: true},
	OpFromLog: {Inverse: OpUnFromLog, Operands: 1, NamedOperand: true, TargetKinds: fixedOnly,
		OperandKind: func(domain.Kind) domain.Kind { return domain.KindLog }, HasAdjoint: true},
	OpUnFromLog: {Inverse: OpFromLog, Operands: 1, NamedOperand: true, TargetKinds: fixedOnly,
		OperandKind: func(domain.Kind) domain.Kind { return domain.KindLog }, HasAdjoint: true},
}

// FnSpec is an increment function's registration.
type FnSpec struct {
	// Arity is the operand count (1 uses A, 2 uses A and B).
	Arity int

	// Kinds lists the domains the function is defined over.
	Kinds map[domain.Kind]bool

	// HasAdjoint reports whether a local derivative rule is registered.
	HasAdjoint bool
}

// Fns is the closed increment function table.
var Fns = map[Fn]FnSpec{
	FnIdentity: {Arity: 1, Kinds: addSubKinds, HasAdjoint: true},
	FnMul:      {Arity: 2, Kinds: addSubKinds, HasAdjoint: true},
	FnDiv:      {Arity: 2, Kinds: fixedOnly, HasAdjoint: true},
	FnSquare:   {Arity: 1, Kinds: addSubKinds, HasAdjoint: true},
	FnSqrt:     {Arity: 1, Kinds: fixedOnly, HasAdjoint: true},
}

// OperandKindOf returns the operand kind an op requires for a given target
// kind.
func OperandKindOf(spec OpSpec, target domain.Kind) domain.Kind {
	if spec.OperandKind != nil {
		return spec.OperandKind(target)
	}
	return target
}

// HasAdjointRule reports whether a statement's (op, fn) pair carries a
// registered adjoint-propagation rule.
func HasAdjointRule(s Stmt) bool {
	spec, ok := Ops[s.Op]
	if !ok || !spec.HasAdjoint {
		return false
	}
	if spec.TakesFn {
		fs, ok := Fns[s.Fn]
		return ok && fs.HasAdjoint
	}
	return true
}
