package ir

import (
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
)

// Ref is a statement operand: either a named binding or an inline constant.
type Ref struct {
	Name  string
	Const domain.Value
}

// V creates a binding reference.
func V(name string) Ref {
	return Ref{Name: name}
}

// C creates a constant operand.
func C(v domain.Value) Ref {
	return Ref{Const: v}
}

// IsConst reports whether the ref is an inline constant.
func (r Ref) IsConst() bool { return r.Name == "" }

// IsZero reports whether the ref is unset (no name, no constant).
func (r Ref) IsZero() bool { return r.Name == "" && r.Const == nil }

func (r Ref) String() string {
	if r.IsConst() {
		if r.Const == nil {
			return "<unset>"
		}
		return r.Const.String()
	}
	return r.Name
}

// Param declares a named binding with its numeric domain. Programs declare
// their arguments this way; routines declare their ancillas.
type Param struct {
	Name string      `json:"name"`
	Kind domain.Kind `json:"kind"`
}

// Node is the sealed interface over program tree nodes. Only Stmt, Block,
// For, If, While, Routine, and Call implement it.
type Node interface {
	node() // sealed
}

// Stmt is an atomic invertible operation: Op applied to Target, with
// operands A and B feeding the increment function Fn where the op takes one.
type Stmt struct {
	Op     Op
	Fn     Fn
	Target string
	A, B   Ref
}

func (Stmt) node() {}

// Block is an ordered sequence of nodes. Inverts by inverting each child in
// reverse order.
type Block struct {
	Body []Node
}

func (Block) node() {}

// For executes Body once per index value start, start+step, ..., stop
// (inclusive). The index variable is loop-control metadata, not reversible
// program state: it lives in an engine-managed child scope and the body may
// read but never write it. The inverse traversal walks the same index set in
// exactly reverse order.
type For struct {
	Var   string
	Start Ref
	Stop  Ref
	Step  int64
	Body  Block
}

func (For) node() {}

// If is a reversible conditional guarded by a declared (Pre, Post) predicate
// pair: forward execution picks the branch from Pre and guarantees Post
// holds afterwards iff Then ran; reverse execution picks from Post and
// restores a state where Pre holds iff Then had run. The pair is one
// correctness-critical contract, not an optimization. Both branches must be
// declared (an absent branch is a build error; use an empty block).
type If struct {
	Pre  Pred
	Post Pred
	Then Block
	Else Block
}

func (If) node() {}

// While generalizes the predicate pair to a loop: forward runs Body while
// Pre holds and must leave Post true at exit; reverse runs the inverted body
// while Post holds and must leave Pre true.
type While struct {
	Pre  Pred
	Post Pred
	Body Block
}

func (While) node() {}

// Routine is the compute-uncompute composer: ancillas are allocated at their
// domain zero, Compute runs, Use consumes the computed results, then
// Compute's inverse restores every ancilla to zero so it can be deallocated.
// An ancilla left non-zero after the uncompute leg is a composer contract
// violation.
type Routine struct {
	Ancillas []Param
	Compute  Block
	Use      Block
}

func (Routine) node() {}

// Call invokes a sub-program, binding the callee's declared params to the
// caller's bindings by position (aliased, not copied: the callee mutates the
// caller's state, because outputs are the mutated inputs themselves).
type Call struct {
	Callee *Program
	Args   []string
}

func (Call) node() {}

// Program is an ordered body of statements and control-flow nodes together
// with its declared argument bindings.
type Program struct {
	Name   string
	Params []Param
	Body   Block
}

// Param returns the declared param with the given name, or an error.
func (p *Program) Param(name string) (Param, error) {
	for _, pa := range p.Params {
		if pa.Name == name {
			return pa, nil
		}
	}
	return Param{}, fmt.Errorf("program %s declares no param %q", p.Name, name)
}
