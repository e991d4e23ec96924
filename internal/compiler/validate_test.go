package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
)

func validAdder() *ir.Program {
	return &ir.Program{
		Name: "adder",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindFixed},
			{Name: "y", Kind: domain.KindFixed},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "x", A: ir.V("y")},
		}},
	}
}

func TestValidate_ValidProgram(t *testing.T) {
	assert.Empty(t, Validate(validAdder()))
}

func TestValidate_MulOverFixedIsIrreversible(t *testing.T) {
	p := validAdder()
	p.Body.Body = append(p.Body.Body, ir.Stmt{Op: ir.OpMul, Target: "x", A: ir.V("y")})

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeIrreversibleOp, errs[0].Code)
	assert.Contains(t, errs[0].Message, "reversible set")
	assert.Equal(t, "adder.body[1]", errs[0].Path)
}

func TestValidate_AddOverLogIsIrreversible(t *testing.T) {
	p := &ir.Program{
		Name:   "f",
		Params: []ir.Param{{Name: "l", Kind: domain.KindLog}},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "l", A: ir.V("l")},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeIrreversibleOp, errs[0].Code)
}

func TestValidate_SqrtOverIntIsIrreversible(t *testing.T) {
	p := &ir.Program{
		Name: "f",
		Params: []ir.Param{
			{Name: "n", Kind: domain.KindInt},
			{Name: "m", Kind: domain.KindInt},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnSqrt, Target: "n", A: ir.V("m")},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeIrreversibleOp, errs[0].Code)
}

func TestValidate_UndeclaredBinding(t *testing.T) {
	p := validAdder()
	p.Body.Body = append(p.Body.Body,
		ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "x", A: ir.V("ghost")})

	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeUndeclaredBinding, errs[0].Code)
}

func TestValidate_KindMismatch(t *testing.T) {
	p := &ir.Program{
		Name: "f",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindFixed},
			{Name: "n", Kind: domain.KindInt},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "x", A: ir.V("n")},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeKindMismatch, errs[0].Code)
}

func TestValidate_LoopVarIsReadOnly(t *testing.T) {
	p := &ir.Program{
		Name:   "f",
		Params: []ir.Param{{Name: "s", Kind: domain.KindInt}},
		Body: ir.Block{Body: []ir.Node{
			ir.For{Var: "i", Start: ir.C(domain.Int(0)), Stop: ir.C(domain.Int(3)), Step: 1,
				Body: ir.Block{Body: []ir.Node{
					ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "i", A: ir.C(domain.Int(1))},
				}}},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeMalformedNode, errs[0].Code)
	assert.Contains(t, errs[0].Message, "read-only")
}

func TestValidate_ForStepZero(t *testing.T) {
	p := &ir.Program{
		Name:   "f",
		Params: []ir.Param{{Name: "s", Kind: domain.KindInt}},
		Body: ir.Block{Body: []ir.Node{
			ir.For{Var: "i", Start: ir.C(domain.Int(0)), Stop: ir.C(domain.Int(3)), Step: 0, Body: ir.Block{}},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "non-zero")
}

func TestValidate_OrderingOverLogRejected(t *testing.T) {
	p := &ir.Program{
		Name: "f",
		Params: []ir.Param{
			{Name: "a", Kind: domain.KindLog},
			{Name: "b", Kind: domain.KindLog},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.If{
				Pre:  ir.Pred{Cmp: ir.CmpLT, A: ir.V("a"), B: ir.V("b")},
				Post: ir.Pred{Cmp: ir.CmpEQ, A: ir.V("a"), B: ir.V("b")},
				Then: ir.Block{}, Else: ir.Block{},
			},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeKindMismatch, errs[0].Code)
}

func TestValidate_SwapRequiresBindingOperand(t *testing.T) {
	p := validAdder()
	p.Body.Body = []ir.Node{
		ir.Stmt{Op: ir.OpSwap, Target: "x", A: ir.C(domain.Fixed(0))},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeMalformedNode, errs[0].Code)
}

func TestValidate_CallArityAndKinds(t *testing.T) {
	callee := validAdder()
	p := &ir.Program{
		Name: "main",
		Params: []ir.Param{
			{Name: "a", Kind: domain.KindFixed},
			{Name: "n", Kind: domain.KindInt},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Call{Callee: callee, Args: []string{"a", "n"}},
		}},
	}
	errs := Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeKindMismatch, errs[0].Code)

	p.Body.Body = []ir.Node{ir.Call{Callee: callee, Args: []string{"a"}}}
	errs = Validate(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeMalformedNode, errs[0].Code)
}

func TestCheckDifferentiable_EscapeStackRejected(t *testing.T) {
	p := validAdder()
	p.Body.Body = append(p.Body.Body, ir.Stmt{Op: ir.OpPush, Target: "x"})

	errs := CheckDifferentiable(p)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoAdjointRule, errs[0].Code)
	assert.True(t, IsNoAdjointRule(errs[0]))
}

func TestCheckDifferentiable_CleanProgram(t *testing.T) {
	assert.Empty(t, CheckDifferentiable(validAdder()))
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join(nil))
	err := Join([]BuildError{{Code: ErrCodeIrreversibleOp, Message: "m"}})
	require.Error(t, err)
	assert.True(t, IsIrreversibleOp(err))
}
