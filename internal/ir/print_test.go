package ir

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/janus-vm/janus/internal/domain"
)

func normProgram() *Program {
	return &Program{
		Name: "norm",
		Params: []Param{
			{Name: "x1", Kind: domain.KindFixed},
			{Name: "x2", Kind: domain.KindFixed},
			{Name: "res", Kind: domain.KindFixed},
		},
		Body: Block{Body: []Node{
			Routine{
				Ancillas: []Param{{Name: "y", Kind: domain.KindFixed}},
				Compute: Block{Body: []Node{
					Stmt{Op: OpAdd, Fn: FnSquare, Target: "y", A: V("x1")},
					Stmt{Op: OpAdd, Fn: FnSquare, Target: "y", A: V("x2")},
				}},
				Use: Block{Body: []Node{
					Stmt{Op: OpAdd, Fn: FnSqrt, Target: "res", A: V("y")},
				}},
			},
		}},
	}
}

func controlProgram() *Program {
	return &Program{
		Name: "count",
		Params: []Param{
			{Name: "n", Kind: domain.KindInt},
			{Name: "s", Kind: domain.KindInt},
		},
		Body: Block{Body: []Node{
			For{Var: "i", Start: C(domain.Int(1)), Stop: V("n"), Step: 1,
				Body: Block{Body: []Node{
					Stmt{Op: OpAdd, Fn: FnIdentity, Target: "s", A: V("i")},
				}}},
			If{
				Pre:  Pred{Cmp: CmpGT, A: V("s"), B: C(domain.Int(0))},
				Post: Pred{Cmp: CmpGT, A: V("s"), B: C(domain.Int(1))},
				Then: Block{Body: []Node{
					Stmt{Op: OpAdd, Fn: FnIdentity, Target: "s", A: C(domain.Int(1))},
				}},
				Else: Block{},
			},
			While{
				Pre:  Pred{Cmp: CmpLT, A: V("n"), B: C(domain.Int(10))},
				Post: Pred{Cmp: CmpGE, A: V("n"), B: C(domain.Int(10))},
				Body: Block{Body: []Node{
					Stmt{Op: OpAdd, Fn: FnIdentity, Target: "n", A: C(domain.Int(1))},
				}},
			},
			Stmt{Op: OpSwap, Target: "s", A: V("n")},
			Stmt{Op: OpPush, Target: "s"},
		}},
	}
}

func TestFprint_Norm(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "norm_disassembly", []byte(Sprint(normProgram())))
}

func TestFprint_ControlFlow(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "control_disassembly", []byte(Sprint(controlProgram())))
}

func TestFprint_InverseRendersDeterministically(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "norm_inverse_disassembly", []byte(Sprint(InvertProgram(normProgram()))))
}
