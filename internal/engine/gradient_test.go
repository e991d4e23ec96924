package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/compiler"
	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
)

func TestGradient_Adder(t *testing.T) {
	prog := adderProg()
	out, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 2), fx(t, 3)}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, fx(t, 5), out)
	assert.Equal(t, []float64{1, 1}, grads)
}

func TestGradient_SquareIncrement(t *testing.T) {
	prog := &ir.Program{
		Name: "sq",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindFixed},
			{Name: "res", Kind: domain.KindFixed},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnSquare, Target: "res", A: ir.V("x")},
		}},
	}
	out, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 3), fx(t, 0)}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, fx(t, 9), out)
	assert.InDelta(t, 6.0, grads[0], 1e-9, "d(x^2)/dx = 2x")
	assert.InDelta(t, 1.0, grads[1], 1e-9)
}

func TestGradient_Norm_MatchesAnalytic(t *testing.T) {
	prog := normProg()
	out, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 3), fx(t, 4), fx(t, 0)}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, fx(t, 5), out)
	assert.InDelta(t, 0.6, grads[0], 1e-9, "x1/r")
	assert.InDelta(t, 0.8, grads[1], 1e-9, "x2/r")
	assert.InDelta(t, 1.0, grads[2], 1e-9)
}

func TestGradient_MatchesFiniteDifference(t *testing.T) {
	prog := &ir.Program{
		Name: "poly",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindFixed},
			{Name: "y", Kind: domain.KindFixed},
			{Name: "t", Kind: domain.KindFixed},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnMul, Target: "t", A: ir.V("x"), B: ir.V("y")},
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnSquare, Target: "t", A: ir.V("x")},
		}},
	}
	e := New()
	eval := func(x, y float64) float64 {
		sc := scopeFor(t, prog, fx(t, x), fx(t, y), fx(t, 0))
		require.NoError(t, e.Run(context.Background(), prog, sc))
		return get(t, sc, "t").Float()
	}

	_, grads, err := e.Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 1.5), fx(t, 2.5), fx(t, 0)}, 2, 1)
	require.NoError(t, err)

	const h = 1.0 / (1 << 10) // exactly representable step
	fdx := (eval(1.5+h, 2.5) - eval(1.5-h, 2.5)) / (2 * h)
	fdy := (eval(1.5, 2.5+h) - eval(1.5, 2.5-h)) / (2 * h)
	assert.InDelta(t, fdx, grads[0], 1e-3)
	assert.InDelta(t, fdy, grads[1], 1e-3)
	assert.InDelta(t, 5.5, grads[0], 1e-9, "y + 2x")
	assert.InDelta(t, 1.5, grads[1], 1e-9, "x")
}

func TestGradient_SeedScales(t *testing.T) {
	prog := adderProg()
	_, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 2), fx(t, 3)}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, grads)
}

func TestGradient_LogChain(t *testing.T) {
	prog := &ir.Program{
		Name: "scale",
		Params: []ir.Param{
			{Name: "p", Kind: domain.KindLog},
			{Name: "q", Kind: domain.KindLog},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpMul, Target: "p", A: ir.V("q")},
		}},
	}
	p0, err := domain.Encode(fx(t, 2))
	require.NoError(t, err)
	q0, err := domain.Encode(fx(t, 3))
	require.NoError(t, err)

	out, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{p0, q0}, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, out.Float(), 1e-6)
	assert.InDelta(t, 3.0, grads[0], 1e-6, "d(pq)/dp = q")
	assert.InDelta(t, 2.0, grads[1], 1e-6, "d(pq)/dq = p")
}

func TestGradient_ThroughConversions(t *testing.T) {
	prog := &ir.Program{
		Name: "lifted",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindFixed},
			{Name: "l", Kind: domain.KindLog},
			{Name: "y", Kind: domain.KindFixed},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpToLog, Target: "l", A: ir.V("x")},
			ir.Stmt{Op: ir.OpFromLog, Target: "y", A: ir.V("l")},
		}},
	}
	out, grads, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 3), domain.ZeroOf(domain.KindLog), fx(t, 0)}, 2, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, out.Float(), 1e-8)
	assert.InDelta(t, 1.0, grads[0], 1e-9, "identity through the log lift")
}

func TestGradient_EscapeStackRejected(t *testing.T) {
	prog := adderProg()
	prog.Body.Body = append(prog.Body.Body, ir.Stmt{Op: ir.OpPush, Target: "x"})

	_, _, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 1), fx(t, 2)}, 0, 1)
	require.Error(t, err)
	assert.True(t, compiler.IsNoAdjointRule(err))
}

func TestGradient_LossIndexValidated(t *testing.T) {
	prog := adderProg()
	_, _, err := New().Gradient(context.Background(), prog,
		[]domain.Value{fx(t, 1), fx(t, 2)}, 7, 1)
	assert.Error(t, err)
}
