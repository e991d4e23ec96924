package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/engine"
	"github.com/janus-vm/janus/internal/ir"
	"github.com/janus-vm/janus/internal/stack"
	"github.com/janus-vm/janus/internal/store"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "janus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "janus.db")
	j1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, j2.Close())
}

func TestJournal_RecordsExecution(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	run, err := j.BeginRun(ctx, "adder", DirectionForward)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	prog := &ir.Program{
		Name: "adder",
		Params: []ir.Param{
			{Name: "x", Kind: domain.KindInt},
			{Name: "y", Kind: domain.KindInt},
		},
		Body: ir.Block{Body: []ir.Node{
			ir.Stmt{Op: ir.OpAdd, Fn: ir.FnIdentity, Target: "x", A: ir.V("y")},
			ir.Stmt{Op: ir.OpSwap, Target: "x", A: ir.V("y")},
		}},
	}
	sc := store.NewScope()
	for _, p := range prog.Params {
		_, err := sc.Allocate(p.Name, domain.Int(3))
		require.NoError(t, err)
	}
	e := engine.New(engine.WithObserver(run), engine.WithStack(stack.New()))
	require.NoError(t, e.Run(ctx, prog, sc))
	require.NoError(t, run.Err())

	steps, err := j.Steps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, int64(1), steps[0].Seq)
	assert.Equal(t, "add", steps[0].Op)
	assert.Equal(t, "x", steps[0].Target)
	assert.Equal(t, "3", steps[0].Before)
	assert.Equal(t, "6", steps[0].After)
	assert.Equal(t, "swap", steps[1].Op)
	assert.Equal(t, "adder.body[1]", steps[1].Path)
}

func TestJournal_RunsHeader(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	_, err := j.BeginRun(ctx, "norm", DirectionForward)
	require.NoError(t, err)
	_, err = j.BeginRun(ctx, "norm", DirectionInverse)
	require.NoError(t, err)

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "norm", runs[0].Program)
	assert.Equal(t, DirectionForward, runs[0].Direction)
	assert.Equal(t, DirectionInverse, runs[1].Direction)
	assert.Equal(t, ir.IRVersion, runs[0].IRVersion)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestJournal_InvalidDirectionRejected(t *testing.T) {
	j := openTemp(t)
	_, err := j.BeginRun(context.Background(), "norm", "sideways")
	assert.Error(t, err, "schema CHECK constrains direction")
}

func TestJournal_StepsEmptyForUnknownRun(t *testing.T) {
	j := openTemp(t)
	steps, err := j.Steps(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, steps)
}
