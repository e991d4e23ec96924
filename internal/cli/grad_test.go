package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/journal"
)

func TestGrad_Norm(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)

	out, err := execute(t, "--format", "json", "grad", prog,
		"--input", "x1=3", "--input", "x2=4", "--loss", "res")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   GradReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(out))).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "5", resp.Data.Output)
	assert.InDelta(t, 0.6, resp.Data.Grads["x1"], 1e-9)
	assert.InDelta(t, 0.8, resp.Data.Grads["x2"], 1e-9)
	assert.InDelta(t, 1.0, resp.Data.Grads["res"], 1e-9)
}

func TestGrad_TextOutput(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)

	out, err := execute(t, "grad", prog, "--input", "x1=3", "--input", "x2=4", "--loss", "res")
	require.NoError(t, err)
	assert.Contains(t, out, "loss: res = 5")
	assert.Contains(t, out, "dres/dx1 = 0.6")
	assert.Contains(t, out, "dres/dx2 = 0.8")
}

func TestGrad_SeedScalesGradients(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)

	out, err := execute(t, "--format", "json", "grad", prog,
		"--input", "x1=3", "--input", "x2=4", "--loss", "res", "--seed", "2")
	require.NoError(t, err)

	var resp struct {
		Data GradReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(out))).Decode(&resp))
	assert.InDelta(t, 1.2, resp.Data.Grads["x1"], 1e-9)
}

func TestGrad_JournalsBothLegs(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)
	db := filepath.Join(t.TempDir(), "trace.db")

	_, err := execute(t, "grad", prog, "--db", db,
		"--input", "x1=3", "--input", "x2=4", "--loss", "res")
	require.NoError(t, err)

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.DirectionGradient, runs[0].Direction)

	steps, err := j.Steps(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 10, "forward and adjoint legs share one step sequence")
	assert.Equal(t, int64(1), steps[0].Seq)
	assert.Equal(t, int64(10), steps[9].Seq)
}

func TestGrad_UnknownLossRejected(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)

	_, err := execute(t, "grad", prog, "--loss", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGrad_LossFlagRequired(t *testing.T) {
	prog := writeFile(t, "norm.cue", normCUE)

	_, err := execute(t, "grad", prog)
	require.Error(t, err)
}
