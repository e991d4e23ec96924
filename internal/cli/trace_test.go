package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janus-vm/janus/internal/journal"
)

// recordRun executes the adder through the CLI with journaling on and
// returns the database path and recorded run ID.
func recordRun(t *testing.T) (string, string) {
	t.Helper()
	prog := writeFile(t, "adder.cue", adderCUE)
	db := filepath.Join(t.TempDir(), "trace.db")

	_, err := execute(t, "run", prog, "--db", db, "--input", "x=2", "--input", "y=3")
	require.NoError(t, err)

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return db, runs[0].ID
}

func TestTrace_ListRuns(t *testing.T) {
	db, id := recordRun(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "forward")
	assert.Contains(t, out, "adder")
}

func TestTrace_PrintSteps(t *testing.T) {
	db, id := recordRun(t)

	out, err := execute(t, "trace", "--db", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, "adder.body[0]")
	assert.Contains(t, out, "add x: 2 -> 5")
}

func TestTrace_UnknownRun(t *testing.T) {
	db, _ := recordRun(t)

	_, err := execute(t, "trace", "--db", db, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTrace_MissingDatabase(t *testing.T) {
	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
