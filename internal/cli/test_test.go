package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioDir lays out a program plus scenario files the way a project
// would ship them, and returns the scenario paths.
func writeScenarioDir(t *testing.T) (passing, failing string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "norm.cue"), []byte(normCUE), 0o644))

	passing = filepath.Join(dir, "roundtrip.yaml")
	require.NoError(t, os.WriteFile(passing, []byte(`name: roundtrip
program: norm.cue
direction: roundtrip
inputs:
  x1: "3"
  x2: "4"
  res: "0"
expect:
  res: "5"
`), 0o644))

	failing = filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`name: wrong
program: norm.cue
inputs:
  x1: "3"
  x2: "4"
  res: "0"
expect:
  res: "6"
`), 0o644))
	return passing, failing
}

func TestTest_PassingScenario(t *testing.T) {
	passing, _ := writeScenarioDir(t)

	out, err := execute(t, "test", passing)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   roundtrip")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestTest_FailingScenario(t *testing.T) {
	passing, failing := writeScenarioDir(t)

	out, err := execute(t, "test", passing, failing)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "ok   roundtrip")
	assert.Contains(t, out, "FAIL wrong")
	assert.Contains(t, out, "1 passed, 1 failed")
}

func TestTest_UnreadableScenarioCountsAsFailure(t *testing.T) {
	out, err := execute(t, "test", "missing.yaml")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL missing.yaml")
}
