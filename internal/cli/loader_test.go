package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProgram_File(t *testing.T) {
	prog := writeFile(t, "adder.cue", adderCUE)

	result, errs := LoadProgram(prog, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result.Program)
	assert.Equal(t, "adder", result.Program.Name)
	assert.Equal(t, 1, result.FileCount)
}

func TestLoadProgram_FailFastStopsAtFirstError(t *testing.T) {
	prog := writeFile(t, "bad.cue", `program: {
	name: "bad"
	params: [{name: "n", kind: "int"}]
	body: [
		{op: "add", target: "n", a: "ghost"},
		{op: "frobnicate", target: "n"},
	]
}
`)

	_, errs := LoadProgram(prog, LoadModeFailFast)
	assert.Len(t, errs, 1)

	_, errs = LoadProgram(prog, LoadModeCollectAll)
	assert.GreaterOrEqual(t, len(errs), 2)
}

func TestLoadProgram_BadCUESyntax(t *testing.T) {
	prog := writeFile(t, "broken.cue", "program: {{{")

	_, errs := LoadProgram(prog, LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeBuildFailed, loadErr.Code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("no"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), []byte("y: 2"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
