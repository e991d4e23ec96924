package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/janus-vm/janus/internal/compiler"
	"github.com/janus-vm/janus/internal/ir"
)

// LoadMode controls how errors are handled during program loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Loader error codes, distinct from build and runtime codes: they describe
// problems reaching the program text, not problems inside it.
const (
	ErrCodeNotFound    = "PATH_NOT_FOUND"
	ErrCodeScanError   = "SCAN_ERROR"
	ErrCodeNoFiles     = "NO_CUE_FILES"
	ErrCodeLoadFailed  = "CUE_LOAD_FAILED"
	ErrCodeBuildFailed = "CUE_BUILD_FAILED"
	ErrCodeGeneric     = "LOAD_ERROR"
)

// LoadError is a program-loading failure with an optional CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult is a decoded, validated program plus loading metadata.
type LoadResult struct {
	Program   *ir.Program
	CUEValue  cue.Value
	FileCount int
}

// LoadProgram loads a reversible program from a CUE file or a directory of
// CUE files. Directories are loaded as one CUE instance, so a `library` map
// may live in a different file than the `program` it serves. The result is
// decoded and validated; in LoadModeFailFast the first error returns alone,
// in LoadModeCollectAll every build error is reported.
func LoadProgram(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("accessing %s: %v", path, err)}}
	}

	var (
		value cue.Value
		count int
	)
	if info.IsDir() {
		value, count, err = buildDir(path)
	} else {
		value, count, err = buildFile(path)
	}
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{CUEValue: value, FileCount: count}

	prog, buildErrs := compiler.DecodeProgram(value)
	if len(buildErrs) == 0 {
		buildErrs = compiler.Validate(prog)
	}
	if len(buildErrs) > 0 {
		if mode == LoadModeFailFast {
			return result, []error{buildErrs[0]}
		}
		errs := make([]error, len(buildErrs))
		for i, be := range buildErrs {
			errs[i] = be
		}
		return result, errs
	}

	result.Program = prog
	return result, nil
}

func buildDir(dir string) (cue.Value, int, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	// Files are named explicitly so plain data files load without a
	// package clause or cue.mod.
	instances := load.Instances(files, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, len(files), nil
}

func buildFile(path string) (cue.Value, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	value := cuecontext.New().CompileString(string(data), cue.Filename(path))
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, 1, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
