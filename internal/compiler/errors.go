package compiler

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes construction-time rejections.
type BuildErrorCode string

const (
	// ErrCodeIrreversibleOp indicates an operation registered over a domain
	// whose invertibility contract it does not satisfy.
	ErrCodeIrreversibleOp BuildErrorCode = "IRREVERSIBLE_OP"

	// ErrCodeNoAdjointRule indicates a statement without a registered
	// adjoint-propagation rule inside a program submitted for
	// differentiation.
	ErrCodeNoAdjointRule BuildErrorCode = "NO_ADJOINT_RULE"

	// ErrCodeUndeclaredBinding indicates a reference to a name no enclosing
	// declaration introduces.
	ErrCodeUndeclaredBinding BuildErrorCode = "UNDECLARED_BINDING"

	// ErrCodeKindMismatch indicates operands whose numeric domains disagree
	// with the operation's requirements.
	ErrCodeKindMismatch BuildErrorCode = "KIND_MISMATCH"

	// ErrCodeMalformedNode indicates a structurally invalid node (zero for
	// step, missing branch, bad arity, unknown op).
	ErrCodeMalformedNode BuildErrorCode = "MALFORMED_NODE"
)

// BuildError is a construction-time rejection. Programs carrying build
// errors are never executed and never retried.
type BuildError struct {
	Code    BuildErrorCode `json:"code"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
}

// Error implements the error interface.
func (e BuildError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsIrreversibleOp reports whether err is an IRREVERSIBLE_OP rejection.
// Uses errors.As to handle wrapped errors.
func IsIrreversibleOp(err error) bool { return hasBuildCode(err, ErrCodeIrreversibleOp) }

// IsNoAdjointRule reports whether err is a NO_ADJOINT_RULE rejection.
func IsNoAdjointRule(err error) bool { return hasBuildCode(err, ErrCodeNoAdjointRule) }

func hasBuildCode(err error, code BuildErrorCode) bool {
	var be BuildError
	if errors.As(err, &be) {
		return be.Code == code
	}
	var bep *BuildError
	return errors.As(err, &bep) && bep.Code == code
}

// Join folds a collected error slice into a single error, or nil.
func Join(errs []BuildError) error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}
