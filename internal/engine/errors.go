package engine

import (
	"errors"
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/store"
)

// RuntimeError represents an error detected during execution.
//
// Runtime errors are always fatal to the execution in progress: a program
// that violated a reversibility invariant mid-flight left the scope in a
// state that cannot be trusted to un-execute. Nothing is retried.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Binding is the offending binding name, when one is involved.
	Binding string

	// Step is the logical clock value at the failing statement.
	Step int64

	// Details contains additional context (node path, limits).
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateBinding indicates an allocation under a live name.
	ErrCodeDuplicateBinding RuntimeErrorCode = "DUPLICATE_BINDING"

	// ErrCodeNonZeroDeallocation indicates an erasure whose current value
	// differs from the asserted one: a failed deallocation, or a paired
	// conversion clearing a target that does not hold the operand's image.
	ErrCodeNonZeroDeallocation RuntimeErrorCode = "NONZERO_DEALLOCATION"

	// ErrCodeUseAfterFree indicates a reference to a deallocated binding.
	ErrCodeUseAfterFree RuntimeErrorCode = "USE_AFTER_FREE"

	// ErrCodeBindingNotFound indicates a reference to an unknown name.
	ErrCodeBindingNotFound RuntimeErrorCode = "BINDING_NOT_FOUND"

	// ErrCodePredicateInconsistent indicates a declared pre/postcondition
	// pair that did not hold at runtime, or a loop range unreachable by
	// its step.
	ErrCodePredicateInconsistent RuntimeErrorCode = "PREDICATE_INCONSISTENT"

	// ErrCodeEmptyStack indicates a pop from an empty escape stack.
	ErrCodeEmptyStack RuntimeErrorCode = "EMPTY_STACK"

	// ErrCodeNonZeroPopTarget indicates a pop into a binding not at its
	// domain zero.
	ErrCodeNonZeroPopTarget RuntimeErrorCode = "NONZERO_POP_TARGET"

	// ErrCodeRoutineNotClean indicates an ancilla left non-zero after the
	// uncompute leg of a routine.
	ErrCodeRoutineNotClean RuntimeErrorCode = "ROUTINE_NOT_CLEAN"

	// ErrCodeOverflow indicates trapped integer or fixed-point overflow.
	ErrCodeOverflow RuntimeErrorCode = "OVERFLOW"

	// ErrCodeDivisionByZero indicates a division by the domain zero.
	ErrCodeDivisionByZero RuntimeErrorCode = "DIVISION_BY_ZERO"

	// ErrCodeKindMismatch indicates operands of disagreeing numeric domains.
	ErrCodeKindMismatch RuntimeErrorCode = "KIND_MISMATCH"

	// ErrCodeDomain indicates an operand outside an operation's domain
	// (negative sqrt operand).
	ErrCodeDomain RuntimeErrorCode = "DOMAIN"

	// ErrCodeStepQuota indicates the execution exceeded its max steps.
	ErrCodeStepQuota RuntimeErrorCode = "STEP_QUOTA"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Binding != "" {
		return fmt.Sprintf("%s: %s (binding=%s, step=%d)", e.Code, e.Message, e.Binding, e.Step)
	}
	return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.Step)
}

// IsPredicateInconsistent reports whether err is a pre/postcondition
// violation. Uses errors.As to handle wrapped errors.
func IsPredicateInconsistent(err error) bool { return hasRuntimeCode(err, ErrCodePredicateInconsistent) }

// IsEmptyStack reports whether err is a pop from an empty escape stack.
func IsEmptyStack(err error) bool { return hasRuntimeCode(err, ErrCodeEmptyStack) }

// IsNonZeroPopTarget reports whether err is a pop into a non-zero binding.
func IsNonZeroPopTarget(err error) bool { return hasRuntimeCode(err, ErrCodeNonZeroPopTarget) }

// IsRoutineNotClean reports whether err is a dirty-ancilla violation.
func IsRoutineNotClean(err error) bool { return hasRuntimeCode(err, ErrCodeRoutineNotClean) }

// IsOverflow reports whether err is a trapped overflow.
func IsOverflow(err error) bool { return hasRuntimeCode(err, ErrCodeOverflow) }

// IsDivisionByZero reports whether err is a division by zero.
func IsDivisionByZero(err error) bool { return hasRuntimeCode(err, ErrCodeDivisionByZero) }

// IsKindMismatch reports whether err is a numeric-domain disagreement.
func IsKindMismatch(err error) bool { return hasRuntimeCode(err, ErrCodeKindMismatch) }

// IsStepQuota reports whether err is a step-quota violation.
func IsStepQuota(err error) bool { return hasRuntimeCode(err, ErrCodeStepQuota) }

// IsNonZeroDeallocation reports whether err is an erasure contract
// violation.
func IsNonZeroDeallocation(err error) bool { return hasRuntimeCode(err, ErrCodeNonZeroDeallocation) }

func hasRuntimeCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

func runtimeErrf(code RuntimeErrorCode, step int64, binding, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Binding: binding,
		Step:    step,
	}
}

// asRuntime converts binding lifecycle and value arithmetic failures into
// step-stamped runtime errors. Anything else (context cancellation) passes
// through untouched.
func asRuntime(err error, step int64, path string) error {
	if err == nil {
		return nil
	}
	var le *store.LifecycleError
	if errors.As(err, &le) {
		return &RuntimeError{
			Code:    RuntimeErrorCode(le.Code),
			Message: le.Message,
			Binding: le.Binding,
			Step:    step,
			Details: pathDetails(path),
		}
	}
	var ae *domain.ArithError
	if errors.As(err, &ae) {
		return &RuntimeError{
			Code:    RuntimeErrorCode(ae.Code),
			Message: ae.Message,
			Step:    step,
			Details: pathDetails(path),
		}
	}
	return err
}

func pathDetails(path string) map[string]string {
	if path == "" {
		return nil
	}
	return map[string]string{"path": path}
}
