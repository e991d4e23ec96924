package store

import (
	"errors"
	"fmt"
)

// LifecycleError reports a binding lifecycle violation. All lifecycle errors
// are fatal to the execution in progress: a program that broke a binding
// invariant cannot be trusted to un-execute safely.
type LifecycleError struct {
	// Code identifies the violation category.
	Code LifecycleCode

	// Binding is the offending binding name.
	Binding string

	// Message is a human-readable description.
	Message string
}

// LifecycleCode categorizes binding lifecycle violations.
type LifecycleCode string

const (
	// ErrCodeDuplicateBinding indicates an allocation under a name that is
	// already live in the scope.
	ErrCodeDuplicateBinding LifecycleCode = "DUPLICATE_BINDING"

	// ErrCodeNonZeroDeallocation indicates a deallocation whose current
	// value differs from the asserted constant.
	ErrCodeNonZeroDeallocation LifecycleCode = "NONZERO_DEALLOCATION"

	// ErrCodeUseAfterFree indicates a read or write of a deallocated binding.
	ErrCodeUseAfterFree LifecycleCode = "USE_AFTER_FREE"

	// ErrCodeBindingNotFound indicates a reference to a name that was never
	// allocated in the scope chain.
	ErrCodeBindingNotFound LifecycleCode = "BINDING_NOT_FOUND"
)

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %s (binding=%s)", e.Code, e.Message, e.Binding)
}

// IsDuplicateBinding reports whether err is a duplicate allocation.
// Uses errors.As to handle wrapped errors.
func IsDuplicateBinding(err error) bool { return hasCode(err, ErrCodeDuplicateBinding) }

// IsNonZeroDeallocation reports whether err is a deallocation contract
// violation.
func IsNonZeroDeallocation(err error) bool { return hasCode(err, ErrCodeNonZeroDeallocation) }

// IsUseAfterFree reports whether err is a use of a deallocated binding.
func IsUseAfterFree(err error) bool { return hasCode(err, ErrCodeUseAfterFree) }

// IsBindingNotFound reports whether err references an unknown binding.
func IsBindingNotFound(err error) bool { return hasCode(err, ErrCodeBindingNotFound) }

func hasCode(err error, code LifecycleCode) bool {
	var le *LifecycleError
	return errors.As(err, &le) && le.Code == code
}
