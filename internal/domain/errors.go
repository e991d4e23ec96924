package domain

import (
	"errors"
	"fmt"
)

// ArithCode categorizes arithmetic failures.
type ArithCode string

const (
	// CodeOverflow indicates a trapped integer or fixed-point overflow.
	// Wrapping is never allowed: a wrapped value cannot be un-executed.
	CodeOverflow ArithCode = "OVERFLOW"

	// CodeDivisionByZero indicates a division by the domain zero.
	CodeDivisionByZero ArithCode = "DIVISION_BY_ZERO"

	// CodeKindMismatch indicates an operation over values of different kinds.
	CodeKindMismatch ArithCode = "KIND_MISMATCH"

	// CodeDomain indicates an operand outside the operation's domain
	// (negative sqrt operand, non-positive logarithm argument).
	CodeDomain ArithCode = "DOMAIN"
)

// ArithError is returned by value arithmetic. The engine wraps it with the
// offending binding name and statement index.
type ArithError struct {
	Code    ArithCode
	Message string
}

// Error implements the error interface.
func (e *ArithError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func arithErrf(code ArithCode, format string, args ...any) *ArithError {
	return &ArithError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsOverflow reports whether err is a trapped overflow.
// Uses errors.As to handle wrapped errors.
func IsOverflow(err error) bool {
	var ae *ArithError
	return errors.As(err, &ae) && ae.Code == CodeOverflow
}

// IsDivisionByZero reports whether err is a division by zero.
func IsDivisionByZero(err error) bool {
	var ae *ArithError
	return errors.As(err, &ae) && ae.Code == CodeDivisionByZero
}

// IsKindMismatch reports whether err is a kind mismatch.
func IsKindMismatch(err error) bool {
	var ae *ArithError
	return errors.As(err, &ae) && ae.Code == CodeKindMismatch
}
