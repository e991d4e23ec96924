package ir

import "fmt"

// Cmp is a predicate comparison operator.
type Cmp string

const (
	CmpEQ Cmp = "eq"
	CmpNE Cmp = "ne"
	CmpLT Cmp = "lt"
	CmpLE Cmp = "le"
	CmpGT Cmp = "gt"
	CmpGE Cmp = "ge"
)

// ValidCmps defines the allowed comparison operators.
var ValidCmps = map[Cmp]bool{
	CmpEQ: true, CmpNE: true, CmpLT: true, CmpLE: true, CmpGT: true, CmpGE: true,
}

// Pred is a declarative predicate comparing two operands. Predicates are
// data, not code, so the precondition/postcondition pairing of If and While
// can be declared in program files and checked in both directions.
type Pred struct {
	Cmp Cmp
	A   Ref
	B   Ref
}

func (p Pred) String() string {
	return fmt.Sprintf("%s %s %s", p.A, p.Cmp, p.B)
}
