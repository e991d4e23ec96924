package engine

import "github.com/janus-vm/janus/internal/ir"

// StepEvent describes one executed statement.
type StepEvent struct {
	// Seq is the logical clock value stamped on the statement.
	Seq int64

	// Path locates the statement in the program tree
	// (e.g. "norm.body[0].compute[1]").
	Path string

	// Op and Fn identify the executed operation.
	Op ir.Op
	Fn ir.Fn

	// Target is the mutated binding.
	Target string

	// Before and After are the target's rendered values around the step.
	Before string
	After  string
}

// Observer receives every executed statement, in order. The engine calls
// OnStep synchronously between statements, so implementations must be cheap
// or buffer internally. A nil observer costs nothing.
type Observer interface {
	OnStep(ev StepEvent)
}
