// Package stack implements the escape stack: the one sanctioned one-way
// valve for removing a value from reversible flow.
//
// Push/pop pairing is a convention the runtime cannot verify across a whole
// program (documented soundness gap). A mismatched pair surfaces later as an
// empty-stack or non-zero-pop-target error, possibly far from its root cause.
//
// The stack is an injectable resource: executions that must not interfere
// use isolated stacks from New, and only the outermost call boundary should
// fall back to the process-wide Default, which serializes access with a
// mutex because LIFO ordering is part of program correctness.
package stack

import (
	"sync"

	"github.com/janus-vm/janus/internal/domain"
)

// Stack is the escape-stack contract consumed by the engine.
type Stack interface {
	// Push appends a value.
	Push(v domain.Value)

	// Pop removes and returns the most recently pushed value.
	// ok is false when the stack is empty.
	Pop() (v domain.Value, ok bool)

	// Len reports the number of stacked values.
	Len() int
}

// LIFO is an unsynchronized last-in-first-out Stack for single executions.
type LIFO struct {
	vals []domain.Value
}

// New creates an empty isolated stack.
func New() *LIFO {
	return &LIFO{}
}

// Push appends a value.
func (s *LIFO) Push(v domain.Value) {
	s.vals = append(s.vals, v)
}

// Pop removes and returns the top value.
func (s *LIFO) Pop() (domain.Value, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	v := s.vals[len(s.vals)-1]
	s.vals[len(s.vals)-1] = nil
	s.vals = s.vals[:len(s.vals)-1]
	return v, true
}

// Len reports the number of stacked values.
func (s *LIFO) Len() int {
	return len(s.vals)
}

// shared is the process-wide stack behind Default.
type shared struct {
	mu    sync.Mutex
	inner LIFO
}

func (s *shared) Push(v domain.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Push(v)
}

func (s *shared) Pop() (domain.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Pop()
}

func (s *shared) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Len()
}

var defaultStack = &shared{}

// Default returns the process-wide stack. Tests and concurrent executions
// should prefer New.
func Default() Stack {
	return defaultStack
}
