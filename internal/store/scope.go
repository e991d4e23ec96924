package store

import (
	"fmt"

	"github.com/janus-vm/janus/internal/domain"
)

// Binding is a name-to-value slot inside a scope.
//
// Adj is the binding's adjoint shadow: the backward-accumulated partial
// derivative attached during a gradient computation. It is ephemeral - it
// exists only for the duration of the gradient pass and is never part of
// reversible state.
type Binding struct {
	Name string
	Val  domain.Value
	Adj  float64

	freed bool
}

// Freed reports whether the binding has been deallocated.
func (b *Binding) Freed() bool { return b.freed }

// Scope is an ordered set of bindings created by a program invocation or
// nested block. Lookups fall through to the parent; allocation and
// deallocation act on the owning scope only.
type Scope struct {
	parent   *Scope
	bindings map[string]*Binding
	order    []*Binding
}

// NewScope creates an empty root scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]*Binding)}
}

// Child creates a nested scope whose lookups fall through to s.
func (s *Scope) Child() *Scope {
	c := NewScope()
	c.parent = s
	return c
}

// Allocate creates a live binding holding v. Fails with DUPLICATE_BINDING if
// the name is already live in this scope. A name freed by Deallocate may be
// reused.
func (s *Scope) Allocate(name string, v domain.Value) (*Binding, error) {
	if b, ok := s.bindings[name]; ok && !b.freed {
		return nil, &LifecycleError{
			Code:    ErrCodeDuplicateBinding,
			Binding: name,
			Message: "name is already live in this scope",
		}
	}
	b := &Binding{Name: name, Val: v}
	s.bindings[name] = b
	s.order = append(s.order, b)
	return b, nil
}

// Lookup resolves a name through the scope chain. A deallocated binding
// yields USE_AFTER_FREE; an unknown name yields BINDING_NOT_FOUND.
func (s *Scope) Lookup(name string) (*Binding, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			if b.freed {
				return nil, &LifecycleError{
					Code:    ErrCodeUseAfterFree,
					Binding: name,
					Message: "binding referenced after deallocation",
				}
			}
			return b, nil
		}
	}
	return nil, &LifecycleError{
		Code:    ErrCodeBindingNotFound,
		Binding: name,
		Message: "binding was never allocated in this scope chain",
	}
}

// Get returns the current value of a live binding.
func (s *Scope) Get(name string) (domain.Value, error) {
	b, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return b.Val, nil
}

// Set replaces the value of a live binding.
func (s *Scope) Set(name string, v domain.Value) error {
	b, err := s.Lookup(name)
	if err != nil {
		return err
	}
	b.Val = v
	return nil
}

// Bind attaches an existing binding to this scope under the given name,
// sharing the slot: writes through either name mutate the same binding.
// Call-argument aliasing uses this. Bound names are not owned by the scope
// and are skipped by Close.
func (s *Scope) Bind(name string, b *Binding) error {
	if ex, ok := s.bindings[name]; ok && !ex.freed {
		return &LifecycleError{
			Code:    ErrCodeDuplicateBinding,
			Binding: name,
			Message: "name is already live in this scope",
		}
	}
	if b.freed {
		return &LifecycleError{
			Code:    ErrCodeUseAfterFree,
			Binding: name,
			Message: "binding referenced after deallocation",
		}
	}
	s.bindings[name] = b
	return nil
}

// Deallocate frees a binding owned by this scope. The current value must
// equal the asserted constant: erasing anything else is not reversible.
func (s *Scope) Deallocate(name string, expected domain.Value) error {
	b, ok := s.bindings[name]
	if !ok {
		return &LifecycleError{
			Code:    ErrCodeBindingNotFound,
			Binding: name,
			Message: "deallocation of a name this scope does not own",
		}
	}
	if b.freed {
		return &LifecycleError{
			Code:    ErrCodeUseAfterFree,
			Binding: name,
			Message: "binding deallocated twice",
		}
	}
	if !b.Val.Equal(expected) {
		return &LifecycleError{
			Code:    ErrCodeNonZeroDeallocation,
			Binding: name,
			Message: fmt.Sprintf("deallocation asserts %s but binding holds %s", expected, b.Val),
		}
	}
	b.freed = true
	for i, ob := range s.order {
		if ob == b {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close deallocates every binding still live in this scope, in
// reverse-allocation order, each against its domain zero. The first
// violation aborts and is returned; the scope is then in a broken state and
// must be discarded, mirroring the fatal-error policy of execution.
func (s *Scope) Close() error {
	for i := len(s.order) - 1; i >= 0; i-- {
		b := s.order[i]
		if err := s.Deallocate(b.Name, domain.ZeroOf(b.Val.Kind())); err != nil {
			return err
		}
	}
	return nil
}

// Live returns the live bindings in allocation order.
func (s *Scope) Live() []*Binding {
	out := make([]*Binding, len(s.order))
	copy(out, s.order)
	return out
}

// ClearAdjoints zeroes every live binding's adjoint shadow. Called before
// and after a gradient pass so adjoints never outlive it.
func (s *Scope) ClearAdjoints() {
	for _, b := range s.order {
		b.Adj = 0
	}
}
