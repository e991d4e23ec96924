// Package store implements the variable store: the ownership and lifecycle
// of every binding a reversible program touches.
//
// A Scope owns an ordered set of bindings. Argument bindings are allocated
// by the caller before execution; ancilla bindings are allocated and
// deallocated inside the program's own execution. A binding exists only
// between its allocation and deallocation events - referencing it outside
// that window is a lifecycle error, never a silent nil.
//
// Deallocation is the reversibility chokepoint: erasing a value that is not
// a known constant is not invertible, so Deallocate only succeeds when the
// current value equals the constant the caller asserts. Ancillas still live
// when a scope exits are deallocated automatically in reverse-allocation
// order under the same contract (Close).
//
// Scopes are exclusively owned by the executing call stack frame; nothing in
// this package is safe for concurrent use, matching the runtime's
// single-writer execution model.
package store
