// Package engine executes reversible programs: forward, backward, and
// backward with adjoint accumulation.
//
// ARCHITECTURE:
//
// Single-Writer Walk:
// Each execution walks the program tree in a single goroutine. This ensures:
// - Deterministic statement order (the journal replays identically)
// - Exact inverse traversal (backward visits the forward steps reversed)
// - Simple reasoning about binding lifecycles
//
// Execution Flow:
// 1. Run/RunInverse/Gradient build a per-execution walk (clock + mode)
// 2. The walk dispatches on node type: statement, block, for, if, while,
//    routine, call
// 3. Statements mutate bindings in the scope through the closed operation
//    table in package ir
// 4. Each statement is stamped with a monotonic seq and reported to the
//    Observer (journal or test recorder)
//
// Backward execution is not a separate interpreter: RunInverse walks the
// structurally inverted program with the same forward semantics. Gradient
// additionally propagates adjoints through each undone statement's local
// derivative rule, so no tape is ever recorded.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All steps stamped with a monotonic seq counter from Clock.Next().
// Never wall-clock timestamps.
//
// Fatal Errors:
// Every runtime error aborts the execution. A program that broke a binding
// or predicate invariant cannot be trusted to un-execute, so nothing is
// retried and the scope must be discarded.
package engine
