// Package ir defines the reversible program representation the runtime
// executes: atomic statements over named bindings, control-flow nodes whose
// reversal is structural, and the operation tables that make inversion a
// total function.
//
// ARCHITECTURE:
//
// A Program is a tree of sealed Node values. It owns no state - it operates
// on bindings passed to it through a store.Scope. Everything the runtime
// needs to run a program backwards is resolved at construction time:
//
//   - every Op registers its strict inverse in the Ops table;
//   - every differentiable (Op, Fn) pair registers an adjoint rule flag
//     checked before any gradient run;
//   - admissibility (which ops are exactly invertible over which numeric
//     domain) is a static property of the tables, so an invalid program is
//     rejected by the compiler before execution, never mid-run.
//
// Inversion is purely structural: Invert maps each statement to its inverse
// operation and reverses composite bodies, so invert(invert(n)) is
// syntactically identical to n. No execution tape exists anywhere.
package ir
