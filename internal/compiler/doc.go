// Package compiler performs every check the runtime refuses to do at run
// time: a reversible program is validated in full before its first statement
// executes, so an invalid program is rejected at construction, never
// mid-flight where a broken invariant would make un-execution unsafe.
//
// Two passes exist:
//
//   - Validate rejects programs containing operations outside their numeric
//     domain's reversible set (IRREVERSIBLE_OP), references to undeclared
//     bindings, kind disagreements between targets and operands, writes to
//     loop-control variables, and malformed nodes. All errors are collected,
//     not fail-fast, and each carries a node path such as body[2].then[0].
//
//   - CheckDifferentiable rejects programs containing any statement without
//     a registered adjoint-propagation rule (NO_ADJOINT_RULE). The gradient
//     engine runs it before seeding any adjoint.
//
// The package also decodes declarative program files (CUE) into ir trees;
// the runtime itself only ever consumes the already-validated structure.
package compiler
