// Package domain defines the numeric value types the runtime is allowed to
// mutate reversibly, together with their invertibility contracts.
//
// Three kinds exist:
//
//   - Int: 64-bit integer. += and -= are exact inverses. Overflow traps
//     (never wraps) so that un-execution always sees the value execution left.
//   - Fixed: signed fixed-point with 32 fraction bits (Q31.32). += and -= are
//     exact inverses. Direct *= and /= are NOT admissible: rounding makes
//     them lossy. Products may only appear inside increments (t += a*b),
//     which reverse exactly because the identical rounded increment is
//     subtracted on the way back.
//   - ULog: logarithmic representation storing log2|x| as a Fixed plus sign
//     and zero tags. *= and /= are exact inverses here because they reduce
//     to += and -= on the stored logarithm.
//
// Conversions between Fixed and ULog use a pure-integer shift-and-square
// binary logarithm and are accurate to Epsilon. Conversion statements are
// still exactly un-computable: uncompute re-runs the same deterministic
// encoding, so the pairing contract does not depend on conversion precision.
//
// CRITICAL: no value in this package carries a float. Floats appear in the
// runtime only as ephemeral adjoint shadows during differentiation; reversible
// state is integer-exact so the round-trip law can hold bit-for-bit.
package domain
