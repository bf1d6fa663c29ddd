// Package conv provides overflow-checked integer conversion and arithmetic.
//
// Capacity doubling, block sizing and alignment rounding all flow through
// these helpers so that an overflow surfaces as an error instead of a
// silently wrapped size.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
