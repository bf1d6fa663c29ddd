// Package simd provides the control-group kernels of the Swiss table.
//
// A group is a 16-byte window over the control array. The kernels compare all
// 16 bytes at once and return a Mask with bit p set when byte p matches:
//
//   - EmptyMask: bytes equal to Empty (0xFF)
//   - MatchMask: bytes equal to a 7-bit tag
//   - PresentMask: bytes holding any tag (high bit clear)
//
// # Kernels
//
//   - SWAR: two 64-bit words per group, branch-free byte arithmetic (64-bit targets)
//   - Generic: byte-at-a-time scalar loop
//
// Runtime CPU feature detection selects the kernel. Set SWISSALLOC_SIMD=generic
// or build with -tags noasm to force the scalar fallback.
package simd
