//go:build noasm

package simd

const forceGeneric = true
