//go:build !noasm

package simd

const forceGeneric = false
