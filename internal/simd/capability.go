package simd

import (
	"math/bits"
	"os"
	"strings"
)

// ISA identifies a group-matching kernel family.
type ISA uint8

const (
	// Generic represents the scalar byte loop.
	Generic ISA = iota
	// SWAR represents 64-bit word-parallel matching.
	SWAR
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case SWAR:
		return "swar"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "swar":
		return SWAR, true
	default:
		return Generic, false
	}
}

// EnvOverride names the environment variable that forces a kernel.
const EnvOverride = "SWISSALLOC_SIMD"

// Package-level state - initialized once at package init.
var (
	// activeISA is the selected kernel.
	activeISA ISA

	// hasOverride is true if SWISSALLOC_SIMD selected the kernel.
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasSSE2   bool // x86-64 baseline vector unit
	hasPOPCNT bool // x86-64 POPCNT for Mask.Count
	hasASIMD  bool // ARM64 NEON
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv(EnvOverride); override != "" {
		if isa, ok := ParseISA(override); ok && isISAAvailable(isa) {
			hasOverride = true
			activeISA = isa
			setKernels(isa)
			return
		}
		// Invalid override - fall through to auto-detection
	}

	activeISA = selectBestISA()
	setKernels(activeISA)
}

// isISAAvailable checks if a kernel can run on this platform.
func isISAAvailable(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case SWAR:
		return !forceGeneric && bits.UintSize == 64
	default:
		return false
	}
}

// selectBestISA chooses the fastest kernel for the current platform.
func selectBestISA() ISA {
	if isISAAvailable(SWAR) {
		return SWAR
	}
	return Generic
}

// ActiveISA returns the currently active kernel.
func ActiveISA() ISA {
	return activeISA
}

// IsOverridden returns true if SWISSALLOC_SIMD selected the kernel.
func IsOverridden() bool {
	return hasOverride
}

// HasSSE2 returns true if x86-64 SSE2 is available.
func HasSSE2() bool {
	return hasSSE2
}

// HasPOPCNT returns true if x86-64 POPCNT is available.
func HasPOPCNT() bool {
	return hasPOPCNT
}

// HasASIMD returns true if ARM64 NEON is available.
func HasASIMD() bool {
	return hasASIMD
}
