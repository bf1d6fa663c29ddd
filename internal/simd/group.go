package simd

import "math/bits"

const (
	// GroupWidth is the number of control bytes compared as one unit.
	GroupWidth = 16

	// Empty marks a slot that has never held an entry.
	Empty byte = 0xFF
	// Deleted is the tombstone value. It is reserved and never written.
	Deleted byte = 0x80

	// TagMask keeps the 7 bits of a present tag.
	TagMask byte = 0x7F
)

// Mask has bit p set when control byte p of a group matched.
type Mask uint16

// Any reports whether any bit is set.
func (m Mask) Any() bool { return m != 0 }

// Lowest returns the index of the lowest set bit. m must be non-zero.
func (m Mask) Lowest() int { return bits.TrailingZeros16(uint16(m)) }

// ClearLowest returns m without its lowest set bit.
func (m Mask) ClearLowest() Mask { return m & (m - 1) }

// Count returns the number of set bits.
func (m Mask) Count() int { return bits.OnesCount16(uint16(m)) }

// Kernel function pointers - set once at init.
var (
	kernelEmpty   = emptyMaskGeneric
	kernelMatch   = matchMaskGeneric
	kernelPresent = presentMaskGeneric
)

func setKernels(isa ISA) {
	switch isa {
	case SWAR:
		kernelEmpty = emptyMaskSWAR
		kernelMatch = matchMaskSWAR
		kernelPresent = presentMaskSWAR
	default:
		kernelEmpty = emptyMaskGeneric
		kernelMatch = matchMaskGeneric
		kernelPresent = presentMaskGeneric
	}
}

// EmptyMask returns the bytes of the group equal to Empty.
//
// SAFETY: Assumes len(ctrl) >= GroupWidth. Caller MUST slice a full group.
func EmptyMask(ctrl []byte) Mask {
	return kernelEmpty(ctrl)
}

// MatchMask returns the bytes of the group equal to tag (0..127).
//
// SAFETY: Assumes len(ctrl) >= GroupWidth.
func MatchMask(ctrl []byte, tag byte) Mask {
	return kernelMatch(ctrl, tag)
}

// PresentMask returns the bytes of the group holding a tag.
//
// SAFETY: Assumes len(ctrl) >= GroupWidth.
func PresentMask(ctrl []byte) Mask {
	return kernelPresent(ctrl)
}

// Tag extracts the 7-bit control tag from a 64-bit hash (its top 7 bits).
func Tag(hash uint64) byte {
	return byte(hash >> 57)
}
