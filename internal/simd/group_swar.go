package simd

import "encoding/binary"

const (
	lsbs = 0x0101010101010101
	msbs = 0x8080808080808080
	low7 = 0x7f7f7f7f7f7f7f7f

	// gather moves bit 8k of a word to bit 56+k.
	gather = 0x0102040810204080
)

// compress packs the per-byte high bits of w into the low 8 bits.
func compress(w uint64) uint64 {
	return ((w >> 7) * gather) >> 56
}

func words(ctrl []byte) (uint64, uint64) {
	_ = ctrl[GroupWidth-1]
	return binary.LittleEndian.Uint64(ctrl[0:8]), binary.LittleEndian.Uint64(ctrl[8:16])
}

func join(lo, hi uint64) Mask {
	return Mask(compress(lo) | compress(hi)<<8)
}

// emptyWord flags bytes with both bit 7 and bit 0 set. Among control values
// (0xFF, 0x80, 0x00..0x7F) only Empty qualifies.
func emptyWord(w uint64) uint64 {
	return w & (w << 7) & msbs
}

// zeroWord flags bytes equal to zero without cross-byte carries.
func zeroWord(v uint64) uint64 {
	t := (v & low7) + low7
	return ^(t | v | low7) & msbs
}

func emptyMaskSWAR(ctrl []byte) Mask {
	lo, hi := words(ctrl)
	return join(emptyWord(lo), emptyWord(hi))
}

func matchMaskSWAR(ctrl []byte, tag byte) Mask {
	lo, hi := words(ctrl)
	pattern := lsbs * uint64(tag)
	return join(zeroWord(lo^pattern), zeroWord(hi^pattern))
}

func presentMaskSWAR(ctrl []byte) Mask {
	lo, hi := words(ctrl)
	return join(^lo&msbs, ^hi&msbs)
}
