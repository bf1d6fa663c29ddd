package conv

import (
	"fmt"
	"math"
	"math/bits"
)

// IntToUint64 converts int to uint64 safely.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint64 (negative)", v)
	}
	return uint64(v), nil
}

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int (too large)", v)
	}
	return int(v), nil
}

// MulInt returns a*b for non-negative operands, or an error on overflow.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("integer overflow: %d * %d (negative operand)", a, b)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return int(lo), nil
}

// AddInt returns a+b for non-negative operands, or an error on overflow.
func AddInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("integer overflow: %d + %d (negative operand)", a, b)
	}
	if a > math.MaxInt-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// AlignUp rounds v up to a multiple of align, which must be a power of two.
func AlignUp(v, align int) (int, error) {
	if align <= 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("invalid alignment: %d is not a power of two", align)
	}
	s, err := AddInt(v, align-1)
	if err != nil {
		return 0, err
	}
	return s &^ (align - 1), nil
}

// NextPowerOfTwo returns the smallest power of two >= v (1 for v <= 1).
func NextPowerOfTwo(v int) (int, error) {
	if v <= 1 {
		return 1, nil
	}
	shift := bits.Len64(uint64(v - 1))
	if shift >= bits.UintSize-1 {
		return 0, fmt.Errorf("integer overflow: no power of two >= %d fits in int", v)
	}
	return 1 << shift, nil
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
