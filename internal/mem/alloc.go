package mem

import (
	"unsafe"
)

// Alignment is the default byte alignment (one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
func AllocAligned(size int) []byte {
	return AllocAlignedTo(size, Alignment)
}

// AllocAlignedTo allocates a byte slice of the given size whose first byte is
// aligned to align, which must be a power of two. It returns nil for
// non-positive sizes or invalid alignments.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAlignedTo(size, align int) []byte {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil
	}

	// Enough slack to shift the start pointer up to align-1 bytes.
	buf := make([]byte, size+align)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	mask := uintptr(align - 1)
	offset := (uintptr(align) - (addr & mask)) & mask

	// Full slice expression keeps appends from spilling into the slack.
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsAligned reports whether the first byte of b sits on an align boundary.
func IsAligned(b []byte, align int) bool {
	if cap(b) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b))) //nolint:gosec // address inspection only
	return addr&uintptr(align-1) == 0
}
