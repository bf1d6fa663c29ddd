package alloc

// Family identifies an allocation strategy.
type Family uint8

const (
	// FamilyHeap is a general-purpose allocator with per-block free.
	FamilyHeap Family = iota + 1
	// FamilyArena is a bump allocator reclaimed in bulk.
	FamilyArena
)

// String returns the string representation of a Family.
func (f Family) String() string {
	switch f {
	case FamilyHeap:
		return "heap"
	case FamilyArena:
		return "arena"
	default:
		return "unknown"
	}
}

// Allocator hands out byte blocks from a fixed reservation.
//
// Alloc never returns nil for a positive size: running out of memory is an
// invariant violation. Free releases a block previously returned by Alloc on
// the same allocator; allocators that reclaim in bulk treat it as a no-op.
type Allocator interface {
	Alloc(size, align int) []byte
	Free(block []byte)
	Family() Family
}

// MemoryAcquirer charges reservations against an external memory budget.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// DefaultAlignment is the minimum alignment of every block.
const DefaultAlignment = 16
