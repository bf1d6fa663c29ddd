package arena

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/conv"
)

// ErrInvalidCapacity is returned when the requested buffer size is not positive.
var ErrInvalidCapacity = alloc.ErrInvalidCapacity

// Mark is a captured offset. Rewinding to it with CutTo reclaims every
// allocation made after it was taken.
type Mark int

// Stats tracks arena memory usage.
type Stats struct {
	Capacity    int    // Buffer size in bytes
	Offset      int    // Current bump offset
	Peak        int    // Highest offset ever reached
	BytesWasted int    // Alignment padding since the last rewind to zero
	TotalAllocs uint64 // Historical: total allocations
	Rewinds     uint64 // Historical: CutTo/Reset calls that reclaimed memory
}

// Arena is a bump allocator over one fixed, 16-byte aligned buffer.
type Arena struct {
	res    *alloc.Reservation
	buf    []byte
	base   uintptr
	offset int

	peak    int
	wasted  int
	allocs  uint64
	rewinds uint64

	logger  *slog.Logger
	metrics alloc.MetricsCollector
}

var _ alloc.Allocator = (*Arena)(nil)

// New reserves a buffer of capacity bytes.
func New(capacity int, opts ...Option) (*Arena, error) {
	o := options{backing: alloc.BackingMmap}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := alloc.Reserve(capacity, o.backing, alloc.AccessSequential, o.acquirer)
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	buf := res.Bytes()
	a := &Arena{
		res:     res,
		buf:     buf,
		base:    uintptr(unsafe.Pointer(unsafe.SliceData(buf))), //nolint:gosec // address used for alignment math only
		logger:  alloc.DiscardLogger(o.logger),
		metrics: o.metrics,
	}
	if a.metrics == nil {
		a.metrics = alloc.NoopMetricsCollector{}
	}

	a.logger.Debug("arena reserved",
		"capacity", humanize.IBytes(uint64(capacity)),
		"backing", o.backing.String(),
	)
	return a, nil
}

// Alloc returns a block of size bytes whose address is a multiple of align.
// align must be a power of two. Overflowing the buffer is fatal.
func (a *Arena) Alloc(size, align int) []byte {
	if a.buf == nil {
		alloc.Fatalf(a.logger, "arena.Alloc", "arena is closed")
	}
	if size < 0 {
		alloc.Fatalf(a.logger, "arena.Alloc", "negative size %d", size)
	}
	if !conv.IsPowerOfTwo(align) {
		alloc.Fatalf(a.logger, "arena.Alloc", "alignment %d is not a power of two", align)
	}

	// Align the absolute address so alignments above the buffer's own
	// alignment are honored too.
	mask := uintptr(align - 1)
	addr := a.base + uintptr(a.offset)
	padding := int((uintptr(align) - addr&mask) & mask)

	start := a.offset + padding
	if start < a.offset || size > len(a.buf)-start {
		alloc.Fatalf(a.logger, "arena.Alloc",
			"out of memory: need %d bytes (align %d) at offset %d, capacity %d",
			size, align, a.offset, len(a.buf))
	}
	end := start + size

	a.offset = end
	a.wasted += padding
	a.allocs++
	if end > a.peak {
		a.peak = end
	}
	a.metrics.RecordAlloc(alloc.FamilyArena, size, size+padding)

	return a.buf[start:end:end]
}

// Free is a no-op. Arena memory is reclaimed with CutTo or Reset.
func (a *Arena) Free([]byte) {}

// Family reports alloc.FamilyArena.
func (a *Arena) Family() alloc.Family {
	return alloc.FamilyArena
}

// Mark captures the current offset.
func (a *Arena) Mark() Mark {
	return Mark(a.offset)
}

// CutTo rewinds the offset to m, reclaiming everything allocated since.
// A mark outside [0, Capacity] is fatal.
func (a *Arena) CutTo(m Mark) {
	if m < 0 || int(m) > len(a.buf) {
		alloc.Fatalf(a.logger, "arena.CutTo", "mark %d outside [0, %d]", m, len(a.buf))
	}

	reclaimed := a.offset - int(m)
	a.offset = int(m)
	if a.offset == 0 {
		a.wasted = 0
	}
	if reclaimed > 0 {
		a.rewinds++
		a.metrics.RecordReset(alloc.FamilyArena, reclaimed)
	}
}

// Reset rewinds to the start of the buffer. Equivalent to CutTo(0).
func (a *Arena) Reset() {
	a.CutTo(0)
}

// Scope runs fn and then rewinds to the offset held before fn started,
// even when fn panics.
func (a *Arena) Scope(fn func()) {
	m := a.Mark()
	defer a.CutTo(m)
	fn()
}

// Offset returns the current bump offset.
func (a *Arena) Offset() int {
	return a.offset
}

// Capacity returns the buffer size in bytes.
func (a *Arena) Capacity() int {
	return len(a.buf)
}

// Available returns the bytes left before the buffer is exhausted, ignoring padding.
func (a *Arena) Available() int {
	return len(a.buf) - a.offset
}

// Peak returns the highest offset ever reached.
func (a *Arena) Peak() int {
	return a.peak
}

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Capacity:    len(a.buf),
		Offset:      a.offset,
		Peak:        a.peak,
		BytesWasted: a.wasted,
		TotalAllocs: a.allocs,
		Rewinds:     a.rewinds,
	}
}

// Close releases the buffer. Blocks handed out earlier must not be used
// afterwards. It is idempotent.
func (a *Arena) Close() error {
	if a.buf == nil {
		return nil
	}
	a.logger.Debug("arena released",
		"capacity", humanize.IBytes(uint64(len(a.buf))),
		"peak", humanize.IBytes(uint64(a.peak)),
	)
	a.buf = nil
	a.offset = 0
	return a.res.Close()
}
