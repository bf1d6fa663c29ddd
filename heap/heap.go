package heap

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dustin/go-humanize"
	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/conv"
)

// ErrInvalidCapacity is returned when the pool is too small or too large.
var ErrInvalidCapacity = alloc.ErrInvalidCapacity

// Stats is a snapshot of heap accounting.
type Stats struct {
	Capacity   int    // Pool size in bytes
	Usage      int    // Granted bytes currently live
	Peak       int    // Highest Usage observed
	LiveBlocks uint64 // Blocks allocated and not yet freed
	Allocs     uint64 // Historical: successful allocations
	Frees      uint64 // Historical: blocks released
	Reallocs   uint64 // Historical: Realloc calls
}

// Heap is a TLSF allocator over one fixed pool.
type Heap struct {
	res  *alloc.Reservation
	pool []byte
	base uintptr

	flBitmap uint64
	slBitmap [flIndexCount]uint32
	heads    [flIndexCount][slIndexCount]int

	usage int
	peak  int
	live  *roaring64.Bitmap

	allocs, frees, reallocs uint64

	logger  *slog.Logger
	metrics alloc.MetricsCollector
}

var _ alloc.Allocator = (*Heap)(nil)

// New reserves a pool of capacity bytes and seeds it with one free block.
func New(capacity int, opts ...Option) (*Heap, error) {
	o := options{backing: alloc.BackingMmap}
	for _, opt := range opts {
		opt(&o)
	}

	usable := capacity &^ (alignSize - 1)
	if usable < 2*headerSize+minBlockSize || usable-2*headerSize >= maxBlockSize {
		return nil, fmt.Errorf("heap: %w: %d bytes (need %d..%d)",
			ErrInvalidCapacity, capacity, 2*headerSize+minBlockSize, maxBlockSize+2*headerSize-alignSize)
	}

	res, err := alloc.Reserve(usable, o.backing, alloc.AccessRandom, o.acquirer)
	if err != nil {
		return nil, fmt.Errorf("heap: %w", err)
	}

	pool := res.Bytes()
	h := &Heap{
		res:     res,
		pool:    pool,
		base:    uintptr(unsafe.Pointer(unsafe.SliceData(pool))), //nolint:gosec // address used for alignment math only
		live:    roaring64.New(),
		logger:  alloc.DiscardLogger(o.logger),
		metrics: o.metrics,
	}
	if h.metrics == nil {
		h.metrics = alloc.NoopMetricsCollector{}
	}
	for fl := range h.heads {
		for sl := range h.heads[fl] {
			h.heads[fl][sl] = nilOff
		}
	}

	// One free block spanning the pool, then the sentinel.
	h.setWord(0, 0)
	h.setWord(8, uint64(usable-2*headerSize)|flagFree)
	sentinel := usable - headerSize
	h.setWord(sentinel, 0)
	h.setWord(sentinel+8, flagPrevFree)
	h.insertFree(0)

	h.logger.Debug("heap reserved",
		"capacity", humanize.IBytes(uint64(usable)),
		"backing", o.backing.String(),
	)
	return h, nil
}

// adjust rounds a request up to the allocation granule.
func (h *Heap) adjust(op string, size int) int {
	if size < 0 {
		alloc.Fatalf(h.logger, op, "negative size %d", size)
	}
	n, err := conv.AlignUp(size, alignSize)
	if err != nil || n > maxBlockSize {
		alloc.Fatalf(h.logger, op, "request of %d bytes exceeds the maximum block size %d", size, maxBlockSize)
	}
	return max(n, minBlockSize)
}

// Alloc returns a block of size bytes whose address is a multiple of align.
// align must be a power of two; alignments up to 16 take the unaligned fast
// path. Pool exhaustion is fatal.
func (h *Heap) Alloc(size, align int) []byte {
	const op = "heap.Alloc"
	if h.pool == nil {
		alloc.Fatalf(h.logger, op, "heap is closed")
	}
	if !conv.IsPowerOfTwo(align) {
		alloc.Fatalf(h.logger, op, "alignment %d is not a power of two", align)
	}

	n := h.adjust(op, size)
	var p int
	if align <= alignSize {
		b := h.locateFree(n)
		if b == nilOff {
			h.outOfMemory(op, size, align)
		}
		p = h.prepareUsed(b, n)
	} else {
		p = h.allocAligned(op, size, n, align)
	}

	return h.grant(op, p, size)
}

func (h *Heap) allocAligned(op string, size, n, align int) int {
	withGap, err := conv.AlignUp(n+align+gapMinimum, alignSize)
	if err != nil || withGap > maxBlockSize {
		alloc.Fatalf(h.logger, op, "request of %d bytes at alignment %d exceeds the maximum block size", size, align)
	}

	b := h.locateFree(withGap)
	if b == nilOff {
		h.outOfMemory(op, size, align)
	}

	ptr := h.base + uintptr(b+headerSize)
	aligned := alignAddr(ptr, align)
	gap := int(aligned - ptr)

	// A leading gap must be large enough to stand as a free block.
	if gap != 0 && gap < gapMinimum {
		offset := max(gapMinimum-gap, align)
		aligned = alignAddr(aligned+uintptr(offset), align)
		gap = int(aligned - ptr)
	}
	if gap != 0 {
		b = h.trimFreeLeading(b, gap)
	}

	p := h.prepareUsed(b, n)
	if (h.base+uintptr(p))&uintptr(align-1) != 0 {
		alloc.Fatalf(h.logger, op, "block at offset %d misses alignment %d", p, align)
	}
	return p
}

func alignAddr(addr uintptr, align int) uintptr {
	mask := uintptr(align - 1)
	return (addr + mask) &^ mask
}

// grant records a freshly prepared payload and slices it out of the pool.
func (h *Heap) grant(op string, p, size int) []byte {
	granted := h.size(p - headerSize)
	h.usage += granted
	if h.usage > h.peak {
		h.peak = h.usage
	}
	h.allocs++
	if !h.live.CheckedAdd(uint64(p / alignSize)) {
		alloc.Fatalf(h.logger, op, "block at offset %d handed out twice", p)
	}
	h.metrics.RecordAlloc(alloc.FamilyHeap, size, granted)
	return h.pool[p : p+size : p+granted]
}

func (h *Heap) outOfMemory(op string, size, align int) {
	alloc.Fatalf(h.logger, op,
		"out of memory: no free block for %d bytes (align %d), usage %s of %s",
		size, align, humanize.IBytes(uint64(h.usage)), humanize.IBytes(uint64(len(h.pool))))
}

// payloadOf maps a block back to its payload offset, or fails fatally when
// the block was not handed out by this heap or is no longer live.
func (h *Heap) payloadOf(op string, block []byte) int {
	if h.pool == nil {
		alloc.Fatalf(h.logger, op, "heap is closed")
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(block))) //nolint:gosec // pointer identity check only
	if addr < h.base || addr >= h.base+uintptr(len(h.pool)) {
		alloc.Fatalf(h.logger, op, "block %#x does not belong to this heap", addr)
	}
	p := int(addr - h.base)
	if p%alignSize != 0 || !h.live.Contains(uint64(p/alignSize)) {
		alloc.Fatalf(h.logger, op, "block at offset %d is not live (double free or interior pointer)", p)
	}
	return p
}

// Free returns a block to the pool and coalesces it with free neighbors.
// A zero-capacity slice is ignored.
func (h *Heap) Free(block []byte) {
	const op = "heap.Free"
	if cap(block) == 0 {
		return
	}
	p := h.payloadOf(op, block)
	b := p - headerSize

	granted := h.size(b)
	if granted > h.usage {
		alloc.Fatalf(h.logger, op, "usage underflow: freeing %d bytes with %d in use", granted, h.usage)
	}
	h.usage -= granted
	h.frees++
	h.live.Remove(uint64(p / alignSize))

	h.markFree(b)
	b = h.mergePrev(b)
	b = h.mergeNext(b)
	h.insertFree(b)

	h.metrics.RecordFree(alloc.FamilyHeap, granted)
}

// Realloc resizes a block, in place when the block or its free successor
// has room, otherwise by allocate-copy-free. A zero-capacity block behaves
// like Alloc; a zero size frees the block and returns nil. The result keeps
// the default 16-byte alignment.
func (h *Heap) Realloc(block []byte, size int) []byte {
	const op = "heap.Realloc"
	h.reallocs++
	if cap(block) == 0 {
		return h.Alloc(size, 1)
	}
	if size == 0 {
		h.Free(block)
		return nil
	}

	p := h.payloadOf(op, block)
	b := p - headerSize
	cur := h.size(b)
	n := h.adjust(op, size)
	nxt := h.next(b)

	if n > cur && (!h.isFree(nxt) || n > cur+headerSize+h.size(nxt)) {
		moved := h.Alloc(size, 1)
		copy(moved, block[:min(len(block), size)])
		h.Free(block)
		return moved
	}

	if n > cur {
		h.mergeNext(b)
		h.markUsed(b)
	}
	h.trimUsed(b, n)

	granted := h.size(b)
	h.usage += granted - cur
	if h.usage > h.peak {
		h.peak = h.usage
	}
	if granted > cur {
		h.metrics.RecordAlloc(alloc.FamilyHeap, size, granted-cur)
	} else if granted < cur {
		h.metrics.RecordFree(alloc.FamilyHeap, cur-granted)
	}
	return h.pool[p : p+size : p+granted]
}

// BlockSize returns the granted size of a live block.
func (h *Heap) BlockSize(block []byte) int {
	return h.size(h.payloadOf("heap.BlockSize", block) - headerSize)
}

// Family reports alloc.FamilyHeap.
func (h *Heap) Family() alloc.Family {
	return alloc.FamilyHeap
}

// Usage returns the granted bytes currently live.
func (h *Heap) Usage() int {
	return h.usage
}

// Capacity returns the pool size in bytes.
func (h *Heap) Capacity() int {
	return len(h.pool)
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	return Stats{
		Capacity:   len(h.pool),
		Usage:      h.usage,
		Peak:       h.peak,
		LiveBlocks: h.live.GetCardinality(),
		Allocs:     h.allocs,
		Frees:      h.frees,
		Reallocs:   h.reallocs,
	}
}

// Close releases the pool. Live blocks are reported and become invalid.
// It is idempotent.
func (h *Heap) Close() error {
	if h.pool == nil {
		return nil
	}
	if n := h.live.GetCardinality(); n > 0 {
		h.logger.Warn("heap closed with live blocks",
			"blocks", n,
			"usage", humanize.IBytes(uint64(h.usage)),
		)
	}
	h.logger.Debug("heap released",
		"capacity", humanize.IBytes(uint64(len(h.pool))),
		"peak", humanize.IBytes(uint64(h.peak)),
	)
	h.pool = nil
	h.live.Clear()
	return h.res.Close()
}
