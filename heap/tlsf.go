package heap

import (
	"encoding/binary"
	"math/bits"
)

const (
	alignSizeLog2 = 4
	alignSize     = 1 << alignSizeLog2

	slIndexCountLog2 = 4
	slIndexCount     = 1 << slIndexCountLog2

	flIndexMax   = 40
	flIndexShift = slIndexCountLog2 + alignSizeLog2
	flIndexCount = flIndexMax - flIndexShift + 1

	// Sizes below smallBlockSize live in first-level bin 0, split linearly.
	smallBlockSize = 1 << flIndexShift

	headerSize   = 16
	minBlockSize = 16
	maxBlockSize = 1 << flIndexMax

	// gapMinimum is the smallest leading gap that can stand as a free block.
	gapMinimum = headerSize + minBlockSize

	flagFree     = 1
	flagPrevFree = 2
	flagMask     = flagFree | flagPrevFree

	nilOff  = -1
	nilLink = ^uint64(0)
)

// mapping returns the bin a block of the given size belongs to.
func mapping(size int) (fl, sl int) {
	if size < smallBlockSize {
		return 0, size / (smallBlockSize / slIndexCount)
	}
	f := bits.Len(uint(size)) - 1
	sl = (size >> (f - slIndexCountLog2)) ^ slIndexCount
	fl = f - (flIndexShift - 1)
	return fl, sl
}

// mappingSearch rounds size up to the next bin boundary so that any block in
// the returned bin (or above) satisfies the request.
func mappingSearch(size int) (fl, sl int) {
	if size >= smallBlockSize {
		round := 1<<(bits.Len(uint(size))-1-slIndexCountLog2) - 1
		size += round
	}
	return mapping(size)
}

func (h *Heap) word(off int) uint64 {
	return binary.LittleEndian.Uint64(h.pool[off : off+8])
}

func (h *Heap) setWord(off int, v uint64) {
	binary.LittleEndian.PutUint64(h.pool[off:off+8], v)
}

func (h *Heap) size(b int) int {
	return int(h.word(b+8) &^ flagMask)
}

func (h *Heap) setSize(b, size int) {
	h.setWord(b+8, uint64(size)|h.word(b+8)&flagMask)
}

func (h *Heap) isFree(b int) bool {
	return h.word(b+8)&flagFree != 0
}

func (h *Heap) isPrevFree(b int) bool {
	return h.word(b+8)&flagPrevFree != 0
}

func (h *Heap) setFlag(b int, flag uint64, on bool) {
	w := h.word(b + 8)
	if on {
		w |= flag
	} else {
		w &^= flag
	}
	h.setWord(b+8, w)
}

func (h *Heap) prevPhys(b int) int {
	return int(h.word(b))
}

func (h *Heap) next(b int) int {
	return b + headerSize + h.size(b)
}

// linkNext records b as the previous physical block of its successor.
func (h *Heap) linkNext(b int) int {
	n := h.next(b)
	h.setWord(n, uint64(b))
	return n
}

func (h *Heap) markFree(b int) {
	n := h.linkNext(b)
	h.setFlag(n, flagPrevFree, true)
	h.setFlag(b, flagFree, true)
}

func (h *Heap) markUsed(b int) {
	n := h.next(b)
	h.setFlag(n, flagPrevFree, false)
	h.setFlag(b, flagFree, false)
}

func toOff(link uint64) int {
	if link == nilLink {
		return nilOff
	}
	return int(link)
}

func toLink(off int) uint64 {
	if off == nilOff {
		return nilLink
	}
	return uint64(off)
}

func (h *Heap) nextFree(b int) int        { return toOff(h.word(b + headerSize)) }
func (h *Heap) prevFree(b int) int        { return toOff(h.word(b + headerSize + 8)) }
func (h *Heap) setNextFree(b, n int)      { h.setWord(b+headerSize, toLink(n)) }
func (h *Heap) setPrevFree(b, p int)      { h.setWord(b+headerSize+8, toLink(p)) }
func (h *Heap) canSplit(b, size int) bool { return h.size(b) >= size+headerSize+minBlockSize }

// searchSuitable finds the first non-empty bin at or above (fl, sl).
func (h *Heap) searchSuitable(fl, sl int) (int, int, int) {
	slMap := h.slBitmap[fl] & (^uint32(0) << sl)
	if slMap == 0 {
		flMap := h.flBitmap & (^uint64(0) << (fl + 1))
		if flMap == 0 {
			return nilOff, 0, 0
		}
		fl = bits.TrailingZeros64(flMap)
		slMap = h.slBitmap[fl]
	}
	sl = bits.TrailingZeros32(slMap)
	return h.heads[fl][sl], fl, sl
}

func (h *Heap) insertFree(b int) {
	fl, sl := mapping(h.size(b))
	cur := h.heads[fl][sl]
	h.setNextFree(b, cur)
	h.setPrevFree(b, nilOff)
	if cur != nilOff {
		h.setPrevFree(cur, b)
	}
	h.heads[fl][sl] = b
	h.flBitmap |= 1 << fl
	h.slBitmap[fl] |= 1 << sl
}

func (h *Heap) removeFree(b, fl, sl int) {
	prev, next := h.prevFree(b), h.nextFree(b)
	if next != nilOff {
		h.setPrevFree(next, prev)
	}
	if prev != nilOff {
		h.setNextFree(prev, next)
	}
	if h.heads[fl][sl] == b {
		h.heads[fl][sl] = next
		if next == nilOff {
			h.slBitmap[fl] &^= 1 << sl
			if h.slBitmap[fl] == 0 {
				h.flBitmap &^= 1 << fl
			}
		}
	}
}

func (h *Heap) removeFreeBlock(b int) {
	fl, sl := mapping(h.size(b))
	h.removeFree(b, fl, sl)
}

// split carves a free remainder off the tail of b, leaving b with size bytes.
func (h *Heap) split(b, size int) int {
	r := b + headerSize + size
	h.setWord(r+8, uint64(h.size(b)-size-headerSize))
	h.setSize(b, size)
	h.markFree(r)
	return r
}

// absorb merges b into its physical predecessor prev.
func (h *Heap) absorb(prev, b int) int {
	h.setSize(prev, h.size(prev)+h.size(b)+headerSize)
	h.linkNext(prev)
	return prev
}

func (h *Heap) mergePrev(b int) int {
	if h.isPrevFree(b) {
		p := h.prevPhys(b)
		h.removeFreeBlock(p)
		b = h.absorb(p, b)
	}
	return b
}

func (h *Heap) mergeNext(b int) int {
	n := h.next(b)
	if h.isFree(n) {
		h.removeFreeBlock(n)
		b = h.absorb(b, n)
	}
	return b
}

// trimFree returns the tail of a free block beyond size to the free lists.
func (h *Heap) trimFree(b, size int) {
	if h.canSplit(b, size) {
		r := h.split(b, size)
		h.linkNext(b)
		h.setFlag(r, flagPrevFree, true)
		h.insertFree(r)
	}
}

// trimUsed returns the tail of a used block beyond size to the free lists.
func (h *Heap) trimUsed(b, size int) {
	if h.canSplit(b, size) {
		r := h.split(b, size)
		h.linkNext(b)
		h.setFlag(r, flagPrevFree, false)
		r = h.mergeNext(r)
		h.insertFree(r)
	}
}

// trimFreeLeading frees the first gap bytes of b and returns the block that
// starts right after them.
func (h *Heap) trimFreeLeading(b, gap int) int {
	r := b
	if h.canSplit(b, gap-headerSize) {
		r = h.split(b, gap-headerSize)
		h.setFlag(r, flagPrevFree, true)
		h.linkNext(b)
		h.insertFree(b)
	}
	return r
}

// locateFree unlinks and returns a free block of at least size bytes.
func (h *Heap) locateFree(size int) int {
	fl, sl := mappingSearch(size)
	if fl >= flIndexCount {
		return nilOff
	}
	b, fl, sl := h.searchSuitable(fl, sl)
	if b == nilOff {
		return nilOff
	}
	h.removeFree(b, fl, sl)
	return b
}

// prepareUsed trims b to size, marks it used and returns its payload offset.
func (h *Heap) prepareUsed(b, size int) int {
	h.trimFree(b, size)
	h.markUsed(b)
	return b + headerSize
}
