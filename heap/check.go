package heap

import (
	"errors"
	"fmt"
)

// ErrCorrupted is returned by Validate when the pool structure is inconsistent.
var ErrCorrupted = errors.New("heap: corrupted pool")

// Validate walks every physical block and every free list and reports the
// first inconsistency found. It is O(pool blocks) and meant for tests and
// debugging.
func (h *Heap) Validate() error {
	if h.pool == nil {
		return nil
	}

	sentinel := len(h.pool) - headerSize
	prevFree := false
	prev := nilOff
	used := 0
	usedBlocks := uint64(0)
	freeBlocks := 0

	for b := 0; b != sentinel; b = h.next(b) {
		if b < 0 || b > sentinel || b%alignSize != 0 {
			return fmt.Errorf("%w: block offset %d out of range", ErrCorrupted, b)
		}
		if h.isPrevFree(b) != prevFree {
			return fmt.Errorf("%w: block %d prev-free flag is %v, want %v", ErrCorrupted, b, h.isPrevFree(b), prevFree)
		}
		if prevFree && h.prevPhys(b) != prev {
			return fmt.Errorf("%w: block %d prev link %d, want %d", ErrCorrupted, b, h.prevPhys(b), prev)
		}
		size := h.size(b)
		if size < minBlockSize || size%alignSize != 0 {
			return fmt.Errorf("%w: block %d has invalid size %d", ErrCorrupted, b, size)
		}

		free := h.isFree(b)
		if free {
			if prevFree {
				return fmt.Errorf("%w: adjacent free blocks at %d", ErrCorrupted, b)
			}
			freeBlocks++
		} else {
			used += size
			usedBlocks++
			if !h.live.Contains(uint64((b + headerSize) / alignSize)) {
				return fmt.Errorf("%w: used block %d is not tracked as live", ErrCorrupted, b)
			}
		}
		prevFree = free
		prev = b
	}

	if h.isPrevFree(sentinel) != prevFree {
		return fmt.Errorf("%w: sentinel prev-free flag is stale", ErrCorrupted)
	}
	if used != h.usage {
		return fmt.Errorf("%w: used blocks hold %d bytes, usage is %d", ErrCorrupted, used, h.usage)
	}
	if usedBlocks != h.live.GetCardinality() {
		return fmt.Errorf("%w: %d used blocks, %d live", ErrCorrupted, usedBlocks, h.live.GetCardinality())
	}

	listed := 0
	for fl := 0; fl < flIndexCount; fl++ {
		flSet := h.flBitmap&(1<<fl) != 0
		if flSet != (h.slBitmap[fl] != 0) {
			return fmt.Errorf("%w: first-level bitmap disagrees at %d", ErrCorrupted, fl)
		}
		for sl := 0; sl < slIndexCount; sl++ {
			head := h.heads[fl][sl]
			if (h.slBitmap[fl]&(1<<sl) != 0) != (head != nilOff) {
				return fmt.Errorf("%w: second-level bitmap disagrees at %d/%d", ErrCorrupted, fl, sl)
			}
			for b, p := head, nilOff; b != nilOff; p, b = b, h.nextFree(b) {
				if !h.isFree(b) {
					return fmt.Errorf("%w: listed block %d is not free", ErrCorrupted, b)
				}
				if h.prevFree(b) != p {
					return fmt.Errorf("%w: block %d back link %d, want %d", ErrCorrupted, b, h.prevFree(b), p)
				}
				if gf, gs := mapping(h.size(b)); gf != fl || gs != sl {
					return fmt.Errorf("%w: block %d of size %d in bin %d/%d, want %d/%d",
						ErrCorrupted, b, h.size(b), fl, sl, gf, gs)
				}
				listed++
				if listed > freeBlocks {
					return fmt.Errorf("%w: free lists hold more blocks than the pool", ErrCorrupted)
				}
			}
		}
	}
	if listed != freeBlocks {
		return fmt.Errorf("%w: %d free blocks, %d listed", ErrCorrupted, freeBlocks, listed)
	}
	return nil
}
