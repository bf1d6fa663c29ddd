package alloc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/swissalloc/internal/mem"
	"github.com/hupe1980/swissalloc/internal/mmap"
)

// ErrInvalidCapacity is returned when a reservation size is not positive.
var ErrInvalidCapacity = errors.New("invalid capacity")

// Backing selects where a reservation's memory comes from.
type Backing uint8

const (
	// BackingMmap reserves an anonymous mapping outside the Go heap.
	BackingMmap Backing = iota
	// BackingGo carves the reservation from an aligned Go byte slice.
	BackingGo
)

// String returns the string representation of a Backing.
func (b Backing) String() string {
	switch b {
	case BackingMmap:
		return "mmap"
	case BackingGo:
		return "go"
	default:
		return "unknown"
	}
}

// ParseBacking parses a string into a Backing.
func ParseBacking(s string) (Backing, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mmap", "":
		return BackingMmap, true
	case "go", "heap":
		return BackingGo, true
	default:
		return BackingMmap, false
	}
}

// Access hints how a reservation will be touched.
type Access uint8

const (
	// AccessRandom suits free-list allocators.
	AccessRandom Access = iota
	// AccessSequential suits bump allocators.
	AccessSequential
)

// Reservation is a fixed, zeroed byte buffer owned by one allocator.
type Reservation struct {
	buf      []byte
	mapping  *mmap.Mapping
	acquirer MemoryAcquirer
	charged  int64
	backing  Backing
}

// Reserve obtains size bytes aligned to at least DefaultAlignment. When
// acquirer is non-nil the size is charged against it first and released by
// Close.
func Reserve(size int, backing Backing, access Access, acquirer MemoryAcquirer) (*Reservation, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, size)
	}

	r := &Reservation{backing: backing, acquirer: acquirer}
	if acquirer != nil {
		if err := acquirer.AcquireMemory(int64(size)); err != nil {
			return nil, fmt.Errorf("reserve %d bytes: %w", size, err)
		}
		r.charged = int64(size)
	}

	switch backing {
	case BackingGo:
		r.buf = mem.AllocAligned(size)
	default:
		m, err := mmap.MapAnon(size)
		if err != nil {
			r.release()
			return nil, err
		}
		pattern := mmap.AccessRandom
		if access == AccessSequential {
			pattern = mmap.AccessSequential
		}
		_ = m.Advise(pattern)
		r.mapping = m
		r.buf = m.Bytes()[:size:size]
	}

	return r, nil
}

// Bytes returns the reserved buffer. It is nil after Close.
func (r *Reservation) Bytes() []byte {
	return r.buf
}

// Backing returns where the memory came from.
func (r *Reservation) Backing() Backing {
	return r.backing
}

// Close returns the memory to the operating system (or the Go heap) and
// releases the budget charge. It is idempotent.
func (r *Reservation) Close() error {
	if r.buf == nil {
		return nil
	}
	r.buf = nil
	var err error
	if r.mapping != nil {
		err = r.mapping.Close()
		r.mapping = nil
	}
	r.release()
	return err
}

func (r *Reservation) release() {
	if r.acquirer != nil && r.charged > 0 {
		r.acquirer.ReleaseMemory(r.charged)
		r.charged = 0
	}
}
