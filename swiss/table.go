package swiss

import (
	"log/slog"
	"math/rand/v2"
	"time"
	"unsafe"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/conv"
	"github.com/hupe1980/swissalloc/internal/hash"
	"github.com/hupe1980/swissalloc/internal/simd"
	"golang.org/x/time/rate"
)

const (
	// GroupWidth is the number of slots probed as one unit.
	GroupWidth = simd.GroupWidth

	// Empty marks a slot that has never held an entry.
	Empty = simd.Empty
	// Deleted is the reserved tombstone value. No operation writes it.
	Deleted = simd.Deleted

	// MinCapacity is the smallest table capacity.
	MinCapacity = GroupWidth
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Table maps fixed-size keys to fixed-size values inside one allocator block.
type Table[K comparable, V any] struct {
	block   []byte
	ctrl    []byte
	entries []entry[K, V]

	capacity  int
	slotsLeft int
	length    int

	alloc     alloc.Allocator
	hash      hash.Func
	keySize   int
	entrySize int

	stopAtEmpty bool
	destroyed   bool

	logger  *slog.Logger
	metrics alloc.MetricsCollector
	growLog rate.Sometimes
}

// New creates a table with room for at least initialCapacity slots, bound to a.
//
// The capacity is rounded up to a power of two of at least 16. Requests that
// are not already a power of two are logged at warn level, since every probe
// masks with capacity-1.
func New[K comparable, V any](initialCapacity int, a alloc.Allocator, opts ...Option) (*Table[K, V], error) {
	if a == nil {
		return nil, ErrNilAllocator
	}
	if err := checkTypes[K, V](); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Uint64()
	}

	t := &Table[K, V]{
		alloc:       a,
		hash:        hash.New(o.algorithm, o.seed),
		keySize:     int(unsafe.Sizeof(*new(K))),
		entrySize:   int(unsafe.Sizeof(entry[K, V]{})),
		stopAtEmpty: o.stopAtEmpty,
		logger:      alloc.DiscardLogger(o.logger),
		metrics:     o.metrics,
		growLog:     rate.Sometimes{First: 3, Interval: time.Second},
	}
	if t.metrics == nil {
		t.metrics = alloc.NoopMetricsCollector{}
	}

	t.allocate(t.roundCapacity(initialCapacity))
	return t, nil
}

func (t *Table[K, V]) roundCapacity(n int) int {
	const op = "swiss.New"
	if n < MinCapacity {
		n = MinCapacity
	}
	grouped, err := conv.AlignUp(n, GroupWidth)
	if err != nil {
		alloc.Fatalf(t.logger, op, "capacity %d: %v", n, err)
	}
	c, err := conv.NextPowerOfTwo(grouped)
	if err != nil {
		alloc.Fatalf(t.logger, op, "capacity %d: %v", n, err)
	}
	if c != grouped {
		t.logger.Warn("table capacity rounded up to a power of two",
			"requested", n,
			"capacity", c,
		)
	}
	return c
}

// budget is the number of inserts a table of the given capacity accepts
// before it must grow (7/8 load).
func budget(capacity int) int {
	return (capacity + 1) / 8 * 7
}

// allocate installs a fresh all-Empty block of the given capacity.
func (t *Table[K, V]) allocate(capacity int) {
	perSlot, err := conv.AddInt(1, t.entrySize)
	if err == nil {
		perSlot, err = conv.MulInt(capacity, perSlot)
	}
	if err != nil {
		alloc.Fatalf(t.logger, "swiss.allocate", "block for capacity %d: %v", capacity, err)
	}

	block := t.alloc.Alloc(perSlot, alloc.DefaultAlignment)
	if len(block) != perSlot {
		alloc.Fatalf(t.logger, "swiss.allocate", "allocator returned %d bytes, want %d", len(block), perSlot)
	}

	ctrl := block[:capacity:capacity]
	for i := range ctrl {
		ctrl[i] = Empty
	}

	t.block = block
	t.ctrl = ctrl
	t.entries = unsafe.Slice((*entry[K, V])(unsafe.Pointer(&block[capacity])), capacity) //nolint:gosec // block is sized and aligned for capacity entries
	t.capacity = capacity
	t.slotsLeft = budget(capacity)
}

func (t *Table[K, V]) hashKey(key *K) uint64 {
	return t.hash(unsafe.Slice((*byte)(unsafe.Pointer(key)), t.keySize)) //nolint:gosec // key types are checked to be padding-free
}

func (t *Table[K, V]) checkLive(op string) {
	if t.destroyed {
		alloc.Fatalf(t.logger, op, "table used after destroy")
	}
}

// Insert stores (key, value) in the first empty slot of the key's probe
// sequence, growing first when the insert budget is spent. It does not look
// for an existing entry with the same key; use Set for that.
func (t *Table[K, V]) Insert(key K, value V) {
	t.checkLive("swiss.Insert")
	if t.slotsLeft == 0 {
		t.grow()
	}
	t.place(t.hashKey(&key), &key, &value)
}

// place writes an entry into the current block. Running out of probe budget
// means the load invariant is broken and is fatal.
func (t *Table[K, V]) place(h uint64, key *K, value *V) {
	mask := t.capacity - 1
	tag := simd.Tag(h)
	group := int(h) & mask &^ (GroupWidth - 1)

	for inc := 0; inc < t.capacity; {
		if empty := simd.EmptyMask(t.ctrl[group : group+GroupWidth]); empty.Any() {
			i := group + empty.Lowest()
			t.ctrl[i] = tag
			e := &t.entries[i]
			e.key = *key
			e.value = *value
			t.slotsLeft--
			t.length++
			return
		}
		inc += GroupWidth
		group = (group + inc) & mask
	}

	alloc.Fatalf(t.logger, "swiss.Insert",
		"probe budget exhausted: capacity %d, %d entries, %d slots left",
		t.capacity, t.length, t.slotsLeft)
}

// grow doubles the capacity and re-places every present entry, visiting the
// old block group by group.
func (t *Table[K, V]) grow() {
	start := time.Now()

	oldBlock, oldCtrl, oldEntries, oldCap := t.block, t.ctrl, t.entries, t.capacity
	newCap, err := conv.MulInt(oldCap, 2)
	if err != nil {
		alloc.Fatalf(t.logger, "swiss.grow", "capacity %d: %v", oldCap, err)
	}

	count := t.length
	t.length = 0
	t.allocate(newCap)

	for g := 0; g < oldCap; g += GroupWidth {
		for present := simd.PresentMask(oldCtrl[g : g+GroupWidth]); present.Any(); present = present.ClearLowest() {
			e := &oldEntries[g+present.Lowest()]
			t.place(t.hashKey(&e.key), &e.key, &e.value)
		}
	}
	if t.length != count {
		alloc.Fatalf(t.logger, "swiss.grow", "re-placed %d of %d entries", t.length, count)
	}

	t.alloc.Free(oldBlock)

	d := time.Since(start)
	t.metrics.RecordGrow(oldCap, newCap, d)
	t.growLog.Do(func() {
		t.logger.Debug("table grown",
			"from", oldCap,
			"to", newCap,
			"entries", count,
			"duration", d,
		)
	})
}

// Find returns a reference to the value stored for key. The reference is
// valid until the next insert that grows the table.
func (t *Table[K, V]) Find(key K) (*V, bool) {
	t.checkLive("swiss.Find")
	if i := t.lookup(&key); i >= 0 {
		return &t.entries[i].value, true
	}
	return nil, false
}

// lookup returns the slot index holding key, or -1.
func (t *Table[K, V]) lookup(key *K) int {
	h := t.hashKey(key)
	mask := t.capacity - 1
	tag := simd.Tag(h)
	group := int(h) & mask &^ (GroupWidth - 1)

	for inc := 0; inc < t.capacity; {
		ctrl := t.ctrl[group : group+GroupWidth]
		for m := simd.MatchMask(ctrl, tag); m.Any(); m = m.ClearLowest() {
			i := group + m.Lowest()
			if t.entries[i].key == *key {
				return i
			}
		}
		if t.stopAtEmpty && simd.EmptyMask(ctrl).Any() {
			return -1
		}
		inc += GroupWidth
		group = (group + inc) & mask
	}
	return -1
}

// Get returns a copy of the value stored for key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	if v, ok := t.Find(key); ok {
		return *v, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	_, ok := t.Find(key)
	return ok
}

// Set overwrites the value of an existing key or inserts a new entry.
func (t *Table[K, V]) Set(key K, value V) {
	if v, ok := t.Find(key); ok {
		*v = value
		return
	}
	t.Insert(key, value)
}

// Len returns the number of entries.
func (t *Table[K, V]) Len() int {
	return t.length
}

// Capacity returns the number of slots.
func (t *Table[K, V]) Capacity() int {
	return t.capacity
}

// SlotsLeft returns the inserts remaining before the next growth.
func (t *Table[K, V]) SlotsLeft() int {
	return t.slotsLeft
}

// Allocator returns the allocator backing the table.
func (t *Table[K, V]) Allocator() alloc.Allocator {
	return t.alloc
}

// DestroyHeap releases the block of a heap-backed table.
func (t *Table[K, V]) DestroyHeap() {
	t.destroy(alloc.FamilyHeap, "swiss.DestroyHeap")
}

// DestroyArena releases the block of an arena-backed table.
func (t *Table[K, V]) DestroyArena() {
	t.destroy(alloc.FamilyArena, "swiss.DestroyArena")
}

// Destroy releases the block through whichever family backs the table.
func (t *Table[K, V]) Destroy() {
	t.destroy(t.alloc.Family(), "swiss.Destroy")
}

func (t *Table[K, V]) destroy(family alloc.Family, op string) {
	t.checkLive(op)
	if got := t.alloc.Family(); got != family {
		alloc.Fatalf(t.logger, op, "table is backed by the %s allocator, not %s", got, family)
	}
	t.alloc.Free(t.block)
	t.block, t.ctrl, t.entries = nil, nil, nil
	t.length, t.slotsLeft = 0, 0
	t.destroyed = true
}
