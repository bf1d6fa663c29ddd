package testutil

import (
	"math/rand/v2"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed^0x9E3779B97F4A7C15))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// UniqueKeys returns n distinct pseudo-random keys in random order.
func (r *RNG) UniqueKeys(n int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]struct{}, n)
	keys := make([]uint64, 0, n)
	for len(keys) < n {
		k := r.rand.Uint64()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// AbsentKey returns a key that does not occur in keys.
func (r *RNG) AbsentKey(keys []uint64) uint64 {
	set := make(map[uint64]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	for {
		k := r.Uint64()
		if _, ok := set[k]; !ok {
			return k
		}
	}
}

// Shuffle randomizes the order of keys in place.
func (r *RNG) Shuffle(keys []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
}

// OpKind is the kind of step in an allocation workload.
type OpKind uint8

const (
	OpAlloc OpKind = iota
	OpFree
	OpRealloc
)

// Op is one step of an allocation workload. Slot indexes the list of live
// blocks at the time the step runs and is only meaningful for OpFree and
// OpRealloc.
type Op struct {
	Kind  OpKind
	Size  int
	Align int
	Slot  int
}

// Workload returns n allocator steps over block sizes in [1, maxSize] and
// alignments up to 128. Frees and reallocs only target blocks that the
// workload itself allocated.
func (r *RNG) Workload(n, maxSize int) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := make([]Op, 0, n)
	live := 0
	for len(ops) < n {
		switch {
		case live > 0 && r.rand.IntN(3) == 0:
			ops = append(ops, Op{Kind: OpFree, Slot: r.rand.IntN(live)})
			live--
		case live > 0 && r.rand.IntN(5) == 0:
			ops = append(ops, Op{Kind: OpRealloc, Slot: r.rand.IntN(live), Size: 1 + r.rand.IntN(maxSize)})
		default:
			ops = append(ops, Op{Kind: OpAlloc, Size: 1 + r.rand.IntN(maxSize), Align: 1 << r.rand.IntN(8)})
			live++
		}
	}
	return ops
}
