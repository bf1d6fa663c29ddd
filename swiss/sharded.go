package swiss

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"
	"runtime"
	"sync"
	"unsafe"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/conv"
	"github.com/hupe1980/swissalloc/internal/hash"
	"golang.org/x/sync/errgroup"
)

// ErrLengthMismatch is returned by BulkSet when keys and values differ in length.
var ErrLengthMismatch = errors.New("swiss: keys and values differ in length")

// ErrInvalidShards is returned when the shard count is not positive.
var ErrInvalidShards = errors.New("swiss: invalid shard count")

// WorkerLimiter bounds concurrent work across components.
type WorkerLimiter interface {
	AcquireWorker(ctx context.Context) error
	ReleaseWorker()
}

type shard[K comparable, V any] struct {
	mu sync.Mutex
	t  *Table[K, V]
}

// Sharded partitions keys across independently locked tables that share one
// synchronized allocator. It is safe for concurrent use.
type Sharded[K comparable, V any] struct {
	shards  []shard[K, V]
	shift   uint
	sel     hash.Func
	keySize int
	alloc   alloc.Allocator
	workers int
	limiter WorkerLimiter
}

// NewSharded creates shards tables (rounded up to a power of two) with
// capacityPerShard slots each. The allocator is wrapped with
// alloc.Synchronized.
func NewSharded[K comparable, V any](shards, capacityPerShard int, a alloc.Allocator, opts ...Option) (*Sharded[K, V], error) {
	if shards <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShards, shards)
	}
	if a == nil {
		return nil, ErrNilAllocator
	}
	n, err := conv.NextPowerOfTwo(shards)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShards, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	shared := alloc.Synchronized(a)
	s := &Sharded[K, V]{
		shards:  make([]shard[K, V], n),
		shift:   uint(64 - bits.TrailingZeros(uint(n))),
		sel:     hash.New(hash.XXH3, rand.Uint64()),
		keySize: int(unsafe.Sizeof(*new(K))),
		alloc:   shared,
		workers: o.workers,
		limiter: o.limiter,
	}

	for i := range s.shards {
		t, err := New[K, V](capacityPerShard, shared, opts...)
		if err != nil {
			for j := 0; j < i; j++ {
				s.shards[j].t.Destroy()
			}
			return nil, err
		}
		s.shards[i].t = t
	}
	return s, nil
}

func (s *Sharded[K, V]) shardFor(key *K) *shard[K, V] {
	if len(s.shards) == 1 {
		return &s.shards[0]
	}
	h := s.sel(unsafe.Slice((*byte)(unsafe.Pointer(key)), s.keySize)) //nolint:gosec // key types are checked to be padding-free
	return &s.shards[h>>s.shift]
}

// Insert adds (key, value) without checking for an existing entry.
func (s *Sharded[K, V]) Insert(key K, value V) {
	sh := s.shardFor(&key)
	sh.mu.Lock()
	sh.t.Insert(key, value)
	sh.mu.Unlock()
}

// Set overwrites or inserts the value for key.
func (s *Sharded[K, V]) Set(key K, value V) {
	sh := s.shardFor(&key)
	sh.mu.Lock()
	sh.t.Set(key, value)
	sh.mu.Unlock()
}

// Get returns a copy of the value stored for key.
func (s *Sharded[K, V]) Get(key K) (V, bool) {
	sh := s.shardFor(&key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.t.Get(key)
}

// Contains reports whether key is present.
func (s *Sharded[K, V]) Contains(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of entries across all shards.
func (s *Sharded[K, V]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += sh.t.Len()
		sh.mu.Unlock()
	}
	return n
}

// Shards returns the number of partitions.
func (s *Sharded[K, V]) Shards() int {
	return len(s.shards)
}

// Range calls fn for every entry, one shard at a time, until fn returns
// false. fn must not call back into s.
func (s *Sharded[K, V]) Range(fn func(key K, value V) bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, v := range sh.t.All() {
			if !fn(*k, *v) {
				sh.mu.Unlock()
				return
			}
		}
		sh.mu.Unlock()
	}
}

// BulkSet sets keys[i] to values[i] for every i, filling shards in
// parallel. It stops early when ctx is canceled.
func (s *Sharded[K, V]) BulkSet(ctx context.Context, keys []K, values []V) error {
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys, %d values", ErrLengthMismatch, len(keys), len(values))
	}

	parts := make([][]int, len(s.shards))
	for i := range keys {
		idx := 0
		if len(s.shards) > 1 {
			idx = int(s.sel(unsafe.Slice((*byte)(unsafe.Pointer(&keys[i])), s.keySize)) >> s.shift) //nolint:gosec // see shardFor
		}
		parts[idx] = append(parts[idx], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		sh := &s.shards[i]
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.AcquireWorker(ctx); err != nil {
					return err
				}
				defer s.limiter.ReleaseWorker()
			}

			sh.mu.Lock()
			defer sh.mu.Unlock()
			for n, j := range part {
				if n%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				sh.t.Set(keys[j], values[j])
			}
			return nil
		})
	}
	return g.Wait()
}

// Destroy releases every shard's block through its allocator family.
func (s *Sharded[K, V]) Destroy() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.t.Destroy()
		sh.mu.Unlock()
	}
}
