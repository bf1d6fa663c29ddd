package alloc

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/hupe1980/swissalloc/internal/mem"
	"github.com/hupe1980/swissalloc/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamily_String(t *testing.T) {
	assert.Equal(t, "heap", FamilyHeap.String())
	assert.Equal(t, "arena", FamilyArena.String())
	assert.Equal(t, "unknown", Family(0).String())
}

func TestFatalf(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)

		var ie *InvariantError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "heap.Free", ie.Op)
		assert.Equal(t, "usage underflow: 32 > 16", ie.Msg)
		assert.Contains(t, err.Error(), "heap.Free")
		assert.Contains(t, buf.String(), "invariant violated")
	}()

	Fatalf(logger, "heap.Free", "usage underflow: %d > %d", 32, 16)
}

func TestFatalf_NilLogger(t *testing.T) {
	assert.Panics(t, func() { Fatalf(nil, "op", "boom") })
	assert.NotNil(t, DiscardLogger(nil))
}

func TestReserve(t *testing.T) {
	for _, backing := range []Backing{BackingMmap, BackingGo} {
		t.Run(backing.String(), func(t *testing.T) {
			rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

			r, err := Reserve(64<<10, backing, AccessRandom, rc)
			require.NoError(t, err)
			assert.Len(t, r.Bytes(), 64<<10)
			assert.True(t, mem.IsAligned(r.Bytes(), DefaultAlignment))
			assert.Equal(t, backing, r.Backing())
			assert.Equal(t, int64(64<<10), rc.MemoryUsage())

			r.Bytes()[0] = 1
			require.NoError(t, r.Close())
			require.NoError(t, r.Close())
			assert.Nil(t, r.Bytes())
			assert.Zero(t, rc.MemoryUsage())
		})
	}
}

func TestReserve_Errors(t *testing.T) {
	_, err := Reserve(0, BackingGo, AccessRandom, nil)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
	_, err = Reserve(4096, BackingGo, AccessSequential, rc)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Zero(t, rc.MemoryUsage())
}

func TestParseBacking(t *testing.T) {
	b, ok := ParseBacking("GO")
	assert.True(t, ok)
	assert.Equal(t, BackingGo, b)

	b, ok = ParseBacking("")
	assert.True(t, ok)
	assert.Equal(t, BackingMmap, b)

	_, ok = ParseBacking("tape")
	assert.False(t, ok)
}

type countingAllocator struct {
	allocs, frees int
}

func (c *countingAllocator) Alloc(size, align int) []byte {
	c.allocs++
	return make([]byte, size)
}

func (c *countingAllocator) Free([]byte) { c.frees++ }

func (c *countingAllocator) Family() Family { return FamilyHeap }

func TestSynchronized(t *testing.T) {
	inner := &countingAllocator{}
	s := Synchronized(inner)
	assert.Same(t, s, Synchronized(s))
	assert.Same(t, inner, Unwrap(s))
	assert.Equal(t, FamilyHeap, s.Family())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Free(s.Alloc(16, 16))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, inner.allocs)
	assert.Equal(t, 800, inner.frees)
}
