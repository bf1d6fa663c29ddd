package heap

import (
	"errors"
	"testing"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/mem"
	"github.com/hupe1980/swissalloc/internal/resource"
	"github.com/hupe1980/swissalloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeap(t *testing.T, capacity int, opts ...Option) *Heap {
	t.Helper()
	h, err := New(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func requireInvariant(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected fatal violation")
		err, ok := r.(error)
		require.True(t, ok)
		var ie *alloc.InvariantError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, op, ie.Op)
	}()
	fn()
}

func TestMapping(t *testing.T) {
	tests := []struct {
		size   int
		fl, sl int
	}{
		{16, 0, 1},
		{240, 0, 15},
		{256, 1, 0},
		{272, 1, 1},
		{511, 1, 15},
		{512, 2, 0},
		{1 << 20, 13, 0},
	}
	for _, tt := range tests {
		fl, sl := mapping(tt.size)
		assert.Equal(t, tt.fl, fl, "fl for %d", tt.size)
		assert.Equal(t, tt.sl, sl, "sl for %d", tt.size)
	}

	// Searching rounds up to the next bin so every block found fits.
	fl, sl := mappingSearch(257)
	assert.Equal(t, 1, fl)
	assert.Equal(t, 1, sl)
}

func TestHeap_New(t *testing.T) {
	for _, backing := range []alloc.Backing{alloc.BackingMmap, alloc.BackingGo} {
		t.Run(backing.String(), func(t *testing.T) {
			h := newHeap(t, 1<<16, WithBacking(backing))
			assert.Equal(t, 1<<16, h.Capacity())
			assert.Zero(t, h.Usage())
			assert.Equal(t, alloc.FamilyHeap, h.Family())
			require.NoError(t, h.Validate())
		})
	}

	_, err := New(32)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = New(-1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestHeap_AllocFreeRestoresUsage(t *testing.T) {
	h := newHeap(t, 1<<16)

	tests := []int{0, 1, 15, 16, 17, 100, 255, 256, 1000, 4096}
	for _, size := range tests {
		before := h.Usage()
		b := h.Alloc(size, 1)
		assert.Len(t, b, size)
		assert.GreaterOrEqual(t, cap(b), max(size, 16))
		assert.Equal(t, before+cap(b), h.Usage())
		assert.Equal(t, cap(b), h.BlockSize(b))
		require.NoError(t, h.Validate())

		h.Free(b)
		assert.Equal(t, before, h.Usage(), "size %d", size)
		require.NoError(t, h.Validate())
	}
}

func TestHeap_Alignment(t *testing.T) {
	h := newHeap(t, 1<<20, WithBacking(alloc.BackingGo))

	var blocks [][]byte
	for _, align := range []int{1, 2, 8, 16, 32, 64, 128, 4096} {
		for _, size := range []int{1, 24, 300} {
			b := h.Alloc(size, align)
			require.Len(t, b, size)
			assert.True(t, mem.IsAligned(b, max(align, 16)), "size %d align %d", size, align)
			blocks = append(blocks, b)
			require.NoError(t, h.Validate())
		}
	}

	for _, b := range blocks {
		h.Free(b)
	}
	assert.Zero(t, h.Usage())
	require.NoError(t, h.Validate())
}

func TestHeap_Coalescing(t *testing.T) {
	h := newHeap(t, 1<<12, WithBacking(alloc.BackingGo))

	// Three 1 KiB blocks (payload + header) leave a tail smaller than 1 KiB.
	a := h.Alloc(1008, 1)
	b := h.Alloc(1008, 1)
	c := h.Alloc(1008, 1)

	// Free out of order; neighbors must merge back into one block.
	h.Free(a)
	h.Free(c)
	h.Free(b)
	require.NoError(t, h.Validate())

	// Only a coalesced block can serve this.
	big := h.Alloc(2000, 1)
	assert.Len(t, big, 2000)
	h.Free(big)
	assert.Zero(t, h.Usage())
	require.NoError(t, h.Validate())
}

func TestHeap_BlocksDoNotOverlap(t *testing.T) {
	h := newHeap(t, 1<<16)

	blocks := make([][]byte, 32)
	for i := range blocks {
		blocks[i] = h.Alloc(40+i, 1)
		for j := range blocks[i] {
			blocks[i][j] = byte(i)
		}
	}
	for i, b := range blocks {
		for _, v := range b {
			require.Equal(t, byte(i), v)
		}
	}
}

func TestHeap_Realloc(t *testing.T) {
	h := newHeap(t, 1<<16, WithBacking(alloc.BackingGo))

	b := h.Realloc(nil, 40)
	require.Len(t, b, 40)
	for i := range b {
		b[i] = byte(i)
	}

	t.Run("grow in place", func(t *testing.T) {
		grown := h.Realloc(b, 200)
		require.Len(t, grown, 200)
		assert.Same(t, &b[0], &grown[0], "free successor is absorbed")
		for i := 0; i < 40; i++ {
			require.Equal(t, byte(i), grown[i])
		}
		b = grown
		require.NoError(t, h.Validate())
	})

	t.Run("shrink in place", func(t *testing.T) {
		before := h.Usage()
		shrunk := h.Realloc(b, 32)
		require.Len(t, shrunk, 32)
		assert.Same(t, &b[0], &shrunk[0])
		assert.Less(t, h.Usage(), before)
		b = shrunk
		require.NoError(t, h.Validate())
	})

	t.Run("move when blocked", func(t *testing.T) {
		fence := h.Alloc(16, 1)
		moved := h.Realloc(b, 1024)
		require.Len(t, moved, 1024)
		assert.NotSame(t, &b[0], &moved[0])
		for i := 0; i < 32; i++ {
			require.Equal(t, byte(i), moved[i])
		}
		b = moved
		h.Free(fence)
		require.NoError(t, h.Validate())
	})

	assert.Nil(t, h.Realloc(b, 0))
	assert.Zero(t, h.Usage())
	require.NoError(t, h.Validate())
}

func TestHeap_RandomWorkload(t *testing.T) {
	h := newHeap(t, 16<<20, WithBacking(alloc.BackingGo))
	rng := testutil.NewRNG(7)

	type live struct {
		b   []byte
		tag byte
	}
	var blocks []live

	for i, op := range rng.Workload(5000, 2048) {
		switch op.Kind {
		case testutil.OpFree:
			l := blocks[op.Slot]
			for _, v := range l.b {
				require.Equal(t, l.tag, v)
			}
			h.Free(l.b)
			blocks[op.Slot] = blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-1]
		case testutil.OpRealloc:
			l := &blocks[op.Slot]
			nb := h.Realloc(l.b, op.Size)
			for k := range nb {
				nb[k] = l.tag
			}
			l.b = nb
		default:
			b := h.Alloc(op.Size, op.Align)
			tag := byte(i)
			for k := range b {
				b[k] = tag
			}
			blocks = append(blocks, live{b: b, tag: tag})
		}
		if i%250 == 0 {
			require.NoError(t, h.Validate())
		}
	}

	for _, l := range blocks {
		h.Free(l.b)
	}
	assert.Zero(t, h.Usage())
	assert.Zero(t, h.Stats().LiveBlocks)
	require.NoError(t, h.Validate())
}

func TestHeap_Stats(t *testing.T) {
	h := newHeap(t, 1<<14)
	a := h.Alloc(100, 1)
	b := h.Alloc(100, 1)
	h.Free(a)

	s := h.Stats()
	assert.Equal(t, uint64(2), s.Allocs)
	assert.Equal(t, uint64(1), s.Frees)
	assert.Equal(t, uint64(1), s.LiveBlocks)
	assert.Equal(t, h.BlockSize(b), s.Usage)
	assert.Equal(t, 2*h.BlockSize(b), s.Peak)
}

func TestHeap_Fatal(t *testing.T) {
	t.Run("exhaustion", func(t *testing.T) {
		h := newHeap(t, 1024)
		requireInvariant(t, "heap.Alloc", func() { h.Alloc(4096, 1) })
	})

	t.Run("double free", func(t *testing.T) {
		h := newHeap(t, 1024)
		b := h.Alloc(32, 1)
		h.Free(b)
		requireInvariant(t, "heap.Free", func() { h.Free(b) })
	})

	t.Run("interior pointer", func(t *testing.T) {
		h := newHeap(t, 1024)
		b := h.Alloc(64, 1)
		requireInvariant(t, "heap.Free", func() { h.Free(b[16:]) })
	})

	t.Run("foreign block", func(t *testing.T) {
		h := newHeap(t, 1024)
		requireInvariant(t, "heap.Free", func() { h.Free(make([]byte, 16)) })
	})

	t.Run("bad alignment", func(t *testing.T) {
		h := newHeap(t, 1024)
		requireInvariant(t, "heap.Alloc", func() { h.Alloc(16, 3) })
	})

	t.Run("negative size", func(t *testing.T) {
		h := newHeap(t, 1024)
		requireInvariant(t, "heap.Alloc", func() { h.Alloc(-1, 1) })
	})

	t.Run("usage underflow", func(t *testing.T) {
		h := newHeap(t, 1024)
		b := h.Alloc(64, 1)
		h.usage = 0
		requireInvariant(t, "heap.Free", func() { h.Free(b) })
	})

	t.Run("closed", func(t *testing.T) {
		h, err := New(1024)
		require.NoError(t, err)
		require.NoError(t, h.Close())
		requireInvariant(t, "heap.Alloc", func() { h.Alloc(16, 1) })
	})

	t.Run("nil free is ignored", func(t *testing.T) {
		h := newHeap(t, 1024)
		assert.NotPanics(t, func() { h.Free(nil) })
	})
}

func TestHeap_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 16})

	h, err := New(1<<15, WithMemoryAcquirer(rc))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<15), rc.MemoryUsage())

	_, err = New(1<<16, WithMemoryAcquirer(rc))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	h.Alloc(64, 1) // left live on purpose; Close reports it
	require.NoError(t, h.Close())
	assert.Zero(t, rc.MemoryUsage())
}
