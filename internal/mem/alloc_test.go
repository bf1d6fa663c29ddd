package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 63, 64, 65, 100, 1024}

	for _, size := range sizes {
		buf := AllocAligned(size)
		assert.Len(t, buf, size)
		assert.Equal(t, size, cap(buf))
		assert.True(t, IsAligned(buf, Alignment), "size %d should be aligned to %d", size, Alignment)
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestAllocAlignedTo(t *testing.T) {
	tests := []struct {
		size  int
		align int
	}{
		{1, 1},
		{17, 16},
		{100, 32},
		{4096, 4096},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("size=%d/align=%d", tt.size, tt.align), func(t *testing.T) {
			buf := AllocAlignedTo(tt.size, tt.align)
			assert.Len(t, buf, tt.size)
			assert.True(t, IsAligned(buf, tt.align))
		})
	}

	assert.Nil(t, AllocAlignedTo(16, 0))
	assert.Nil(t, AllocAlignedTo(16, 24))
}

func BenchmarkAllocAligned(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size)
			}
		})
	}
}
