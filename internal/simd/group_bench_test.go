package simd

import "testing"

func BenchmarkMatchMask(b *testing.B) {
	g := allEmpty()
	for i := 0; i < GroupWidth; i += 3 {
		g[i] = byte(i)
	}
	for _, k := range kernelSets {
		b.Run(k.name, func(b *testing.B) {
			var sink Mask
			for i := 0; i < b.N; i++ {
				sink |= k.match(g, 9)
			}
			_ = sink
		})
	}
}

func BenchmarkEmptyMask(b *testing.B) {
	g := allEmpty()
	for _, k := range kernelSets {
		b.Run(k.name, func(b *testing.B) {
			var sink Mask
			for i := 0; i < b.N; i++ {
				sink |= k.empty(g)
			}
			_ = sink
		})
	}
}
