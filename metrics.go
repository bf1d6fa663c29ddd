package swissalloc

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/swissalloc/alloc"
)

// MetricsCollector receives allocator and table events.
// Implement it to integrate with monitoring systems like Prometheus; see
// examples/observability.
type MetricsCollector = alloc.MetricsCollector

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector = alloc.NoopMetricsCollector

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	HeapAllocs      atomic.Int64
	HeapFrees       atomic.Int64
	HeapBytesInUse  atomic.Int64
	ArenaAllocs     atomic.Int64
	ArenaBytesInUse atomic.Int64
	ArenaResets     atomic.Int64
	ArenaReclaimed  atomic.Int64
	Grows           atomic.Int64
	GrowTotalNanos  atomic.Int64
	LargestCapacity atomic.Int64
	RequestedBytes  atomic.Int64
	GrantedBytes    atomic.Int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(family alloc.Family, requested, granted int) {
	b.RequestedBytes.Add(int64(requested))
	b.GrantedBytes.Add(int64(granted))
	switch family {
	case alloc.FamilyHeap:
		b.HeapAllocs.Add(1)
		b.HeapBytesInUse.Add(int64(granted))
	case alloc.FamilyArena:
		b.ArenaAllocs.Add(1)
		b.ArenaBytesInUse.Add(int64(granted))
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(family alloc.Family, granted int) {
	if family == alloc.FamilyHeap {
		b.HeapFrees.Add(1)
		b.HeapBytesInUse.Add(-int64(granted))
	}
}

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset(family alloc.Family, reclaimed int) {
	if family == alloc.FamilyArena {
		b.ArenaResets.Add(1)
		b.ArenaReclaimed.Add(int64(reclaimed))
		b.ArenaBytesInUse.Add(-int64(reclaimed))
	}
}

// RecordGrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrow(_, newCapacity int, duration time.Duration) {
	b.Grows.Add(1)
	b.GrowTotalNanos.Add(duration.Nanoseconds())
	for {
		cur := b.LargestCapacity.Load()
		if int64(newCapacity) <= cur || b.LargestCapacity.CompareAndSwap(cur, int64(newCapacity)) {
			return
		}
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		HeapAllocs:      b.HeapAllocs.Load(),
		HeapFrees:       b.HeapFrees.Load(),
		HeapBytesInUse:  b.HeapBytesInUse.Load(),
		ArenaAllocs:     b.ArenaAllocs.Load(),
		ArenaBytesInUse: b.ArenaBytesInUse.Load(),
		ArenaResets:     b.ArenaResets.Load(),
		ArenaReclaimed:  b.ArenaReclaimed.Load(),
		Grows:           b.Grows.Load(),
		GrowAvgNanos:    b.getAvgGrowNanos(),
		LargestCapacity: b.LargestCapacity.Load(),
		RequestedBytes:  b.RequestedBytes.Load(),
		GrantedBytes:    b.GrantedBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgGrowNanos() int64 {
	count := b.Grows.Load()
	if count == 0 {
		return 0
	}
	return b.GrowTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	HeapAllocs      int64
	HeapFrees       int64
	HeapBytesInUse  int64
	ArenaAllocs     int64
	ArenaBytesInUse int64
	ArenaResets     int64
	ArenaReclaimed  int64
	Grows           int64
	GrowAvgNanos    int64
	LargestCapacity int64
	RequestedBytes  int64
	GrantedBytes    int64
}
