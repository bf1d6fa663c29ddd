package alloc

import "time"

// MetricsCollector receives allocator and table events.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation.
	// granted is the size actually reserved (>= requested).
	RecordAlloc(family Family, requested, granted int)

	// RecordFree is called after each per-block release.
	RecordFree(family Family, granted int)

	// RecordReset is called when an arena rewinds, with the bytes reclaimed.
	RecordReset(family Family, reclaimed int)

	// RecordGrow is called after a table doubles its capacity.
	RecordGrow(oldCapacity, newCapacity int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(Family, int, int)       {}
func (NoopMetricsCollector) RecordFree(Family, int)             {}
func (NoopMetricsCollector) RecordReset(Family, int)            {}
func (NoopMetricsCollector) RecordGrow(int, int, time.Duration) {}
