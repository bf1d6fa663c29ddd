package arena

import (
	"log/slog"

	"github.com/hupe1980/swissalloc/alloc"
)

type options struct {
	backing  alloc.Backing
	acquirer alloc.MemoryAcquirer
	logger   *slog.Logger
	metrics  alloc.MetricsCollector
}

// Option is a configuration option for Arena.
type Option func(*options)

// WithBacking selects where the buffer is reserved. Defaults to alloc.BackingMmap.
func WithBacking(b alloc.Backing) Option {
	return func(o *options) {
		o.backing = b
	}
}

// WithMemoryAcquirer charges the buffer against an external memory budget.
func WithMemoryAcquirer(acquirer alloc.MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithLogger sets the logger used for lifecycle events and fatal violations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets the collector that receives allocation events.
func WithMetricsCollector(m alloc.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}
