package swissalloc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/swissalloc/arena"
	"github.com/hupe1980/swissalloc/heap"
	"github.com/hupe1980/swissalloc/internal/resource"
	"github.com/hupe1980/swissalloc/swiss"
)

// Runtime owns a heap, an arena and the memory budget they are charged
// against. Every handle it returns stays valid until Close.
type Runtime struct {
	cfg    Config
	logger *Logger
	ctrl   *resource.Controller
	heap   *heap.Heap
	arena  *arena.Arena

	closeOnce sync.Once
	closeErr  error
}

// Open validates cfg and reserves the configured allocators.
func Open(cfg Config, optFns ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(cfg, optFns)

	rt := &Runtime{
		cfg:    cfg,
		logger: o.logger,
		ctrl: resource.NewController(resource.Config{
			MemoryLimitBytes: int64(cfg.MemoryLimit), //nolint:gosec // bounded by Validate
			MaxWorkers:       int64(cfg.MaxWorkers),
		}),
	}

	if cfg.HeapSize > 0 {
		h, err := heap.New(int(cfg.HeapSize), //nolint:gosec // bounded by Validate
			heap.WithBacking(cfg.Backing),
			heap.WithMemoryAcquirer(rt.ctrl),
			heap.WithLogger(o.logger.WithFamily("heap").Logger),
			heap.WithMetricsCollector(o.metricsCollector),
		)
		if err != nil {
			return nil, fmt.Errorf("open heap: %w", err)
		}
		rt.heap = h
	}

	if cfg.ArenaSize > 0 {
		a, err := arena.New(int(cfg.ArenaSize), //nolint:gosec // bounded by Validate
			arena.WithBacking(cfg.Backing),
			arena.WithMemoryAcquirer(rt.ctrl),
			arena.WithLogger(o.logger.WithFamily("arena").Logger),
			arena.WithMetricsCollector(o.metricsCollector),
		)
		if err != nil {
			if rt.heap != nil {
				_ = rt.heap.Close()
			}
			return nil, fmt.Errorf("open arena: %w", err)
		}
		rt.arena = a
	}

	rt.logger.LogRuntimeOpen(context.Background(), cfg)
	return rt, nil
}

// Config returns the configuration the runtime was opened with.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *Logger {
	return r.logger
}

// Heap returns the heap allocator, or nil when HeapSize is 0.
func (r *Runtime) Heap() *heap.Heap {
	return r.heap
}

// Arena returns the arena allocator, or nil when ArenaSize is 0.
func (r *Runtime) Arena() *arena.Arena {
	return r.arena
}

// WorkerLimiter returns the limiter that bounds bulk-load workers. Pass it
// to swiss.WithWorkerLimiter so several Sharded tables share one budget.
func (r *Runtime) WorkerLimiter() swiss.WorkerLimiter {
	return r.ctrl
}

// Reserved returns the bytes currently charged against the memory limit.
func (r *Runtime) Reserved() int64 {
	return r.ctrl.MemoryUsage()
}

// TableOptions returns the swiss options that route a table's logging and
// worker limits through this runtime.
func (r *Runtime) TableOptions() []swiss.Option {
	return []swiss.Option{
		swiss.WithLogger(r.logger.WithComponent("swiss").Logger),
		swiss.WithWorkerLimiter(r.ctrl),
	}
}

// Close releases both reservations. Tables still bound to them must not be
// used afterwards. Close is idempotent.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.arena != nil {
			errs = append(errs, r.arena.Close())
		}
		if r.heap != nil {
			errs = append(errs, r.heap.Close())
		}
		r.closeErr = errors.Join(errs...)
		r.logger.LogRuntimeClose(context.Background(), r.ctrl.MemoryPeak(), r.closeErr)
	})
	return r.closeErr
}
