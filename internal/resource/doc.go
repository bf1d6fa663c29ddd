// Package resource implements the Controller for process-wide memory and
// concurrency budgets.
//
// The Controller governs two resource types:
//
//   - Memory: pool and arena reservations are charged against a hard limit (non-blocking, fail-fast)
//   - Workers: bounded parallelism for bulk table loads
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(64 << 20); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides what to do
//	}
//	defer rc.ReleaseMemory(64 << 20)
//
// # Worker Limits
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
