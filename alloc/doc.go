// Package alloc defines the contract shared by the heap and arena allocators
// and the hash tables built on top of them.
//
// # Families
//
// Every allocator belongs to a Family. A table records the allocator it was
// created with and must be torn down through the matching family:
//
//	h, _ := heap.New(64 << 20)
//	t, _ := swiss.New[uint64, uint64](16, h)
//	defer t.DestroyHeap()
//
// # Fatal Invariants
//
// Broken accounting (usage underflow, exhausted pool, wrong family at
// teardown) is not recoverable. Fatalf logs the violation at error level and
// panics with an *InvariantError so that tests can observe it with
// errors.As on the recovered value.
//
// # Concurrency
//
// Allocators are single-threaded. Synchronized wraps one in a mutex for use
// by partitioned tables.
package alloc
