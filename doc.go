// Package swissalloc wires the swiss hash table to its two allocator
// families behind one configurable runtime.
//
// # Quick Start
//
//	cfg, _ := swissalloc.LoadConfig("swissalloc.yaml")
//	rt, _ := swissalloc.Open(cfg)
//	defer rt.Close()
//
//	t, _ := swiss.New[uint64, uint64](16, rt.Heap())
//	defer t.DestroyHeap()
//
//	t.Insert(1, 2)
//	v, ok := t.Get(1)
//
// # Allocators
//
// A Runtime owns at most one heap (package heap, a TLSF allocator with
// per-block free) and one arena (package arena, a bump allocator reclaimed
// with marks). Both reserve their memory up front, either through an
// anonymous mapping or a Go slice, and charge it against the runtime's
// memory limit. Handles are explicit: nothing in this module is a process
// singleton, so independent runtimes never share state.
//
// # Configuration
//
// LoadConfig reads an optional YAML, TOML or JSON file and then applies
// SWISSALLOC_* environment variables:
//
//	SWISSALLOC_HEAP_SIZE     heap pool size, e.g. "64MiB" (0 disables the heap)
//	SWISSALLOC_ARENA_SIZE    arena buffer size (0 disables the arena)
//	SWISSALLOC_MEMORY_LIMIT  cap on all reservations (0 = unlimited)
//	SWISSALLOC_MAX_WORKERS   bulk-load worker slots (0 = GOMAXPROCS)
//	SWISSALLOC_BACKING       "mmap" or "go"
//	SWISSALLOC_LOG_LEVEL     debug, info, warn or error
//	SWISSALLOC_LOG_FORMAT    text, json or none
//
// The group-matching kernel is chosen at startup and can be forced with
// SWISSALLOC_SIMD=generic|swar.
//
// # Failures
//
// Constructors and configuration return errors. Broken invariants (heap
// exhaustion, double free, arena overflow, destroying a table through the
// wrong family) are logged and then raised as a panic carrying an
// *alloc.InvariantError.
package swissalloc
