// Package mmap reserves anonymous read-write memory from the operating system.
//
// # Overview
//
// The heap and arena allocators obtain their single fixed pool through MapAnon,
// which keeps large pools outside the Go garbage collector's control and lets
// the kernel back pages on first touch.
//
// # Usage
//
//	m, err := mmap.MapAnon(64 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	pool := m.Bytes()
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE and madvise(2) hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by atomic operations. Callers must ensure
// no goroutine touches Bytes() after Close returns.
package mmap
