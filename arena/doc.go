// Package arena provides a bump allocator over one fixed buffer with
// mark-and-rollback reclamation.
//
// # Memory Management
//
// The buffer is reserved once (anonymous mmap by default) and never grows.
// Alloc pads the current offset up to the requested alignment, hands out the
// block there and advances the offset. There is no per-block free: memory is
// reclaimed by rewinding to a Mark.
//
//	a, _ := arena.New(1 << 20)
//	defer a.Close()
//
//	m := a.Mark()
//	scratch := a.Alloc(4096, 16)
//	// ... use scratch ...
//	a.CutTo(m) // scratch is reclaimed
//
// Marks must be released in last-in-first-out order. The arena does not
// track or enforce this.
//
// Running past the end of the buffer is fatal (see alloc.Fatalf).
//
// # Concurrency Model
//
// An Arena is not safe for concurrent use. Wrap it with alloc.Synchronized
// when several goroutines allocate from it.
package arena
