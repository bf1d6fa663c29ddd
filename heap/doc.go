// Package heap provides a general-purpose allocator over one fixed pool using
// a two-level segregated fit (TLSF) free-list strategy.
//
// # Algorithm
//
// Free blocks are binned by size into a two-level matrix: the first level
// splits sizes by power of two, the second level splits each power-of-two
// range into 16 linear classes. Two bitmaps record which bins are non-empty,
// so finding a fitting block is a pair of bit scans. Blocks are split on
// allocation and coalesced with both physical neighbors on free, which keeps
// allocate and free O(1) with bounded fragmentation.
//
// # Layout
//
// All bookkeeping lives inside the pool and is addressed by offset:
//
//	block at offset b:
//	  [b+0,  b+8)   offset of the previous physical block (valid when it is free)
//	  [b+8,  b+16)  payload size | free flag | previous-free flag
//	  [b+16, ...)   payload; free blocks keep their list links in its first 16 bytes
//
// The pool ends with a zero-size sentinel header so coalescing never runs
// off the end.
//
// # Accounting
//
// Usage counts granted bytes (request rounded up to the 16-byte granule or
// block remainder). Alloc followed by Free restores Usage exactly. Freeing a
// block that is not live, or freeing more than is in use, is fatal.
//
// # Concurrency Model
//
// A Heap is not safe for concurrent use. Wrap it with alloc.Synchronized
// when several goroutines allocate from it.
package heap
