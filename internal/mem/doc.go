// Package mem provides aligned Go-heap byte buffers.
//
// # Aligned Allocation
//
// Pools that are not reserved through mmap are carved from a Go byte slice
// whose first byte sits on a cache-line boundary, so block alignment can be
// computed from offsets alone.
package mem
