// Package swiss implements an open-addressing hash table with 16-slot
// control groups, backed by an explicit allocator.
//
// # Layout
//
// A table owns one block from its allocator:
//
//	[0, capacity)                      control bytes (Empty or a 7-bit tag)
//	[capacity, capacity*(1+entrySize)) entries (key, value) stored by value
//
// Control byte i describes entry i. The tag is the top 7 bits of the key's
// 64-bit hash, so a group of 16 candidates is filtered with one mask
// operation before any key is compared.
//
// # Probing
//
// Lookups start at the group containing hash & (capacity-1) and advance
// triangularly (offsets 0, 16, 48, 96, ...), which visits every group of a
// power-of-two table exactly once. Capacity is therefore always a power of
// two of at least 16.
//
// # Growth
//
// A table accepts ⌊(capacity+1)/8⌋×7 inserts before it doubles. Growth
// allocates a fresh block, re-places every present entry group by group and
// frees the old block.
//
// # Keys and Values
//
// Entries live in allocator memory the garbage collector does not scan, so
// K and V must be free of pointers (no strings, slices, maps, interfaces or
// pointers). Keys are hashed as raw bytes and must not contain padding or
// floating-point fields.
//
// # Teardown
//
// Tables are released with the call matching their allocator family:
//
//	h, _ := heap.New(64 << 20)
//	t, _ := swiss.New[uint64, uint64](16, h)
//	defer t.DestroyHeap()
//
// Calling the other family's teardown is fatal.
//
// # Concurrency
//
// A Table is not safe for concurrent use. Sharded partitions keys across
// independently locked tables.
package swiss
