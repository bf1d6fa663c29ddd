// Package hash provides keyed 64-bit hash functions over raw key bytes.
//
// # Algorithms
//
//   - XXH3: default, fastest on short keys (github.com/zeebo/xxh3)
//   - XXH64: classic xxHash64 (github.com/cespare/xxhash/v2)
//
// Both accept a seed so that independent tables (or the shard selector of a
// sharded table) see uncorrelated hash streams for the same key.
//
// # Usage
//
//	h := hash.New(hash.XXH3, seed)
//	v := h(keyBytes)
//
// Functions returned for XXH64 reuse one digest and are not safe for
// concurrent use; each table owns its own.
package hash
