package hash

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// Algorithm selects a hash function family.
type Algorithm uint8

const (
	// XXH3 is the 64-bit XXH3 hash.
	XXH3 Algorithm = iota
	// XXH64 is the classic xxHash64.
	XXH64
)

// String returns the string representation of an Algorithm.
func (a Algorithm) String() string {
	switch a {
	case XXH3:
		return "xxh3"
	case XXH64:
		return "xxh64"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xxh3", "":
		return XXH3, true
	case "xxh64", "xxhash":
		return XXH64, true
	default:
		return XXH3, false
	}
}

// Func hashes raw key bytes.
type Func func(b []byte) uint64

// New returns the keyed hash function for alg. Unknown algorithms fall back
// to XXH3.
func New(alg Algorithm, seed uint64) Func {
	switch alg {
	case XXH64:
		d := xxhash.NewWithSeed(seed)
		return func(b []byte) uint64 {
			d.ResetWithSeed(seed)
			_, _ = d.Write(b)
			return d.Sum64()
		}
	default:
		return func(b []byte) uint64 {
			return xxh3.HashSeed(b, seed)
		}
	}
}
