package hash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func TestNew_Deterministic(t *testing.T) {
	for _, alg := range []Algorithm{XXH3, XXH64} {
		t.Run(alg.String(), func(t *testing.T) {
			h := New(alg, 42)
			key := []byte("swiss-table-key")
			assert.Equal(t, h(key), h(key))
			assert.Equal(t, h(key), New(alg, 42)(key))
			assert.NotEqual(t, h(key), New(alg, 43)(key), "seed must change the stream")
			assert.NotEqual(t, h([]byte{0, 0, 0, 0}), h([]byte{0, 0, 0, 1}))
		})
	}
}

func TestNew_XXH64MatchesReference(t *testing.T) {
	key := []byte("reference")
	// Seed 0 must agree with the unseeded package function.
	assert.Equal(t, xxhash.Sum64(key), New(XXH64, 0)(key))
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
		ok   bool
	}{
		{"xxh3", XXH3, true},
		{"", XXH3, true},
		{" XXH64 ", XXH64, true},
		{"xxhash", XXH64, true},
		{"md5", XXH3, false},
	}
	for _, tt := range tests {
		got, ok := ParseAlgorithm(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "unknown", Algorithm(7).String())
}
