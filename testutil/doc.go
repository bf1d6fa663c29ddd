// Package testutil provides testing utilities for swissalloc.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible key sets and allocation workloads.
//
// # Keys
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.UniqueKeys(10_000) // distinct, shuffled uint64 keys
//	miss := rng.AbsentKey(keys)    // a key not in keys
//
// # Allocation Workloads
//
//	for _, op := range rng.Workload(5000, 2048) {
//	    switch op.Kind { ... }
//	}
package testutil
