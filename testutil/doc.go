// Package testutil provides testing utilities for strata.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for sorted unique key
// sets with different distributions.
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.SortedUniqueInt64(10_000, 1<<40)  // uniform
//	keys = rng.ClusteredInt64(10_000, 16)         // dense runs separated by large gaps
package testutil
