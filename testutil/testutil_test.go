package testutil

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedUniqueInt64(t *testing.T) {
	rng := NewRNG(4711)

	keys := rng.SortedUniqueInt64(1000, 5000)

	assert.Len(t, keys, 1000)
	assert.True(t, slices.IsSorted(keys))
	assert.Len(t, slices.Compact(slices.Clone(keys)), 1000)
	assert.GreaterOrEqual(t, keys[0], int64(0))
	assert.Less(t, keys[999], int64(5000))
}

func TestSortedUniqueUint64(t *testing.T) {
	keys := NewRNG(1).SortedUniqueUint64(256)

	assert.Len(t, keys, 256)
	assert.True(t, slices.IsSorted(keys))
}

func TestClusteredInt64(t *testing.T) {
	keys := NewRNG(7).ClusteredInt64(500, 8)

	assert.Len(t, keys, 500)
	for i := 1; i < len(keys); i++ {
		assert.Greater(t, keys[i], keys[i-1])
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(99)
	a := rng.SortedUniqueInt64(10, 1<<30)
	rng.Reset()
	b := rng.SortedUniqueInt64(10, 1<<30)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(99), rng.Seed())
}
