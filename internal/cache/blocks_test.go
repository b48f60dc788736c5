package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/strata/internal/resource"
)

func key(blob string, blk int64) BlockKey { return BlockKey{Blob: blob, Block: blk} }

func TestBlocks_LRUEviction(t *testing.T) {
	c := New(30, nil)
	require.Len(t, c.shards, 1)

	assert.True(t, c.Add(key("a", 0), make([]byte, 10)))
	assert.True(t, c.Add(key("a", 1), make([]byte, 10)))
	assert.True(t, c.Add(key("a", 2), make([]byte, 10)))

	// Touch block 0 so block 1 becomes the victim.
	_, ok := c.Get(key("a", 0))
	require.True(t, ok)

	assert.True(t, c.Add(key("a", 3), make([]byte, 10)))

	_, ok = c.Get(key("a", 1))
	assert.False(t, ok)
	_, ok = c.Get(key("a", 0))
	assert.True(t, ok)

	st := c.Stats()
	assert.Equal(t, Stats{Hits: 2, Misses: 1, Evictions: 1, Blocks: 3, Bytes: 30}, st)
}

func TestBlocks_AddExisting(t *testing.T) {
	c := New(100, nil)
	first := []byte("first")
	require.True(t, c.Add(key("x", 1), first))
	require.True(t, c.Add(key("x", 1), []byte("second block")))

	got, ok := c.Get(key("x", 1))
	require.True(t, ok)
	assert.Equal(t, first, got)
	assert.Equal(t, int64(5), c.Stats().Bytes)
}

func TestBlocks_Oversized(t *testing.T) {
	c := New(50, nil)
	assert.False(t, c.Add(key("x", 0), make([]byte, 60)))
	_, ok := c.Get(key("x", 0))
	assert.False(t, ok)
}

func TestBlocks_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 25})
	c := New(100, rc)

	assert.True(t, c.Add(key("x", 0), make([]byte, 10)))
	assert.True(t, c.Add(key("x", 1), make([]byte, 10)))
	assert.False(t, c.Add(key("x", 2), make([]byte, 10)), "budget exhausted")
	assert.Equal(t, int64(20), rc.MemoryUsage())

	assert.Equal(t, 2, c.DropBlob("x"))
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.True(t, c.Add(key("x", 2), make([]byte, 10)))
}

func TestBlocks_DropBlob(t *testing.T) {
	c := New(100, nil)
	c.Add(key("x", 1), []byte("a"))
	c.Add(key("x", 2), []byte("b"))
	c.Add(key("y", 1), []byte("c"))

	assert.Equal(t, 2, c.DropBlob("x"))
	assert.Equal(t, 0, c.DropBlob("x"))

	_, ok := c.Get(key("x", 1))
	assert.False(t, ok)
	_, ok = c.Get(key("y", 1))
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Bytes)
}

func TestBlocks_Sharded(t *testing.T) {
	c := New(64<<20, nil)
	assert.Len(t, c.shards, 64)

	for i := range 1000 {
		c.Add(key(fmt.Sprintf("blob-%d", i%10), int64(i)), make([]byte, 1024))
	}
	st := c.Stats()
	assert.Equal(t, 1000, st.Blocks)
	assert.Equal(t, int64(1000*1024), st.Bytes)

	nonEmpty := 0
	for _, s := range c.shards {
		if n, _ := s.usage(); n > 0 {
			nonEmpty++
		}
	}
	assert.Greater(t, nonEmpty, 20)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				_, ok := c.Get(key(fmt.Sprintf("blob-%d", i%10), int64(i)))
				assert.True(t, ok, "goroutine %d block %d", g, i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.DropBlob("blob-0"))
	assert.Equal(t, int64(900*1024), c.Stats().Bytes)
}
