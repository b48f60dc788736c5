package cache

import (
	"container/list"
	"encoding/binary"
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/strata/internal/resource"
)

const (
	maxShards = 64

	// minShardBytes keeps shards large enough to hold a useful number of blocks.
	minShardBytes = 1 << 20
)

// BlockKey identifies one block of a named blob.
type BlockKey struct {
	Blob  string
	Block int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Blocks    int
	Bytes     int64
}

// Blocks is a sharded LRU cache of blob blocks bounded in bytes.
// Returned slices are shared and must not be modified.
type Blocks struct {
	shards []*shard
	seed   maphash.Seed

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New returns a cache holding at most capacity bytes. If rc is non-nil, cached
// bytes are charged against its memory budget and blocks it refuses are not
// cached.
func New(capacity int64, rc *resource.Controller) *Blocks {
	n := 1
	for n < maxShards && capacity/int64(2*n) >= minShardBytes {
		n *= 2
	}

	c := &Blocks{
		shards: make([]*shard, n),
		seed:   maphash.MakeSeed(),
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			capacity: capacity / int64(n),
			items:    make(map[BlockKey]*list.Element),
			lru:      list.New(),
			rc:       rc,
			parent:   c,
		}
	}
	return c
}

func (c *Blocks) shard(key BlockKey) *shard {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	var h maphash.Hash
	h.SetSeed(c.seed)
	_, _ = h.WriteString(key.Blob)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key.Block))
	_, _ = h.Write(buf[:])
	return c.shards[h.Sum64()&uint64(len(c.shards)-1)]
}

// Get returns a cached block.
func (c *Blocks) Get(key BlockKey) ([]byte, bool) {
	b, ok := c.shard(key).get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return b, ok
}

// Add caches a block and reports whether it is now resident. The cache
// retains b. Adding a key that is already present only refreshes it.
func (c *Blocks) Add(key BlockKey, b []byte) bool {
	return c.shard(key).add(key, b)
}

// DropBlob removes every block of the named blob and returns how many were
// removed.
func (c *Blocks) DropBlob(name string) int {
	dropped := 0
	for _, s := range c.shards {
		dropped += s.dropBlob(name)
	}
	return dropped
}

// Stats returns the current counters.
func (c *Blocks) Stats() Stats {
	st := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	for _, s := range c.shards {
		blocks, size := s.usage()
		st.Blocks += blocks
		st.Bytes += size
	}
	return st
}

type block struct {
	key  BlockKey
	data []byte
}

type shard struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[BlockKey]*list.Element
	lru      *list.List
	rc       *resource.Controller
	parent   *Blocks
}

func (s *shard) get(key BlockKey) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(e)
	return e.Value.(*block).data, true
}

func (s *shard) add(key BlockKey, b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		s.lru.MoveToFront(e)
		return true
	}

	n := int64(len(b))
	if n > s.capacity {
		return false
	}
	// Evict before charging so the controller sees the freed bytes first.
	for s.size+n > s.capacity {
		s.remove(s.lru.Back())
		s.parent.evictions.Add(1)
	}
	if !s.rc.TryAcquireMemory(n) {
		return false
	}

	s.items[key] = s.lru.PushFront(&block{key: key, data: b})
	s.size += n
	return true
}

func (s *shard) dropBlob(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, e := range s.items {
		if key.Blob == name {
			s.remove(e)
			dropped++
		}
	}
	return dropped
}

func (s *shard) remove(e *list.Element) {
	blk := s.lru.Remove(e).(*block)
	delete(s.items, blk.key)
	n := int64(len(blk.data))
	s.size -= n
	s.rc.ReleaseMemory(n)
}

func (s *shard) usage() (int, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), s.size
}
