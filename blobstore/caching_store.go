package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/strata/internal/cache"
	"github.com/hupe1980/strata/internal/resource"
)

const (
	defaultBlockSize = 64 << 10

	// Ranges spanning more blocks than this stream straight from the inner
	// store so that layer scans do not evict hot node blocks.
	maxCachedRangeBlocks = 32
)

// CachingStore wraps a BlobStore and adds block-level read caching.
// Index files are immutable, so cached blocks only need dropping when a
// name is overwritten or deleted through this store.
type CachingStore struct {
	inner     BlobStore
	cache     *cache.Blocks
	blockSize int64
}

// CacheStats is a snapshot of the block cache counters.
type CacheStats = cache.Stats

// CachingOption configures a CachingStore.
type CachingOption func(*cachingOptions)

type cachingOptions struct {
	blockSize int64
	rc        *resource.Controller
}

// WithBlockSize sets the cached block size. Values <= 0 select 64KB.
func WithBlockSize(n int64) CachingOption {
	return func(o *cachingOptions) {
		o.blockSize = n
	}
}

// WithCacheController charges cached blocks against the memory budget of rc.
// Blocks that do not fit the budget are read through without caching.
func WithCacheController(rc *resource.Controller) CachingOption {
	return func(o *cachingOptions) {
		o.rc = rc
	}
}

// NewCachingStore wraps inner with a block cache of capacity bytes.
func NewCachingStore(inner BlobStore, capacity int64, optFns ...CachingOption) *CachingStore {
	o := cachingOptions{blockSize: defaultBlockSize}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.blockSize <= 0 {
		o.blockSize = defaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache.New(capacity, o.rc),
		blockSize: o.blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create drops cached blocks of name and creates it in the inner store.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.cache.DropBlob(name)
	return s.inner.Create(ctx, name)
}

// Put drops cached blocks of name and writes it to the inner store.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.DropBlob(name)
	return s.inner.Put(ctx, name, data)
}

// Delete drops cached blocks of name and deletes it from the inner store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.DropBlob(name)
	return s.inner.Delete(ctx, name)
}

// List lists the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the block cache counters.
func (s *CachingStore) Stats() CacheStats {
	return s.cache.Stats()
}

// CachingBlob wraps a Blob and uses the block cache for reads.
type CachingBlob struct {
	inner     Blob
	cache     *cache.Blocks
	name      string
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) key(blk int64) cache.BlockKey {
	return cache.BlockKey{Blob: b.name, Block: blk}
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), b.Size())
	startBlock := off / b.blockSize
	endBlock := (end - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return total, err
		}
		blkStart := blk * b.blockSize
		lo := max(blkStart, off)
		hi := min(blkStart+int64(len(data)), end)
		if hi <= lo {
			break
		}
		total += copy(p[lo-off:hi-off], data[lo-blkStart:])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fillCache loads the missing blocks of [startBlock, endBlock], fetching each
// contiguous run of missing blocks with one backend read.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type run struct{ start, count int64 }
	var missing []run

	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(b.key(blk)); ok {
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{blk, 1})
		}
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteSize := min(r.count*b.blockSize, b.Size()-byteStart)
			if byteSize <= 0 {
				return nil
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// Copy so a cached block does not pin the whole run.
				blk := make([]byte, hi-lo)
				copy(blk, buf[lo:hi])
				b.cache.Add(b.key(r.start+i), blk)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	if data, ok := b.cache.Get(b.key(blk)); ok {
		return data, nil
	}

	// The block was evicted between fill and copy, or the cache refused it.
	off := blk * b.blockSize
	buf := make([]byte, min(b.blockSize, b.Size()-off))
	n, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// ReadRange serves short ranges from the cache and streams long ones from the
// inner blob.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if length > maxCachedRangeBlocks*b.blockSize {
		return b.inner.ReadRange(ctx, off, length)
	}
	return io.NopCloser(&contextSectionReader{blob: b, ctx: ctx, off: off, limit: min(off+length, b.Size())}), nil
}

// contextSectionReader adapts CachingBlob.ReadAt to io.Reader.
type contextSectionReader struct {
	blob  *CachingBlob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *contextSectionReader) Read(p []byte) (n int, err error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err = r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}
