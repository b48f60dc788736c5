package strata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hupe1980/strata/codec"
	"github.com/hupe1980/strata/internal/layer"
	"github.com/hupe1980/strata/internal/resource"
	"github.com/hupe1980/strata/model"
)

// Index is an immutable layered index over keys of type K and values of type V.
//
// Layer 0 holds the entries; every layer above indexes the nodes of the layer
// beneath it and the top layer consists of a single root node. Each layer is
// either resident (decoded in memory) or on disk (read from the backing blob
// node by node); queries work the same on both.
//
// Get and Range are safe for concurrent use. Close must not run concurrently
// with queries.
type Index[K model.Key, V any] struct {
	layers []layer.Layer[K]
	codec  codec.Codec[V]

	// count is the number of entries, or -1 until the base layer was scanned.
	count atomic.Int64

	rc     *resource.Controller
	memory *resource.Budget // resident layers
	closer io.Closer
	closed atomic.Bool

	logger  *Logger
	metrics MetricsCollector
}

func newIndex[K model.Key, V any](c codec.Codec[V], o options) *Index[K, V] {
	ix := &Index[K, V]{
		codec:   c,
		rc:      o.rc,
		memory:  o.rc.NewBudget(),
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	ix.count.Store(-1)
	return ix
}

// Get returns the value stored for key. ok is false if key is absent.
func (ix *Index[K, V]) Get(ctx context.Context, key K) (v V, ok bool, err error) {
	start := time.Now()
	defer func() { ix.metrics.RecordGet(ok, time.Since(start), err) }()

	if ix.closed.Load() {
		return v, false, ErrClosed
	}
	if model.IsNaN(key) {
		return v, false, nil
	}

	n, err := ix.descend(ctx, key)
	if err != nil || n == nil {
		return v, false, err
	}
	i := n.Find(key)
	if i < 0 {
		return v, false, nil
	}
	if v, err = ix.codec.Decode(n.Values[i]); err != nil {
		return v, false, fmt.Errorf("%w: decode value of key %v: %w", ErrCorruptFormat, key, err)
	}
	return v, true, nil
}

// descend walks from the root to the base node covering key. Keys below the
// minimum resolve to the first base node. It returns nil for an empty index.
func (ix *Index[K, V]) descend(ctx context.Context, key K) (*layer.Node[K], error) {
	top := len(ix.layers) - 1
	n, err := ix.layers[top].Locate(ctx, key)
	if err != nil || n == nil {
		return nil, translateError(err)
	}
	for d := top; d > 0; d-- {
		i := max(n.Search(key), 0)
		if n, err = ix.layers[d-1].Node(ctx, n.Children[i]); err != nil {
			return nil, translateError(err)
		}
	}
	return n, nil
}

// Len returns the number of entries. For indexes whose base layer is on disk
// the first call scans the base layer once.
func (ix *Index[K, V]) Len(ctx context.Context) (int, error) {
	if ix.closed.Load() {
		return 0, ErrClosed
	}
	if n := ix.count.Load(); n >= 0 {
		return int(n), nil
	}

	it, err := ix.layers[0].Scan(ctx, layer.FirstRef)
	if err != nil {
		return 0, translateError(err)
	}
	defer it.Close()

	total := 0
	for {
		n, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, translateError(err)
		}
		total += n.Len()
	}
	ix.count.Store(int64(total))
	return total, nil
}

// LayerStats describes one layer of an index.
type LayerStats struct {
	Depth    int
	Kind     string
	Param    int
	Nodes    int
	Bytes    int64
	Resident bool
}

// Stats describes the shape of an index.
type Stats struct {
	KeyType       string
	ValueCodec    string
	Layers        []LayerStats
	ResidentBytes int64
	OnDiskBytes   int64
}

// Stats reports per-layer kind, parameter, size and residency, base layer
// first.
func (ix *Index[K, V]) Stats() Stats {
	s := Stats{
		KeyType:    model.TagOf[K]().String(),
		ValueCodec: ix.codec.Name(),
		Layers:     make([]LayerStats, len(ix.layers)),
	}
	for d, l := range ix.layers {
		s.Layers[d] = LayerStats{
			Depth:    d,
			Kind:     l.Spec().Kind.String(),
			Param:    l.Spec().Param,
			Nodes:    l.NodeCount(),
			Bytes:    l.ByteLen(),
			Resident: l.Resident(),
		}
		if l.Resident() {
			s.ResidentBytes += l.ByteLen()
		} else {
			s.OnDiskBytes += l.ByteLen()
		}
	}
	return s
}

// Height returns the number of layers.
func (ix *Index[K, V]) Height() int { return len(ix.layers) }

// Close releases the memory reservation and, for indexes returned by Open,
// the backing blob. The blob itself is never modified.
func (ix *Index[K, V]) Close() error {
	if ix == nil || !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	ix.memory.Release()

	if ix.closer != nil {
		err := ix.closer.Close()
		ix.closer = nil
		return ioError("close blob", err)
	}
	return nil
}
