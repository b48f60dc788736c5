package strata

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/strata/codec"
	"github.com/hupe1980/strata/internal/layer"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Build compiles entries into an index with the layer kinds chosen by p.
//
// Entries must be sorted strictly ascending by key; duplicates, unsorted input
// and NaN keys are rejected with an *InputError. Empty input yields an index
// with an empty base layer.
//
// Layer d is built over the anchors of layer d-1 with p.At(d) until a layer
// consists of a single node. If the layer limit (see WithMaxDepth) is reached
// first, the remaining anchors are wrapped into one flat root node of the kind
// p assigns to that depth.
func Build[K model.Key, V any](ctx context.Context, entries []model.Entry[K, V], p plan.Plan, c codec.Codec[V], optFns ...Option) (ix *Index[K, V], err error) {
	o := applyOptions(optFns)
	start := time.Now()
	defer func() {
		layers := 0
		if ix != nil {
			layers = len(ix.layers)
		}
		o.logger.LogBuild(ctx, len(entries), layers, time.Since(start), err)
		o.metricsCollector.RecordBuild(len(entries), layers, time.Since(start), err)
	}()

	if p.IsZero() {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil codec", ErrInvalidInput)
	}

	items, err := encodeEntries(entries, c)
	if err != nil {
		return nil, err
	}

	layers, err := buildLayers(ctx, items, p, o)
	if err != nil {
		return nil, err
	}

	ix = newIndex[K, V](c, o)
	ix.count.Store(int64(len(entries)))
	for _, l := range layers {
		ix.layers = append(ix.layers, l)
	}
	return ix, nil
}

// encodeEntries validates the key order and encodes all values into one
// shared buffer.
func encodeEntries[K model.Key, V any](entries []model.Entry[K, V], c codec.Codec[V]) (*layer.Items[K], error) {
	items := &layer.Items[K]{
		Keys:   make([]K, len(entries)),
		Values: make([][]byte, len(entries)),
	}
	ends := make([]int, len(entries))

	var (
		buf []byte
		err error
	)
	for i, e := range entries {
		if model.IsNaN(e.Key) {
			return nil, &InputError{Position: i, Reason: "NaN key"}
		}
		if i > 0 {
			prev := entries[i-1].Key
			switch {
			case e.Key == prev:
				return nil, &InputError{Position: i, Reason: fmt.Sprintf("duplicate key %v", e.Key)}
			case e.Key < prev:
				return nil, &InputError{Position: i, Reason: fmt.Sprintf("key %v after %v", e.Key, prev)}
			}
		}
		if buf, err = c.Append(buf, e.Value); err != nil {
			return nil, &InputError{Position: i, Reason: "encode value: " + err.Error(), cause: err}
		}
		items.Keys[i] = e.Key
		ends[i] = len(buf)
	}

	prev := 0
	for i, end := range ends {
		items.Values[i] = buf[prev:end:end]
		prev = end
	}
	return items, nil
}

func buildLayers[K model.Key](ctx context.Context, items *layer.Items[K], p plan.Plan, o options) ([]*layer.Resident[K], error) {
	if items.Len() == 0 {
		base, err := layer.NewResident[K](make([]byte, layer.FirstRef), p.At(0), 0)
		if err != nil {
			return nil, translateError(err)
		}
		return []*layer.Resident[K]{base}, nil
	}

	bopts := layer.BuildOptions{Parallelism: o.parallelism, Controller: o.rc}

	var layers []*layer.Resident[K]
	for depth := 0; ; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spec := p.At(depth)

		var (
			l   *layer.Resident[K]
			err error
		)
		if depth == o.maxDepth-1 {
			l, err = layer.BuildFlatRoot(items, spec.Kind, depth)
		} else {
			l, items, err = layer.Build(ctx, items, spec, depth, bopts)
		}
		if err != nil {
			return nil, translateError(fmt.Errorf("layer %d (%s): %w", depth, spec, err))
		}

		o.logger.LogLayer(ctx, depth, l.Spec().Kind.String(), l.Spec().Param, l.NodeCount(), l.ByteLen(), true)
		layers = append(layers, l)

		if l.NodeCount() == 1 {
			return layers, nil
		}
	}
}
