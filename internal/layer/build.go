package layer

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/strata/internal/pgm"
	"github.com/hupe1980/strata/internal/resource"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Items is the columnar input of a layer build: keys plus either values (base
// layer) or child references (interior layers).
type Items[K model.Key] struct {
	Keys     []K
	Values   [][]byte
	Children []Ref
}

// Len returns the number of items.
func (it *Items[K]) Len() int { return len(it.Keys) }

// Base reports whether the items carry values.
func (it *Items[K]) Base() bool { return it.Children == nil }

func (it *Items[K]) slice(lo, hi int) *Items[K] {
	out := &Items[K]{Keys: it.Keys[lo:hi]}
	if it.Base() {
		out.Values = it.Values[lo:hi]
	} else {
		out.Children = it.Children[lo:hi]
	}
	return out
}

// BuildOptions tune layer construction.
type BuildOptions struct {
	// Parallelism is the number of chunks built concurrently. Values < 2 build
	// sequentially.
	Parallelism int
	// Controller bounds concurrent chunk builds. May be nil.
	Controller *resource.Controller
}

// minChunk is the smallest number of items worth building on its own goroutine.
const minChunk = 4096

// Build constructs one layer over items using spec and returns it together with
// the anchors of its nodes, which become the items of the layer above.
func Build[K model.Key](ctx context.Context, items *Items[K], spec plan.Spec, depth int, opts BuildOptions) (*Resident[K], *Items[K], error) {
	if items.Len() == 0 {
		return nil, nil, ErrEmptyLayer
	}
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	chunks := partition(items.Len(), spec, opts.Parallelism)
	encoded := make([][]byte, len(chunks))
	counts := make([]int, len(chunks))

	if len(chunks) == 1 {
		b, n, err := encodeChunk(items, spec)
		if err != nil {
			return nil, nil, err
		}
		encoded[0], counts[0] = b, n
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range chunks {
			g.Go(func() error {
				return opts.Controller.Do(gctx, func() error {
					b, n, err := encodeChunk(items.slice(c[0], c[1]), spec)
					if err != nil {
						return err
					}
					encoded[i], counts[i] = b, n
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	total := 0
	size := FirstRef
	for i := range encoded {
		total += counts[i]
		size += Ref(len(encoded[i]))
	}
	if int64(total) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: layer with %d nodes", ErrNodeOverflow, total)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	for _, b := range encoded {
		buf = append(buf, b...)
	}

	l, err := NewResident[K](buf, spec, depth)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Anchors(), nil
}

// BuildFlatRoot wraps all items into a single node of the given kind. Model
// roots record their measured maximum error as epsilon.
func BuildFlatRoot[K model.Key](items *Items[K], kind plan.Kind, depth int) (*Resident[K], error) {
	if items.Len() == 0 {
		return nil, ErrEmptyLayer
	}
	var (
		seg     pgm.Segment
		epsilon uint32
		spec    plan.Spec
	)
	switch kind {
	case plan.KindModel:
		var maxErr int
		seg, maxErr = pgm.Fit(items.Keys)
		epsilon = uint32(maxErr)
		spec = plan.PGM(maxErr)
	default:
		if items.Len() > plan.MaxFanout {
			return nil, fmt.Errorf("%w: flat btree root over %d anchors", ErrNodeOverflow, items.Len())
		}
		spec = plan.BTree(max(items.Len(), 2))
	}

	buf := binary.LittleEndian.AppendUint32(make([]byte, 0, 64), 1)
	buf, err := appendNode(buf, items, 0, items.Len(), spec.Kind, seg, epsilon)
	if err != nil {
		return nil, err
	}
	return NewResident[K](buf, spec, depth)
}

// encodeChunk encodes the nodes for items and returns the bytes and node count.
func encodeChunk[K model.Key](items *Items[K], spec plan.Spec) ([]byte, int, error) {
	var (
		buf []byte
		err error
	)
	switch spec.Kind {
	case plan.KindBTree:
		fanout := spec.Param
		n := 0
		for lo := 0; lo < items.Len(); lo += fanout {
			hi := min(lo+fanout, items.Len())
			if buf, err = appendNode(buf, items, lo, hi, spec.Kind, pgm.Segment{}, 0); err != nil {
				return nil, 0, err
			}
			n++
		}
		return buf, n, nil
	case plan.KindModel:
		segs := pgm.Build(items.Keys, spec.Param)
		for _, s := range segs {
			if buf, err = appendNode(buf, items, s.Start, s.Start+s.Count, spec.Kind, s, uint32(spec.Param)); err != nil {
				return nil, 0, err
			}
		}
		return buf, len(segs), nil
	default:
		return nil, 0, fmt.Errorf("unknown layer kind %d", spec.Kind)
	}
}

// partition splits n items into up to parallelism contiguous chunks. BTree
// chunks are aligned to the fanout so chunked and sequential builds produce
// identical nodes.
func partition(n int, spec plan.Spec, parallelism int) [][2]int {
	if parallelism < 2 || n < 2*minChunk {
		return [][2]int{{0, n}}
	}
	size := max((n+parallelism-1)/parallelism, minChunk)
	if spec.Kind == plan.KindBTree {
		size = (size + spec.Param - 1) / spec.Param * spec.Param
	}
	var chunks [][2]int
	for lo := 0; lo < n; lo += size {
		chunks = append(chunks, [2]int{lo, min(lo+size, n)})
	}
	return chunks
}
