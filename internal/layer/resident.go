package layer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Resident is a layer whose nodes are fully decoded in memory.
type Resident[K model.Key] struct {
	spec  plan.Spec
	depth int
	buf   []byte
	nodes []*Node[K]
}

// NewResident decodes an encoded layer. buf is retained.
func NewResident[K model.Key](buf []byte, spec plan.Spec, depth int) (*Resident[K], error) {
	if len(buf) < int(FirstRef) {
		return nil, fmt.Errorf("%w: layer of %d bytes", ErrCorruptNode, len(buf))
	}
	count := int(binary.LittleEndian.Uint32(buf))
	l := &Resident[K]{
		spec:  spec,
		depth: depth,
		buf:   buf,
		nodes: make([]*Node[K], 0, min(count, len(buf))),
	}

	ref := FirstRef
	for i := 0; i < count; i++ {
		n, err := decodeNode[K](buf[ref:], ref, spec.Kind, depth == 0)
		if err == errShort {
			return nil, fmt.Errorf("%w: node %d of %d truncated", ErrCorruptNode, i, count)
		}
		if err != nil {
			return nil, err
		}
		if i > 0 && !(l.nodes[i-1].Keys[l.nodes[i-1].Len()-1] < n.Keys[0]) {
			return nil, fmt.Errorf("%w: node %d overlaps its predecessor", ErrCorruptNode, i)
		}
		l.nodes = append(l.nodes, n)
		ref = n.Next()
	}
	if ref != Ref(len(buf)) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d nodes", ErrCorruptNode, Ref(len(buf))-ref, count)
	}
	return l, nil
}

func (l *Resident[K]) Spec() plan.Spec { return l.spec }
func (l *Resident[K]) Depth() int      { return l.depth }
func (l *Resident[K]) NodeCount() int  { return len(l.nodes) }
func (l *Resident[K]) ByteLen() int64  { return int64(len(l.buf)) }
func (l *Resident[K]) Resident() bool  { return true }

// Bytes returns the encoded layer.
func (l *Resident[K]) Bytes() []byte { return l.buf }

// Nodes returns the decoded nodes in order.
func (l *Resident[K]) Nodes() []*Node[K] { return l.nodes }

// Anchors returns the first key and reference of every node.
func (l *Resident[K]) Anchors() *Items[K] {
	a := &Items[K]{
		Keys:     make([]K, len(l.nodes)),
		Children: make([]Ref, len(l.nodes)),
	}
	for i, n := range l.nodes {
		a.Keys[i] = n.Keys[0]
		a.Children[i] = n.Ref
	}
	return a
}

// Len returns the total number of items over all nodes.
func (l *Resident[K]) Len() int {
	total := 0
	for _, n := range l.nodes {
		total += n.Len()
	}
	return total
}

func (l *Resident[K]) Locate(_ context.Context, key K) (*Node[K], error) {
	if len(l.nodes) == 0 {
		return nil, nil
	}
	i := sort.Search(len(l.nodes), func(i int) bool { return l.nodes[i].Keys[0] > key })
	return l.nodes[max(i-1, 0)], nil
}

func (l *Resident[K]) Node(_ context.Context, ref Ref) (*Node[K], error) {
	i := l.index(ref)
	if i < 0 {
		return nil, fmt.Errorf("%w: no node at ref %d in layer %d", ErrCorruptNode, ref, l.depth)
	}
	return l.nodes[i], nil
}

func (l *Resident[K]) index(ref Ref) int {
	i := sort.Search(len(l.nodes), func(i int) bool { return l.nodes[i].Ref >= ref })
	if i < len(l.nodes) && l.nodes[i].Ref == ref {
		return i
	}
	return -1
}

func (l *Resident[K]) Scan(_ context.Context, from Ref) (NodeIter[K], error) {
	i := len(l.nodes)
	if from < Ref(len(l.buf)) {
		if i = l.index(from); i < 0 {
			return nil, fmt.Errorf("%w: no node at ref %d in layer %d", ErrCorruptNode, from, l.depth)
		}
	}
	return &residentIter[K]{nodes: l.nodes[i:]}, nil
}

func (l *Resident[K]) WriteTo(_ context.Context, w io.Writer) (int64, error) {
	n, err := w.Write(l.buf)
	return int64(n), err
}

type residentIter[K model.Key] struct {
	nodes []*Node[K]
}

func (it *residentIter[K]) Next() (*Node[K], error) {
	if len(it.nodes) == 0 {
		return nil, io.EOF
	}
	n := it.nodes[0]
	it.nodes = it.nodes[1:]
	return n, nil
}

func (it *residentIter[K]) Close() error {
	it.nodes = nil
	return nil
}
