package layer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/strata/internal/pgm"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Ref addresses a node by its byte offset within its layer.
type Ref = uint64

// FirstRef is the offset of the first node of every layer, directly after the
// layer's node_count.
const FirstRef Ref = 4

const (
	btreeHeaderSize = 2
	modelHeaderSize = 8 + 8 + 4 + 4
	refSize         = 8
	valueLenSize    = 4
)

var (
	// ErrCorruptNode is returned when node bytes cannot be decoded.
	ErrCorruptNode = errors.New("corrupt node")
	// ErrEmptyLayer is returned when a layer is built over zero items.
	ErrEmptyLayer = errors.New("layer has no items")
	// ErrNodeOverflow is returned when a node exceeds its header's count field.
	ErrNodeOverflow = errors.New("node too large")

	// errShort signals that more bytes are needed to decode a node.
	errShort = errors.New("short node buffer")
)

// Node is a decoded node. Exactly one of Children or Values is set, depending
// on whether the node belongs to the base layer.
type Node[K model.Key] struct {
	Ref  Ref
	Size int

	Keys     []K
	Children []Ref
	Values   [][]byte

	// Model parameters; zero for btree nodes.
	Slope     float64
	Intercept float64
	Epsilon   uint32

	kind plan.Kind
}

// Len returns the number of items in the node.
func (n *Node[K]) Len() int { return len(n.Keys) }

// Next returns the reference of the node stored directly after n.
func (n *Node[K]) Next() Ref { return n.Ref + Ref(n.Size) }

// Search returns the position of the last key <= key, or -1 if key is smaller
// than every key in the node.
func (n *Node[K]) Search(key K) int {
	if len(n.Keys) == 0 || key < n.Keys[0] {
		return -1
	}
	lo, hi := 0, len(n.Keys)
	if n.kind == plan.KindModel {
		lo, hi = n.Window(key)
		// Predictions are monotone in the key, so the predecessor of an absent
		// key lies at most one position left of the window.
		lo = max(lo-1, 0)
	}
	// First index in [lo, hi) with a key greater than the search key.
	i := lo + sort.Search(hi-lo, func(i int) bool { return n.Keys[lo+i] > key })
	return i - 1
}

// Window returns the half-open position range [p-epsilon, p+epsilon+1) of a
// model node's prediction p for key. Every build key lies inside its window.
func (n *Node[K]) Window(key K) (lo, hi int) {
	count := len(n.Keys)
	p := pgm.Predict(n.Slope, n.Intercept, model.Distance(n.Keys[0], key), count)
	eps := int(n.Epsilon)
	lo = max(p-eps, 0)
	hi = min(p+eps+1, count)
	return lo, hi
}

// Find returns the position of key, or -1 if it is absent.
func (n *Node[K]) Find(key K) int {
	if len(n.Keys) == 0 || key < n.Keys[0] {
		return -1
	}
	lo, hi := 0, len(n.Keys)
	if n.kind == plan.KindModel {
		lo, hi = n.Window(key)
	}
	i := lo + sort.Search(hi-lo, func(i int) bool { return n.Keys[lo+i] >= key })
	if i < hi && n.Keys[i] == key {
		return i
	}
	return -1
}

// appendNode encodes items[lo:hi] as one node.
func appendNode[K model.Key](dst []byte, it *Items[K], lo, hi int, kind plan.Kind, seg pgm.Segment, epsilon uint32) ([]byte, error) {
	count := hi - lo
	switch kind {
	case plan.KindBTree:
		if count > math.MaxUint16 {
			return nil, fmt.Errorf("%w: btree node with %d keys", ErrNodeOverflow, count)
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(count))
	case plan.KindModel:
		if int64(count) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: model node with %d keys", ErrNodeOverflow, count)
		}
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(seg.Slope))
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(seg.Intercept))
		dst = binary.LittleEndian.AppendUint32(dst, epsilon)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(count))
	default:
		return nil, fmt.Errorf("unknown layer kind %d", kind)
	}

	for _, k := range it.Keys[lo:hi] {
		dst = model.AppendKey(dst, k)
	}
	if it.Values != nil {
		for _, v := range it.Values[lo:hi] {
			if int64(len(v)) > math.MaxUint32 {
				return nil, fmt.Errorf("%w: value of %d bytes", ErrNodeOverflow, len(v))
			}
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v)))
			dst = append(dst, v...)
		}
		return dst, nil
	}
	for _, c := range it.Children[lo:hi] {
		dst = binary.LittleEndian.AppendUint64(dst, c)
	}
	return dst, nil
}

// decodeNode decodes the node at the start of buf. It returns errShort if buf
// ends before the node does. Values alias buf.
func decodeNode[K model.Key](buf []byte, ref Ref, kind plan.Kind, base bool) (*Node[K], error) {
	n := &Node[K]{Ref: ref, kind: kind}
	var count, off int

	switch kind {
	case plan.KindBTree:
		if len(buf) < btreeHeaderSize {
			return nil, errShort
		}
		count = int(binary.LittleEndian.Uint16(buf))
		off = btreeHeaderSize
	case plan.KindModel:
		if len(buf) < modelHeaderSize {
			return nil, errShort
		}
		n.Slope = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		n.Intercept = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
		n.Epsilon = binary.LittleEndian.Uint32(buf[16:])
		count = int(binary.LittleEndian.Uint32(buf[20:]))
		off = modelHeaderSize
		if math.IsNaN(n.Slope) || math.IsInf(n.Slope, 0) || n.Slope < 0 || math.IsNaN(n.Intercept) {
			return nil, fmt.Errorf("%w: invalid model parameters at ref %d", ErrCorruptNode, ref)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruptNode, kind)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty node at ref %d", ErrCorruptNode, ref)
	}

	w := model.Width[K]()
	if len(buf)-off < count*w {
		return nil, errShort
	}
	n.Keys = make([]K, count)
	for i := range n.Keys {
		n.Keys[i] = model.DecodeKey[K](buf[off:])
		off += w
		if i > 0 && !(n.Keys[i-1] < n.Keys[i]) {
			return nil, fmt.Errorf("%w: keys out of order at ref %d", ErrCorruptNode, ref)
		}
	}

	if base {
		n.Values = make([][]byte, count)
		for i := range n.Values {
			if len(buf)-off < valueLenSize {
				return nil, errShort
			}
			l := int(binary.LittleEndian.Uint32(buf[off:]))
			off += valueLenSize
			if len(buf)-off < l {
				return nil, errShort
			}
			n.Values[i] = buf[off : off+l : off+l]
			off += l
		}
	} else {
		if len(buf)-off < count*refSize {
			return nil, errShort
		}
		n.Children = make([]Ref, count)
		for i := range n.Children {
			n.Children[i] = binary.LittleEndian.Uint64(buf[off:])
			off += refSize
		}
	}

	n.Size = off
	return n, nil
}
