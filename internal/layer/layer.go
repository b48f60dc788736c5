package layer

import (
	"context"
	"io"

	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Layer is the common contract of resident and on-disk layers. The query path
// never needs to know which one it is talking to.
type Layer[K model.Key] interface {
	// Spec returns the layer kind and parameter as recorded in the directory.
	Spec() plan.Spec
	// Depth is 0 for the base layer.
	Depth() int
	// NodeCount is the number of nodes in the layer.
	NodeCount() int
	// ByteLen is the encoded size of the layer including its node_count.
	ByteLen() int64
	// Resident reports whether all nodes are held in memory.
	Resident() bool

	// Locate returns the node whose key range covers key: the last node whose
	// first key is <= key, or the first node if key precedes all of them.
	// On-disk layers only locate within a single-node root.
	Locate(ctx context.Context, key K) (*Node[K], error)
	// Node returns the node at ref.
	Node(ctx context.Context, ref Ref) (*Node[K], error)
	// Scan iterates nodes in order starting at ref.
	Scan(ctx context.Context, from Ref) (NodeIter[K], error)
	// WriteTo writes the encoded layer.
	WriteTo(ctx context.Context, w io.Writer) (int64, error)
}

// NodeIter yields consecutive nodes of a layer. Next returns io.EOF after the
// last node. Nodes returned by Next stay valid after further calls.
type NodeIter[K model.Key] interface {
	Next() (*Node[K], error)
	Close() error
}
