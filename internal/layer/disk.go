package layer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/strata/internal/format"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// Source is random and sequential access to an index file.
type Source interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

const (
	minNodeRead = 256
	scanChunk   = 64 << 10
)

// Disk is a layer that stays in the backing file. Every access decodes only
// the nodes it touches.
type Disk[K model.Key] struct {
	src       Source
	spec      plan.Spec
	depth     int
	offset    int64
	length    int64
	nodeCount int
	guess     int
}

// OpenDisk opens the layer stored at [offset, offset+length) of src and checks
// its node_count against the directory.
func OpenDisk[K model.Key](ctx context.Context, src Source, spec plan.Spec, depth int, offset, length int64, nodeCount int) (*Disk[K], error) {
	var prefix [FirstRef]byte
	if err := format.ReadFull(ctx, src, prefix[:], offset, "read layer prefix"); err != nil {
		return nil, err
	}
	if got := int(binary.LittleEndian.Uint32(prefix[:])); got != nodeCount {
		return nil, fmt.Errorf("%w: layer %d stores %d nodes, directory says %d", ErrCorruptNode, depth, got, nodeCount)
	}

	guess := minNodeRead
	if nodeCount > 0 {
		avg := int((length - int64(FirstRef)) / int64(nodeCount))
		guess = max(2*avg, minNodeRead)
	}
	return &Disk[K]{
		src:       src,
		spec:      spec,
		depth:     depth,
		offset:    offset,
		length:    length,
		nodeCount: nodeCount,
		guess:     guess,
	}, nil
}

func (l *Disk[K]) Spec() plan.Spec { return l.spec }
func (l *Disk[K]) Depth() int      { return l.depth }
func (l *Disk[K]) NodeCount() int  { return l.nodeCount }
func (l *Disk[K]) ByteLen() int64  { return l.length }
func (l *Disk[K]) Resident() bool  { return false }

// Node reads and decodes the node at ref. The read starts at twice the average
// node size and grows until the node fits.
func (l *Disk[K]) Node(ctx context.Context, ref Ref) (*Node[K], error) {
	if ref < FirstRef || int64(ref) >= l.length {
		return nil, fmt.Errorf("%w: ref %d outside layer %d of %d bytes", ErrCorruptNode, ref, l.depth, l.length)
	}
	remaining := l.length - int64(ref)
	size := min(int64(l.guess), remaining)
	for {
		buf := make([]byte, size)
		if err := format.ReadFull(ctx, l.src, buf, l.offset+int64(ref), "read node"); err != nil {
			return nil, err
		}
		n, err := decodeNode[K](buf, ref, l.spec.Kind, l.depth == 0)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, errShort) {
			return nil, err
		}
		if size == remaining {
			return nil, fmt.Errorf("%w: node at ref %d runs past layer end", ErrCorruptNode, ref)
		}
		size = min(2*size, remaining)
	}
}

// Locate resolves the root node. Only a single-node layer can serve as the
// entry point of a descent; deeper layers are reached through child refs.
func (l *Disk[K]) Locate(ctx context.Context, _ K) (*Node[K], error) {
	switch l.nodeCount {
	case 0:
		return nil, nil
	case 1:
		return l.Node(ctx, FirstRef)
	default:
		return nil, fmt.Errorf("%w: locate on a layer of %d nodes", ErrCorruptNode, l.nodeCount)
	}
}

// Scan streams nodes with a single sequential range read.
func (l *Disk[K]) Scan(ctx context.Context, from Ref) (NodeIter[K], error) {
	if int64(from) >= l.length {
		return &diskIter[K]{ref: from, end: from}, nil
	}
	if from < FirstRef {
		return nil, fmt.Errorf("%w: ref %d outside layer %d", ErrCorruptNode, from, l.depth)
	}
	rc, err := l.src.ReadRange(ctx, l.offset+int64(from), l.length-int64(from))
	if err != nil {
		return nil, &format.ReadError{Op: "scan layer", Err: err}
	}
	return &diskIter[K]{
		rc:   rc,
		ref:  from,
		end:  Ref(l.length),
		kind: l.spec.Kind,
		base: l.depth == 0,
	}, nil
}

// WriteTo copies the raw layer bytes to w.
func (l *Disk[K]) WriteTo(ctx context.Context, w io.Writer) (int64, error) {
	rc, err := l.src.ReadRange(ctx, l.offset, l.length)
	if err != nil {
		return 0, &format.ReadError{Op: "copy layer", Err: err}
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, err
	}
	if n != l.length {
		return n, fmt.Errorf("%w: copied %d of %d layer bytes", format.ErrTruncated, n, l.length)
	}
	return n, nil
}

// diskIter decodes nodes from a sequential reader. Consumed bytes are never
// overwritten, so previously returned nodes stay valid.
type diskIter[K model.Key] struct {
	rc   io.ReadCloser
	buf  []byte
	ref  Ref
	end  Ref
	kind plan.Kind
	base bool
	eof  bool
}

func (it *diskIter[K]) Next() (*Node[K], error) {
	if it.ref >= it.end {
		return nil, io.EOF
	}
	for {
		n, err := decodeNode[K](it.buf, it.ref, it.kind, it.base)
		if err == nil {
			it.buf = it.buf[n.Size:]
			it.ref += Ref(n.Size)
			return n, nil
		}
		if !errors.Is(err, errShort) {
			return nil, err
		}
		if it.eof {
			return nil, fmt.Errorf("%w: node at ref %d truncated", ErrCorruptNode, it.ref)
		}
		if err := it.fill(); err != nil {
			return nil, err
		}
	}
}

func (it *diskIter[K]) fill() error {
	want := max(scanChunk, len(it.buf))
	nb := make([]byte, len(it.buf), len(it.buf)+want)
	copy(nb, it.buf)
	k, err := io.ReadFull(it.rc, nb[len(it.buf):cap(nb)])
	it.buf = nb[:len(it.buf)+k]
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		it.eof = true
		return nil
	default:
		return &format.ReadError{Op: "scan layer", Err: err}
	}
}

func (it *diskIter[K]) Close() error {
	if it.rc == nil {
		return nil
	}
	err := it.rc.Close()
	it.rc = nil
	return err
}
