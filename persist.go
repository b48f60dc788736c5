package strata

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/strata/blobstore"
	"github.com/hupe1980/strata/codec"
	"github.com/hupe1980/strata/internal/format"
	"github.com/hupe1980/strata/internal/layer"
	"github.com/hupe1980/strata/internal/resource"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

// ResidentAll makes Load keep every layer in memory.
const ResidentAll = -1

// Save writes the index to w. Resident layers are written from memory and
// on-disk layers are copied verbatim from their blob, so a partially loaded
// index saves to the same bytes it was loaded from.
func (ix *Index[K, V]) Save(ctx context.Context, w io.Writer) (err error) {
	if ix.closed.Load() {
		return ErrClosed
	}
	bw := bufio.NewWriterSize(resource.NewRateLimitedWriter(ctx, w, ix.rc), 256<<10)
	cw := &countingWriter{w: bw}
	defer func() { ix.logger.LogSave(ctx, cw.n, err) }()

	h := format.Header{
		Version:    format.Version,
		KeyTag:     uint8(model.TagOf[K]()),
		ValueTag:   ix.codec.Tag(),
		LayerCount: uint32(len(ix.layers)),
	}
	if _, err := cw.Write(h.Append(nil)); err != nil {
		return ioError("write header", err)
	}

	dir := make([]byte, 0, len(ix.layers)*format.DirEntrySize+format.FooterSize)
	for _, l := range ix.layers {
		off := cw.n
		n, err := l.WriteTo(ctx, cw)
		if err != nil {
			return ioError(fmt.Sprintf("write layer %d", l.Depth()), err)
		}
		dir = format.DirEntry{
			Kind:      uint8(l.Spec().Kind),
			Param:     uint32(l.Spec().Param),
			Offset:    uint64(off),
			Length:    uint64(n),
			NodeCount: uint32(l.NodeCount()),
		}.Append(dir)
	}
	dir = format.AppendFooter(dir, uint64(cw.n))

	if _, err := cw.Write(dir); err != nil {
		return ioError("write directory", err)
	}
	return ioError("flush", bw.Flush())
}

// SaveTo saves the index as blob name of store. The blob only appears once
// the save succeeded; on failure the upload is aborted.
func (ix *Index[K, V]) SaveTo(ctx context.Context, store blobstore.BlobStore, name string) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return ioError("create "+name, err)
	}
	if err := ix.Save(ctx, w); err != nil {
		if a, ok := w.(blobstore.Aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return err
	}
	if err := w.Sync(); err != nil {
		if a, ok := w.(blobstore.Aborter); ok {
			_ = a.Abort()
		}
		return ioError("sync "+name, err)
	}
	return ioError("commit "+name, w.Close())
}

// Load opens an index stored in blob. The top resident layers are decoded
// into memory (ResidentAll for every layer); the others are read node by node
// on demand. Layers that do not fit the memory budget of the resource
// controller stay on disk.
//
// The caller keeps ownership of blob and must keep it open until the index is
// closed.
func Load[K model.Key, V any](ctx context.Context, blob blobstore.Blob, resident int, c codec.Codec[V], optFns ...Option) (ix *Index[K, V], err error) {
	o := applyOptions(optFns)
	start := time.Now()
	defer func() {
		inMemory, onDisk := 0, 0
		if ix != nil {
			for _, l := range ix.layers {
				if l.Resident() {
					inMemory++
				} else {
					onDisk++
				}
			}
		}
		o.logger.LogLoad(ctx, inMemory+onDisk, inMemory, err)
		o.metricsCollector.RecordLoad(inMemory, onDisk, time.Since(start), err)
	}()

	if c == nil {
		return nil, fmt.Errorf("%w: nil codec", ErrInvalidInput)
	}

	src := &throttledSource{blob: blob, rc: o.rc}
	layout, err := format.ReadLayout(ctx, src, blob.Size(), validKind)
	if err != nil {
		return nil, translateError(err)
	}
	if err := checkTypes[K](layout.Header, c); err != nil {
		return nil, err
	}
	if err := checkShape(layout.Directory); err != nil {
		return nil, err
	}

	var mapped []byte
	if m, ok := blob.(blobstore.Mappable); ok {
		if b, merr := m.Bytes(); merr == nil {
			mapped = b
		}
	}

	idx := newIndex[K, V](c, o)
	defer func() {
		if err != nil {
			idx.memory.Release()
		}
	}()

	height := len(layout.Directory)
	if resident < 0 || resident > height {
		resident = height
	}

	idx.layers = make([]layer.Layer[K], height)
	demoted := false
	for d := height - 1; d >= 0; d-- {
		e := layout.Directory[d]
		spec := plan.Spec{Kind: plan.Kind(e.Kind), Param: int(e.Param)}
		keep := d >= height-resident && !demoted

		if keep {
			if merr := idx.memory.Reserve(int64(e.Length)); merr != nil {
				o.logger.LogDemotion(ctx, d, int64(e.Length), merr)
				demoted, keep = true, false
			}
		}

		var l layer.Layer[K]
		if keep {
			l, err = loadResident[K](ctx, src, mapped, e, spec, d)
		} else {
			l, err = layer.OpenDisk[K](ctx, src, spec, d, int64(e.Offset), int64(e.Length), int(e.NodeCount))
		}
		if err != nil {
			return nil, translateError(fmt.Errorf("layer %d: %w", d, err))
		}
		o.logger.LogLayer(ctx, d, spec.Kind.String(), spec.Param, l.NodeCount(), l.ByteLen(), l.Resident())
		idx.layers[d] = l
	}

	if base, ok := idx.layers[0].(*layer.Resident[K]); ok {
		idx.count.Store(int64(base.Len()))
	}
	return idx, nil
}

// Open opens blob name of store and loads it like Load. The returned index
// owns the blob and closes it on Close.
func Open[K model.Key, V any](ctx context.Context, store blobstore.BlobStore, name string, resident int, c codec.Codec[V], optFns ...Option) (*Index[K, V], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, ioError("open "+name, err)
	}
	ix, err := Load[K, V](ctx, blob, resident, c, optFns...)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	ix.closer = blob
	return ix, nil
}

func loadResident[K model.Key](ctx context.Context, src layer.Source, mapped []byte, e format.DirEntry, spec plan.Spec, depth int) (*layer.Resident[K], error) {
	var buf []byte
	if mapped != nil {
		buf = mapped[e.Offset:e.End():e.End()]
	} else {
		buf = make([]byte, e.Length)
		if err := format.ReadFull(ctx, src, buf, int64(e.Offset), "read layer"); err != nil {
			return nil, err
		}
	}
	l, err := layer.NewResident[K](buf, spec, depth)
	if err != nil {
		return nil, err
	}
	if l.NodeCount() != int(e.NodeCount) {
		return nil, fmt.Errorf("%w: %d nodes, directory says %d", layer.ErrCorruptNode, l.NodeCount(), e.NodeCount)
	}
	return l, nil
}

func validKind(k uint8) bool { return plan.Kind(k).Valid() }

func checkTypes[K model.Key, V any](h format.Header, c codec.Codec[V]) error {
	if want := model.TagOf[K](); model.KeyTag(h.KeyTag) != want {
		return fmt.Errorf("%w: file has %s keys, want %s", ErrTypeMismatch, model.KeyTag(h.KeyTag), want)
	}
	if h.ValueTag != c.Tag() {
		return fmt.Errorf("%w: file has %s values, want %s", ErrTypeMismatch, codec.NameOf(h.ValueTag), c.Name())
	}
	return nil
}

// checkShape requires a base layer and a single root node unless the index is
// empty.
func checkShape(dir []format.DirEntry) error {
	if len(dir) == 0 {
		return fmt.Errorf("%w: no layers", ErrCorruptFormat)
	}
	top := dir[len(dir)-1]
	empty := len(dir) == 1 && top.NodeCount == 0
	if top.NodeCount != 1 && !empty {
		return fmt.Errorf("%w: root layer has %d nodes", ErrCorruptFormat, top.NodeCount)
	}
	for d, e := range dir[:len(dir)-1] {
		if e.NodeCount == 0 {
			return fmt.Errorf("%w: layer %d is empty", ErrCorruptFormat, d)
		}
	}
	return nil
}

// FileInfo describes an index file without decoding any layer.
type FileInfo struct {
	Version    uint32
	KeyType    string
	KeyTag     uint8
	ValueCodec string
	ValueTag   uint8
	Size       int64
	Layers     []LayerInfo
}

// LayerInfo is one directory entry.
type LayerInfo struct {
	Depth  int
	Kind   string
	Param  int
	Offset int64
	Length int64
	Nodes  int
}

// Inspect reads the header and directory of blob.
func Inspect(ctx context.Context, blob blobstore.Blob) (*FileInfo, error) {
	layout, err := format.ReadLayout(ctx, blob, blob.Size(), validKind)
	if err != nil {
		return nil, translateError(err)
	}
	if err := checkShape(layout.Directory); err != nil {
		return nil, err
	}

	h := layout.Header
	info := &FileInfo{
		Version:    h.Version,
		KeyType:    model.KeyTag(h.KeyTag).String(),
		KeyTag:     h.KeyTag,
		ValueCodec: codec.NameOf(h.ValueTag),
		ValueTag:   h.ValueTag,
		Size:       layout.Size,
		Layers:     make([]LayerInfo, len(layout.Directory)),
	}
	for d, e := range layout.Directory {
		info.Layers[d] = LayerInfo{
			Depth:  d,
			Kind:   plan.Kind(e.Kind).String(),
			Param:  int(e.Param),
			Offset: int64(e.Offset),
			Length: int64(e.Length),
			Nodes:  int(e.NodeCount),
		}
	}
	return info, nil
}

// throttledSource charges blob reads against the controller's IO budget.
type throttledSource struct {
	blob blobstore.Blob
	rc   *resource.Controller
}

func (s *throttledSource) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := s.rc.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return s.blob.ReadAt(ctx, p, off)
}

func (s *throttledSource) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := s.blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return resource.NewRateLimitedReader(ctx, rc, s.rc), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}
