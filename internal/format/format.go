package format

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic   = "STRA"
	Version = 1

	HeaderSize   = 4 + 4 + 1 + 1 + 4
	DirEntrySize = 1 + 4 + 8 + 8 + 4
	FooterSize   = 8

	// LayerPrefixSize is the node_count preceding the nodes of every layer.
	LayerPrefixSize = 4
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("truncated file")
	ErrCorrupt        = errors.New("corrupt layout")
)

// ReadError wraps a failure reported by the underlying storage.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// ReaderAt is the context-aware random access reader used for index files.
type ReaderAt interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
}

// ReadFull reads exactly len(p) bytes at off. A short read is reported as
// ErrTruncated, any other failure as a *ReadError.
func ReadFull(ctx context.Context, r ReaderAt, p []byte, off int64, op string) error {
	n, err := r.ReadAt(ctx, p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: read %d of %d bytes at offset %d", ErrTruncated, op, n, len(p), off)
	}
	return &ReadError{Op: op, Err: err}
}

// Header is the fixed-size file prefix.
type Header struct {
	Version    uint32
	KeyTag     uint8
	ValueTag   uint8
	LayerCount uint32
}

// Append encodes the header (including magic) and appends it to dst.
func (h Header) Append(dst []byte) []byte {
	dst = append(dst, Magic...)
	dst = binary.LittleEndian.AppendUint32(dst, h.Version)
	dst = append(dst, h.KeyTag, h.ValueTag)
	return binary.LittleEndian.AppendUint32(dst, h.LayerCount)
}

// DecodeHeader decodes and checks a header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header", ErrTruncated)
	}
	if string(buf[:4]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:    binary.LittleEndian.Uint32(buf[4:]),
		KeyTag:     buf[8],
		ValueTag:   buf[9],
		LayerCount: binary.LittleEndian.Uint32(buf[10:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	return h, nil
}

// DirEntry locates one layer in the file.
type DirEntry struct {
	Kind      uint8
	Param     uint32
	Offset    uint64
	Length    uint64
	NodeCount uint32
}

// End returns the offset just past the layer.
func (e DirEntry) End() uint64 {
	return e.Offset + e.Length
}

// Append encodes the entry and appends it to dst.
func (e DirEntry) Append(dst []byte) []byte {
	dst = append(dst, e.Kind)
	dst = binary.LittleEndian.AppendUint32(dst, e.Param)
	dst = binary.LittleEndian.AppendUint64(dst, e.Offset)
	dst = binary.LittleEndian.AppendUint64(dst, e.Length)
	return binary.LittleEndian.AppendUint32(dst, e.NodeCount)
}

// DecodeDirectory decodes n consecutive directory entries.
func DecodeDirectory(buf []byte, n int) ([]DirEntry, error) {
	if len(buf) < n*DirEntrySize {
		return nil, fmt.Errorf("%w: directory", ErrTruncated)
	}
	dir := make([]DirEntry, n)
	for i := range dir {
		b := buf[i*DirEntrySize:]
		dir[i] = DirEntry{
			Kind:      b[0],
			Param:     binary.LittleEndian.Uint32(b[1:]),
			Offset:    binary.LittleEndian.Uint64(b[5:]),
			Length:    binary.LittleEndian.Uint64(b[13:]),
			NodeCount: binary.LittleEndian.Uint32(b[21:]),
		}
	}
	return dir, nil
}

// AppendFooter appends the directory pointer.
func AppendFooter(dst []byte, directoryOffset uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, directoryOffset)
}
