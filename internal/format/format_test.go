package format

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bytesReader []byte

func (b bytesReader) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}

type failingReader struct{ err error }

func (f failingReader) ReadAt(context.Context, []byte, int64) (int, error) { return 0, f.err }

// buildFile lays out layers of the given sizes and returns the file bytes.
func buildFile(t *testing.T, layerSizes ...int) []byte {
	t.Helper()

	h := Header{Version: Version, KeyTag: 2, ValueTag: 1, LayerCount: uint32(len(layerSizes))}
	buf := h.Append(nil)
	var dir []DirEntry
	for _, n := range layerSizes {
		dir = append(dir, DirEntry{Kind: 1, Param: 2, Offset: uint64(len(buf)), Length: uint64(n), NodeCount: 1})
		buf = append(buf, make([]byte, n)...)
	}
	dirOff := uint64(len(buf))
	for _, e := range dir {
		buf = e.Append(buf)
	}
	return AppendFooter(buf, dirOff)
}

func TestHeader(t *testing.T) {
	h := Header{Version: Version, KeyTag: 2, ValueTag: 16, LayerCount: 3}
	buf := h.Append(nil)
	require.Len(t, buf, HeaderSize)
	assert.Equal(t, []byte("STRA"), buf[:4])
	assert.Equal(t, []byte{1, 0, 0, 0}, buf[4:8])

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	bad := bytes.Clone(buf)
	bad[0] = 'X'
	_, err = DecodeHeader(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	bad = bytes.Clone(buf)
	bad[4] = 9
	_, err = DecodeHeader(bad)
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = DecodeHeader(buf[:5])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDirEntry(t *testing.T) {
	e := DirEntry{Kind: 2, Param: 8, Offset: 14, Length: 1 << 33, NodeCount: 7}
	buf := e.Append(nil)
	require.Len(t, buf, DirEntrySize)

	dir, err := DecodeDirectory(append(buf, buf...), 2)
	require.NoError(t, err)
	assert.Equal(t, []DirEntry{e, e}, dir)
	assert.Equal(t, uint64(14+1<<33), e.End())
}

func TestReadLayout(t *testing.T) {
	ctx := context.Background()
	validKind := func(k uint8) bool { return k == 1 || k == 2 }

	t.Run("valid", func(t *testing.T) {
		file := buildFile(t, 10, 4)
		l, err := ReadLayout(ctx, bytesReader(file), int64(len(file)), validKind)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), l.Header.LayerCount)
		assert.Equal(t, uint64(HeaderSize), l.Directory[0].Offset)
		assert.Equal(t, uint64(HeaderSize+10), l.Directory[1].Offset)
		assert.Equal(t, uint64(HeaderSize+14), l.DirectoryOffset)
	})

	t.Run("too small", func(t *testing.T) {
		_, err := ReadLayout(ctx, bytesReader(nil), 3, validKind)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("truncated directory", func(t *testing.T) {
		file := buildFile(t, 10)
		// Drop a directory byte but keep the footer.
		cut := append(bytes.Clone(file[:len(file)-FooterSize-1]), file[len(file)-FooterSize:]...)
		_, err := ReadLayout(ctx, bytesReader(cut), int64(len(cut)), validKind)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("unknown kind", func(t *testing.T) {
		file := buildFile(t, 10)
		file[HeaderSize+10] = 9
		_, err := ReadLayout(ctx, bytesReader(file), int64(len(file)), validKind)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("misplaced layer", func(t *testing.T) {
		file := buildFile(t, 10)
		file[HeaderSize+10+5]++ // offset low byte
		_, err := ReadLayout(ctx, bytesReader(file), int64(len(file)), validKind)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("read failure", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := ReadLayout(ctx, failingReader{boom}, 100, validKind)
		var re *ReadError
		require.ErrorAs(t, err, &re)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("short read", func(t *testing.T) {
		_, err := ReadLayout(ctx, failingReader{io.EOF}, 100, validKind)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}
