package format

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Layout is the decoded header and directory of an index file.
type Layout struct {
	Header          Header
	Directory       []DirEntry
	DirectoryOffset uint64
	Size            int64
}

// ReadLayout reads the footer, header and directory of a file of the given size
// and validates that every layer lies inside the data region.
//
// validKind reports whether a directory kind tag is known to the caller.
func ReadLayout(ctx context.Context, r ReaderAt, size int64, validKind func(uint8) bool) (*Layout, error) {
	if size < HeaderSize+FooterSize {
		return nil, fmt.Errorf("%w: file of %d bytes", ErrTruncated, size)
	}

	hbuf := make([]byte, HeaderSize)
	if err := ReadFull(ctx, r, hbuf, 0, "read header"); err != nil {
		return nil, err
	}
	h, err := DecodeHeader(hbuf)
	if err != nil {
		return nil, err
	}

	fbuf := make([]byte, FooterSize)
	if err := ReadFull(ctx, r, fbuf, size-FooterSize, "read footer"); err != nil {
		return nil, err
	}
	dirOff := binary.LittleEndian.Uint64(fbuf)

	dirLen := uint64(h.LayerCount) * DirEntrySize
	if dirOff < HeaderSize || dirOff > uint64(size) || uint64(size)-dirOff != dirLen+FooterSize {
		return nil, fmt.Errorf("%w: directory at %d with %d layers does not fit file of %d bytes",
			ErrTruncated, dirOff, h.LayerCount, size)
	}

	dbuf := make([]byte, dirLen)
	if err := ReadFull(ctx, r, dbuf, int64(dirOff), "read directory"); err != nil {
		return nil, err
	}
	dir, err := DecodeDirectory(dbuf, int(h.LayerCount))
	if err != nil {
		return nil, err
	}

	l := &Layout{Header: h, Directory: dir, DirectoryOffset: dirOff, Size: size}
	if err := l.validate(validKind); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) validate(validKind func(uint8) bool) error {
	next := uint64(HeaderSize)
	for i, e := range l.Directory {
		if validKind != nil && !validKind(e.Kind) {
			return fmt.Errorf("%w: layer %d has unknown kind %d", ErrCorrupt, i, e.Kind)
		}
		if e.Offset != next {
			return fmt.Errorf("%w: layer %d starts at %d, expected %d", ErrCorrupt, i, e.Offset, next)
		}
		if e.Length < LayerPrefixSize || e.Length > l.DirectoryOffset-e.Offset {
			return fmt.Errorf("%w: layer %d length %d out of bounds", ErrCorrupt, i, e.Length)
		}
		next = e.End()
	}
	if next != l.DirectoryOffset {
		return fmt.Errorf("%w: %d unaccounted bytes before directory", ErrCorrupt, l.DirectoryOffset-next)
	}
	return nil
}
