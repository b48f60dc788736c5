//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int64) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

// advise widens [off, off+n) to page boundaries, as madvise requires.
func advise(data []byte, off, n int64, h Hint) error {
	page := int64(os.Getpagesize())
	lo := off &^ (page - 1)
	hi := min((off+n+page-1)&^(page-1), int64(len(data)))

	advice := unix.MADV_RANDOM
	if h == Sequential {
		advice = unix.MADV_SEQUENTIAL
	}
	return unix.Madvise(data[lo:hi], advice)
}
