package fs

import (
	"fmt"
	"math/rand/v2"
	"os"
)

// AtomicFile is written under a temporary sibling name and renamed into place
// by Close. Readers never observe a partially written file.
type AtomicFile struct {
	fsys FileSystem
	f    File
	path string
	tmp  string
	done bool
}

// CreateAtomic creates the temporary file for path.
func CreateAtomic(fsys FileSystem, path string) (*AtomicFile, error) {
	tmp := fmt.Sprintf("%s.%016x.tmp", path, rand.Uint64())
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AtomicFile{fsys: fsys, f: f, path: path, tmp: tmp}, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) { return a.f.Write(p) }

// Sync flushes the temporary file.
func (a *AtomicFile) Sync() error { return a.f.Sync() }

// Close syncs the temporary file and renames it to its final name. On any
// failure the temporary file is removed.
func (a *AtomicFile) Close() error {
	if a.done {
		return nil
	}
	a.done = true

	err := a.f.Sync()
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = a.fsys.Rename(a.tmp, a.path)
	}
	if err != nil {
		_ = a.fsys.Remove(a.tmp)
	}
	return err
}

// Abort discards the temporary file.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.f.Close()
	return a.fsys.Remove(a.tmp)
}
