// Package mmap provides read-only memory mapped access to index files.
//
// LocalStore maps index files so that resident layers can alias the mapping
// and on-disk node reads become plain memory copies:
//
//	m, err := mmap.Open("orders.strata")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(0, m.Size(), mmap.Random)
//	layer, _ := m.Slice(offset, length)
//
// On Unix the file is mapped with mmap(2) and hints go to madvise(2). Other
// platforms read the file into memory and ignore hints.
//
// Slices obtained from a Mapping must not be used after Close returns.
package mmap
