// Package model defines the key and entry types shared by every layer of an index.
//
// # Keys
//
// Keys are fixed-width numeric values. The supported set is closed because the
// file format records the key type as a one-byte tag:
//
//   - int32   (tag 1, 4 bytes)
//   - int64   (tag 2, 8 bytes)
//   - uint32  (tag 3, 4 bytes)
//   - uint64  (tag 4, 8 bytes)
//   - float64 (tag 5, 8 bytes, NaN rejected)
//
// All keys are encoded little-endian.
//
// # Entries
//
// An Entry pairs a key with an opaque value. Builders consume entries sorted
// strictly ascending by key.
package model
