// Package cache keeps fixed-size blocks of immutable index blobs in memory.
//
// Blocks are spread over a power-of-two number of LRU shards, each bounded in
// bytes. A block is never rewritten once cached; callers drop every block of a
// blob when the blob itself is replaced.
package cache
