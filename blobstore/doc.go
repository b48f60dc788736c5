// Package blobstore provides the storage abstraction index files are saved to
// and loaded from.
//
// Index files are immutable once written. Loading reads the header, the
// directory and the resident layers up front; on-disk layers are then served
// by ReadAt (single nodes) and ReadRange (range scans) on the same Blob.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads and atomic rename writes
//   - MemoryStore: in-memory, for tests
//   - CachingStore: block cache in front of any other store
//   - s3.Store: Amazon S3 with ranged GETs and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
