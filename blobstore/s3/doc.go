// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = idx.SaveTo(ctx, store, "orders.strata")
//	loaded, err := strata.Open[int64](ctx, store, "orders.strata", 2, codec.String{})
//
// Open issues one HeadObject to learn the object size. On-disk node reads are
// single ranged GETs and range scans stream one ranged GET per layer. Saves
// use the multipart uploader with CRC32C checksums.
package s3
