// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. This package
// uses the official MinIO Go client library and works with other S3-compatible
// storage systems like Ceph, SeaweedFS, and Garage.
//
// # Basic Usage
//
//	store, err := minioblob.Connect(minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "my-bucket", "indexes/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	idx, err := strata.Open[int64](ctx, store, "orders.strata", 1, codec.String{})
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
