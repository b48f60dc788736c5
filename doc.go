// Package strata builds and queries immutable hybrid indexes.
//
// A hybrid index is a stack of layers. Layer 0 holds the sorted entries, and
// every layer above indexes the nodes of the layer beneath it, up to a single
// root node. Each depth may use a different algorithm:
//
//   - btree(fanout): fixed-size nodes searched by binary search.
//   - pgm(epsilon): error-bounded piecewise-linear models. A lookup predicts
//     the position of a key and searches only epsilon positions around it.
//
// The assignment of algorithms to depths is a plan:
//
//	p, _ := plan.Parse("0 => pgm(16), _ => btree(64)")
//
// # Quick Start
//
//	entries := []model.Entry[int64, string]{{Key: 1, Value: "a"}, {Key: 3, Value: "b"}}
//	idx, err := strata.Build(ctx, entries, p, codec.String{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, ok, err := idx.Get(ctx, 3)
//
//	cur := idx.Range(ctx, 0, 10)
//	defer cur.Close()
//	for cur.Next() {
//	    fmt.Println(cur.Key(), cur.Value())
//	}
//
// # Persistence
//
// An index is saved as one file: header, layers, directory and footer. Load
// keeps only the top layers in memory and reads the rest node by node:
//
//	store := blobstore.NewLocalStore("./data")
//	_ = idx.SaveTo(ctx, store, "orders.strata")
//
//	// Root and one more layer in memory, everything below on disk.
//	idx, err := strata.Open[int64](ctx, store, "orders.strata", 2, codec.String{})
//	defer idx.Close()
//
// Any blobstore.BlobStore works as backing storage, including S3 (blobstore/s3)
// and MinIO (blobstore/minio). Wrap remote stores with
// blobstore.NewCachingStore to cache node reads.
//
// # Errors
//
// Failures are classified by ErrInvalidInput, ErrInvalidPlan, ErrBuild,
// ErrCorruptFormat (with ErrTypeMismatch), ErrIO and ErrClosed. An absent key
// is not an error: Get reports it with ok == false.
//
// # Concurrency
//
// Indexes never change after Build or Load. Get and Range may be called from
// any number of goroutines; each Cursor belongs to one goroutine.
package strata
