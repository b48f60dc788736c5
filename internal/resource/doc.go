// Package resource implements the Controller used to govern memory, build
// concurrency and IO across index builds and loads.
//
//   - Memory: Load charges resident layers against the budget. A layer that does
//     not fit stays on-disk instead of failing the load (non-blocking, fail-fast).
//   - Concurrency: parallel layer builds run each chunk through Do.
//   - IO: on-disk node reads and scans wait on a token bucket.
//
// # Memory Budgets
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	budget := rc.NewBudget()
//	if err := budget.Reserve(layerBytes); err != nil {
//	    // ErrMemoryLimitExceeded: keep the layer on disk
//	}
//	defer budget.Release()
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	reader := resource.NewRateLimitedReader(ctx, body, rc)
//	writer := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
