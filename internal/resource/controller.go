package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the
// memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits. Zero values mean unlimited, except for
// MaxBackgroundWorkers which defaults to 1.
type Config struct {
	// MemoryLimitBytes caps the bytes of resident layers and cached blocks.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers caps concurrent chunk builds.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec caps on-disk layer reads and Save writes.
	IOLimitBytesPerSec int64
}

// Controller is shared by the indexes and caches of a process. A nil
// *Controller imposes no limits.
type Controller struct {
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a controller enforcing cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{
		bgSem: semaphore.NewWeighted(max(cfg.MaxBackgroundWorkers, 1)),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireMemory reserves bytes without blocking, failing with
// ErrMemoryLimitExceeded when they do not fit.
func (c *Controller) AcquireMemory(bytes int64) error {
	if !c.TryAcquireMemory(bytes) {
		return ErrMemoryLimitExceeded
	}
	return nil
}

// TryAcquireMemory reserves bytes and reports whether it succeeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns bytes reserved earlier.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// Do runs fn while holding a background worker slot.
func (c *Controller) Do(ctx context.Context, fn func() error) error {
	if c == nil {
		return fn()
	}
	if err := c.bgSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.bgSem.Release(1)
	return fn()
}

// AcquireIO waits until the IO limit admits bytes. Requests larger than the
// limiter burst are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// Budget groups the memory reservations of one owner, typically the resident
// layers of a loaded index, so they can be returned at once.
type Budget struct {
	c    *Controller
	mu   sync.Mutex
	held int64
}

// NewBudget returns an empty budget drawing from c.
func (c *Controller) NewBudget() *Budget {
	return &Budget{c: c}
}

// Reserve adds bytes to the budget, failing fast like AcquireMemory.
func (b *Budget) Reserve(bytes int64) error {
	if err := b.c.AcquireMemory(bytes); err != nil {
		return err
	}
	b.mu.Lock()
	b.held += max(bytes, 0)
	b.mu.Unlock()
	return nil
}

// Held returns the reserved bytes.
func (b *Budget) Held() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held
}

// Release returns every reservation. It is safe to call more than once.
func (b *Budget) Release() {
	b.mu.Lock()
	held := b.held
	b.held = 0
	b.mu.Unlock()
	b.c.ReleaseMemory(held)
}
