package strata

import (
	"log/slog"

	"github.com/hupe1980/strata/internal/resource"
)

const (
	// DefaultMaxDepth is the default limit on the number of layers.
	DefaultMaxDepth = 32

	// MinMaxDepth is the smallest accepted layer limit: a base layer plus a root.
	MinMaxDepth = 2
)

// ResourceController bounds memory, background work and IO of an index.
// Create one with NewResourceController and share it between indexes.
type ResourceController = resource.Controller

// ResourceConfig holds the limits of a ResourceController.
type ResourceConfig = resource.Config

// NewResourceController creates a controller enforcing cfg.
func NewResourceController(cfg ResourceConfig) *ResourceController {
	return resource.NewController(cfg)
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	maxDepth         int
	parallelism      int
	rc               *resource.Controller
}

// Option configures Build, Load and Open.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		maxDepth:         DefaultMaxDepth,
		parallelism:      1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// WithLogger sets the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel enables text logging to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &strata.BasicMetricsCollector{}
//	idx, _ := strata.Build(ctx, entries, p, codec.String{}, strata.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMaxDepth limits the number of layers. When the limit is reached, the
// remaining anchors are wrapped into one flat root node. Values below
// MinMaxDepth are raised to it.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = max(n, MinMaxDepth)
	}
}

// WithBuildParallelism sets how many chunks of a layer are built concurrently.
// BTree layers come out byte-identical to a sequential build. Model layers
// may end a segment at each chunk boundary.
func WithBuildParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = max(n, 1)
	}
}

// WithResourceController shares a resource controller. The controller's
// memory limit caps the bytes of resident layers on load, its background
// limit caps concurrent chunk builds and its IO limit throttles reads of
// on-disk layers and writes of Save.
func WithResourceController(rc *ResourceController) Option {
	return func(o *options) {
		o.rc = rc
	}
}
