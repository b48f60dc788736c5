package strata

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    getCounter   prometheus.Counter
//	    getHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordGet(found bool, duration time.Duration, err error) {
//	    p.getCounter.Inc()
//	    p.getHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordBuild is called after each build.
	// entries is the input size, layers the height of the resulting stack.
	RecordBuild(entries, layers int, duration time.Duration, err error)

	// RecordLoad is called after each load with the number of resident and
	// on-disk layers.
	RecordLoad(resident, onDisk int, duration time.Duration, err error)

	// RecordGet is called after each point lookup.
	RecordGet(found bool, duration time.Duration, err error)

	// RecordRange is called once per range cursor, when it is exhausted or
	// closed. items is the number of entries it returned.
	RecordRange(items int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordGet(bool, time.Duration, error)       {}
func (NoopMetricsCollector) RecordRange(int, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildEntries    atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	OnDiskLayers    atomic.Int64
	GetCount        atomic.Int64
	GetHits         atomic.Int64
	GetErrors       atomic.Int64
	GetTotalNanos   atomic.Int64
	RangeCount      atomic.Int64
	RangeItems      atomic.Int64
	RangeErrors     atomic.Int64
	RangeTotalNanos atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(entries, _ int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildEntries.Add(int64(entries))
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_, onDisk int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	b.OnDiskLayers.Add(int64(onDisk))
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(found bool, duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if found {
		b.GetHits.Add(1)
	}
	if err != nil {
		b.GetErrors.Add(1)
	}
}

// RecordRange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRange(items int, duration time.Duration, err error) {
	b.RangeCount.Add(1)
	b.RangeItems.Add(int64(items))
	b.RangeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RangeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildEntries:  b.BuildEntries.Load(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		OnDiskLayers:  b.OnDiskLayers.Load(),
		GetCount:      b.GetCount.Load(),
		GetHits:       b.GetHits.Load(),
		GetErrors:     b.GetErrors.Load(),
		GetAvgNanos:   avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		RangeCount:    b.RangeCount.Load(),
		RangeItems:    b.RangeItems.Load(),
		RangeErrors:   b.RangeErrors.Load(),
		RangeAvgNanos: avg(b.RangeTotalNanos.Load(), b.RangeCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildEntries  int64
	LoadCount     int64
	LoadErrors    int64
	OnDiskLayers  int64
	GetCount      int64
	GetHits       int64
	GetErrors     int64
	GetAvgNanos   int64
	RangeCount    int64
	RangeItems    int64
	RangeErrors   int64
	RangeAvgNanos int64
}
