package spatialgo

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
//	    applyCounter   prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordApply(changes, restructured int, duration time.Duration, err error) {
//	    p.applyCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordApply is called after each batch apply.
	// changes is the number of changes attempted, restructured the number of
	// split/collapse operations performed, duration the total time taken,
	// err is nil if the batch was accepted.
	RecordApply(changes, restructured int, duration time.Duration, err error)

	// RecordRemove is called after each single-entity removal.
	RecordRemove(duration time.Duration, err error)

	// RecordRangeQuery is called after each range query.
	// results is the number of hits returned.
	RecordRangeQuery(results int, duration time.Duration, err error)

	// RecordKNearestQuery is called after each k-nearest query.
	// k is the number of neighbors requested, results the number found.
	RecordKNearestQuery(k, results int, duration time.Duration, err error)

	// RecordRayQuery is called after each ray query.
	RecordRayQuery(results int, duration time.Duration, err error)

	// RecordDepthSaturation is called when a partition exceeds the split
	// threshold but cannot subdivide because it is at maximum depth.
	// count is the member count of the saturated partition.
	RecordDepthSaturation(count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordApply(int, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)                  {}
func (NoopMetricsCollector) RecordRangeQuery(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordKNearestQuery(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRayQuery(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordDepthSaturation(int)                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ApplyCount        atomic.Int64
	ApplyErrors       atomic.Int64
	ApplyChanges      atomic.Int64
	ApplyRestructured atomic.Int64
	ApplyTotalNanos   atomic.Int64
	RemoveCount       atomic.Int64
	RemoveErrors      atomic.Int64
	RangeCount        atomic.Int64
	RangeErrors       atomic.Int64
	RangeTotalNanos   atomic.Int64
	KNearestCount     atomic.Int64
	KNearestErrors    atomic.Int64
	KNearestNanos     atomic.Int64
	RayCount          atomic.Int64
	RayErrors         atomic.Int64
	RayTotalNanos     atomic.Int64
	DepthSaturations  atomic.Int64
}

// RecordApply implements MetricsCollector.
func (b *BasicMetricsCollector) RecordApply(changes, restructured int, duration time.Duration, err error) {
	b.ApplyCount.Add(1)
	b.ApplyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ApplyErrors.Add(1)
		return
	}
	b.ApplyChanges.Add(int64(changes))
	b.ApplyRestructured.Add(int64(restructured))
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordRangeQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRangeQuery(results int, duration time.Duration, err error) {
	b.RangeCount.Add(1)
	b.RangeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RangeErrors.Add(1)
	}
}

// RecordKNearestQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKNearestQuery(k, results int, duration time.Duration, err error) {
	b.KNearestCount.Add(1)
	b.KNearestNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.KNearestErrors.Add(1)
	}
}

// RecordRayQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRayQuery(results int, duration time.Duration, err error) {
	b.RayCount.Add(1)
	b.RayTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RayErrors.Add(1)
	}
}

// RecordDepthSaturation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDepthSaturation(count int) {
	b.DepthSaturations.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ApplyCount:        b.ApplyCount.Load(),
		ApplyErrors:       b.ApplyErrors.Load(),
		ApplyChanges:      b.ApplyChanges.Load(),
		ApplyRestructured: b.ApplyRestructured.Load(),
		ApplyAvgNanos:     avgNanos(&b.ApplyTotalNanos, &b.ApplyCount),
		RemoveCount:       b.RemoveCount.Load(),
		RemoveErrors:      b.RemoveErrors.Load(),
		RangeCount:        b.RangeCount.Load(),
		RangeErrors:       b.RangeErrors.Load(),
		RangeAvgNanos:     avgNanos(&b.RangeTotalNanos, &b.RangeCount),
		KNearestCount:     b.KNearestCount.Load(),
		KNearestErrors:    b.KNearestErrors.Load(),
		KNearestAvgNanos:  avgNanos(&b.KNearestNanos, &b.KNearestCount),
		RayCount:          b.RayCount.Load(),
		RayErrors:         b.RayErrors.Load(),
		RayAvgNanos:       avgNanos(&b.RayTotalNanos, &b.RayCount),
		DepthSaturations:  b.DepthSaturations.Load(),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ApplyCount        int64
	ApplyErrors       int64
	ApplyChanges      int64
	ApplyRestructured int64
	ApplyAvgNanos     int64
	RemoveCount       int64
	RemoveErrors      int64
	RangeCount        int64
	RangeErrors       int64
	RangeAvgNanos     int64
	KNearestCount     int64
	KNearestErrors    int64
	KNearestAvgNanos  int64
	RayCount          int64
	RayErrors         int64
	RayAvgNanos       int64
	DepthSaturations  int64
}
