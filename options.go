package spatialgo

import (
	"log/slog"

	"github.com/hupe1980/spatialgo/grid"
	"github.com/hupe1980/spatialgo/query"
)

type options struct {
	cellSize                  float64
	splitThreshold            int
	collapseThreshold         int
	combinedCollapseThreshold int
	maxDepth                  int
	radiusCap                 float64
	rayStepFraction           float64
	restructuresPerSec        float64
	maxBatchSize              int
	metricsCollector          MetricsCollector
	logger                    *Logger
}

// Option configures Index construction.
type Option func(*options)

// WithCellSize sets the edge length of a base-grid cell in world units.
// Rule of thumb: around twice the typical query radius. Default 20.
func WithCellSize(cellSize float64) Option {
	return func(o *options) {
		o.cellSize = cellSize
	}
}

// WithSplitThreshold sets the member count above which a partition
// subdivides (T_high). Default 50.
func WithSplitThreshold(n int) Option {
	return func(o *options) {
		o.splitThreshold = n
	}
}

// WithCollapseThreshold sets the member count below which a child partition
// becomes a collapse candidate (T_low). Keep it well under the split
// threshold; the gap is the hysteresis that prevents split/collapse
// thrashing. Default 12.
func WithCollapseThreshold(n int) Option {
	return func(o *options) {
		o.collapseThreshold = n
	}
}

// WithCombinedCollapseThreshold bounds the union of sibling member counts
// for a collapse to proceed. Default: half the split threshold.
func WithCombinedCollapseThreshold(n int) Option {
	return func(o *options) {
		o.combinedCollapseThreshold = n
	}
}

// WithMaxDepth caps subdivision depth. A partition at the cap that still
// exceeds the split threshold stays flat and is reported through the metrics
// collector as depth saturation. Default 3.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithRadiusCap sets the hard cap on the k-nearest expanding-ring radius, in
// world units. Default 1000.
func WithRadiusCap(radius float64) Option {
	return func(o *options) {
		o.radiusCap = radius
	}
}

// WithRayStepFraction sets the ray-walk sample step as a fraction of the
// base cell size. Values outside (0, 0.5] are clamped to 0.5. Default 0.5.
func WithRayStepFraction(fraction float64) Option {
	return func(o *options) {
		o.rayStepFraction = fraction
	}
}

// WithRestructureBudget bounds the rate of split/collapse operations across
// batches. Restructuring beyond the budget defers to a later batch, trading
// tighter partition occupancy for a bounded per-tick cost. Zero (the
// default) means unlimited.
func WithRestructureBudget(opsPerSec float64) Option {
	return func(o *options) {
		o.restructuresPerSec = opsPerSec
	}
}

// WithMaxBatchSize rejects oversized batches before any work is done.
// Zero (the default) means unlimited.
func WithMaxBatchSize(n int) Option {
	return func(o *options) {
		o.maxBatchSize = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &spatialgo.BasicMetricsCollector{}
//	idx, _ := spatialgo.New(spatialgo.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations. Pass nil to
// disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		cellSize:          grid.DefaultOptions.CellSize,
		splitThreshold:    grid.DefaultRebalancerOptions.SplitThreshold,
		collapseThreshold: grid.DefaultRebalancerOptions.CollapseThreshold,
		maxDepth:          grid.DefaultRebalancerOptions.MaxDepth,
		radiusCap:         query.DefaultOptions.RadiusCap,
		rayStepFraction:   query.DefaultOptions.StepFraction,
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
