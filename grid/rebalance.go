package grid

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/spatialgo/geo"
)

// RebalancerOptions contains configuration options for the rebalancer.
//
// SplitThreshold and CollapseThreshold form a hysteresis band: collapse fires
// well below the split point so an entity hovering near a boundary cannot
// oscillate the structure every batch.
type RebalancerOptions struct {
	// SplitThreshold is the member count above which a leaf subdivides
	// (T_high).
	SplitThreshold int

	// CollapseThreshold is the member count below which a child leaf becomes
	// a collapse candidate (T_low). Must be well under SplitThreshold.
	CollapseThreshold int

	// CombinedCollapseThreshold bounds the union of sibling counts for a
	// collapse to proceed. If 0, SplitThreshold/2 is used.
	CombinedCollapseThreshold int

	// MaxDepth caps subdivision depth. A leaf at MaxDepth that still exceeds
	// SplitThreshold stays flat and degrades to a linear scan.
	MaxDepth int

	// RestructuresPerSec, when positive, bounds the rate of split/collapse
	// operations across batches. Work beyond the budget is deferred to a
	// later batch. Zero means unlimited.
	RestructuresPerSec float64

	// RestructureBurst is the limiter burst when RestructuresPerSec is set.
	// If 0, a burst equal to SplitThreshold is used.
	RestructureBurst int
}

// DefaultRebalancerOptions contains the default configuration options for the
// rebalancer.
var DefaultRebalancerOptions = RebalancerOptions{
	SplitThreshold:    50,
	CollapseThreshold: 12,
	MaxDepth:          3,
}

// Rebalancer keeps each partition's flat member count inside the target band
// by splitting crowded leaves and collapsing sparse sibling groups.
//
// It runs once per applied batch over the touched partitions only, so its
// cost is bounded by the batch footprint times a constant restructure cost.
type Rebalancer struct {
	store   *Store
	opts    RebalancerOptions
	limiter *rate.Limiter

	// OnDepthSaturation, if set, is called whenever a leaf at MaxDepth is
	// observed over the split threshold. Observable degradation, not an
	// error.
	OnDepthSaturation func(key geo.CellKey, count int)
}

// NewRebalancer creates a rebalancer over store.
func NewRebalancer(store *Store, optFns ...func(o *RebalancerOptions)) *Rebalancer {
	opts := DefaultRebalancerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.CombinedCollapseThreshold <= 0 {
		opts.CombinedCollapseThreshold = opts.SplitThreshold / 2
	}

	r := &Rebalancer{store: store, opts: opts}
	if opts.RestructuresPerSec > 0 {
		burst := opts.RestructureBurst
		if burst <= 0 {
			burst = opts.SplitThreshold
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RestructuresPerSec), burst)
	}
	return r
}

// Options returns the effective rebalancer configuration.
func (r *Rebalancer) Options() RebalancerOptions { return r.opts }

// Rebalance restructures the touched partitions after a batch and returns the
// number of split/collapse operations performed. touched must contain leaf
// refs; duplicates are tolerated.
//
// Splits run first (top-down from each touched leaf), collapses second
// (bottom-up, at most once per parent per call).
func (r *Rebalancer) Rebalance(touched []Ref, locate LocateFunc) int {
	restructured := 0
	collapsed := make(map[Ref]struct{})

	for _, ref := range touched {
		if !r.store.arena[ref].alive || r.store.Subdivided(ref) {
			// Already restructured via an earlier touched sibling.
			continue
		}
		restructured += r.splitDeep(ref, locate)
	}

	for _, ref := range touched {
		for {
			p := &r.store.arena[ref]
			if !p.alive || p.subdivided || len(p.members) >= r.opts.CollapseThreshold {
				break
			}
			parent := p.parent
			if parent == NilRef {
				break
			}
			if _, done := collapsed[parent]; done {
				break
			}
			if !r.store.AllFlatChildren(parent) ||
				r.store.SubtreeCount(parent) >= r.opts.CombinedCollapseThreshold {
				break
			}
			if !r.allow() {
				break
			}
			r.store.Collapse(parent)
			collapsed[parent] = struct{}{}
			restructured++
			// The parent is now a sparse leaf itself; walk up.
			ref = parent
		}
	}

	return restructured
}

// splitDeep subdivides ref while it exceeds the split threshold, recursing
// into any child that is still over the line, and returns the number of
// splits performed.
func (r *Rebalancer) splitDeep(ref Ref, locate LocateFunc) int {
	if r.store.Count(ref) <= r.opts.SplitThreshold {
		return 0
	}
	if r.store.Depth(ref) >= r.opts.MaxDepth {
		if r.OnDepthSaturation != nil {
			r.OnDepthSaturation(r.store.Key(ref), r.store.Count(ref))
		}
		return 0
	}
	if !r.allow() {
		return 0
	}

	splits := 1
	for _, child := range r.store.Subdivide(ref, locate) {
		splits += r.splitDeep(child, locate)
	}
	return splits
}

func (r *Rebalancer) allow() bool {
	return r.limiter == nil || r.limiter.AllowN(time.Now(), 1)
}
