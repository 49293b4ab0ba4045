package query

import (
	"errors"
	"math"

	"github.com/hupe1980/spatialgo/geo"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// KNearestOptions contains options for a k-nearest query.
type KNearestOptions struct {
	// Filter accepts or rejects candidates; nil accepts everything.
	Filter FilterFunc

	// MaxDistance, when positive, excludes entities farther than this and
	// tightens the ring-expansion cap.
	MaxDistance float64
}

// KNearest returns up to k entities nearest to center, ascending by
// distance. Fewer than k results is not an error: it means the expanding
// ring hit its cap (the engine's RadiusCap, tightened by MaxDistance) before
// finding more qualifying entities.
//
// The search starts at one cell size and doubles until the k-th best known
// distance is no greater than the current ring radius, at which point no
// unexamined cell can contain anything closer, or until the cap is reached. Cells
// already scanned in an earlier ring are not revisited; the best-k candidates
// are carried across rings in a bounded max-heap.
func (e *Engine) KNearest(center geo.Vec2, k int, optFns ...func(o *KNearestOptions)) ([]Hit, error) {
	var opts KNearestOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}
	if !center.IsFinite() {
		return nil, ErrNonFiniteCenter
	}

	e.knnQueries.Add(1)

	capRadius := e.opts.RadiusCap
	if opts.MaxDistance > 0 && opts.MaxDistance < capRadius {
		capRadius = opts.MaxDistance
	}

	best := NewPriorityQueue(true)
	visited := make(map[geo.CellKey]struct{})

	radius := e.store.CellSize()
	if radius > capRadius {
		radius = capRadius
	}

	for {
		for _, h := range e.scanSquare(center, radius, capRadius, opts.Filter, visited) {
			if opts.MaxDistance > 0 && h.Distance > opts.MaxDistance {
				continue
			}
			best.PushItemBounded(PriorityQueueItem{Entity: h.Entity, Distance: h.Distance}, k)
		}

		if best.Len() == k {
			if worst, _ := best.TopItem(); worst.Distance <= radius {
				break
			}
		}
		if radius >= capRadius {
			break
		}
		radius = math.Min(radius*2, capRadius)
	}

	hits := make([]Hit, 0, best.Len())
	for _, item := range best.Items() {
		hits = append(hits, Hit{Entity: item.Entity, Distance: item.Distance})
	}
	sortHits(hits)
	return hits, nil
}
