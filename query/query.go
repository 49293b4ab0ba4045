// Package query implements the read side of the spatial index: range,
// k-nearest and ray queries over a partition store.
//
// Every operation is a pure read against store and positions. The owning
// index guarantees queries never interleave with an in-progress batch apply,
// so multiple queries may run concurrently; the engine's own bookkeeping is
// atomic.
package query

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
	"github.com/hupe1980/spatialgo/grid"
)

// FilterFunc is an opaque caller-supplied predicate over entity identifiers.
// It is evaluated once per candidate; a nil filter accepts everything.
type FilterFunc func(id core.EntityID) bool

// PositionSource resolves last-known entity positions. The engine package's
// Batcher implements it.
type PositionSource interface {
	Position(id core.EntityID) (geo.Vec2, bool)
}

// Hit is one query result: an entity and its distance from the query point
// (or along the ray, for ray queries).
type Hit struct {
	Entity   core.EntityID
	Distance float64
}

// ErrNonFiniteCenter is returned when a query center carries NaN or Inf.
var ErrNonFiniteCenter = errors.New("query center must be finite")

// ErrInvalidRadius indicates a non-positive or non-finite query radius.
type ErrInvalidRadius struct {
	Radius float64
}

func (e *ErrInvalidRadius) Error() string {
	return fmt.Sprintf("invalid query radius: %g", e.Radius)
}

// ErrInvalidMaxDistance indicates a non-positive or non-finite ray length.
type ErrInvalidMaxDistance struct {
	MaxDistance float64
}

func (e *ErrInvalidMaxDistance) Error() string {
	return fmt.Sprintf("invalid max distance: %g", e.MaxDistance)
}

// Options contains configuration options for the query engine.
type Options struct {
	// RadiusCap is the hard cap on the expanding-ring search radius, in
	// world units. A k-nearest query that reaches it returns what it has.
	RadiusCap float64

	// StepFraction is the ray-walk sample step as a fraction of the base
	// cell size. Values above 0.5 risk skipping thin partitions and are
	// clamped down.
	StepFraction float64
}

// DefaultOptions contains the default configuration options for the query
// engine.
var DefaultOptions = Options{
	RadiusCap:    1000.0,
	StepFraction: 0.5,
}

// ScanStats is a snapshot of cumulative query effort, in the spirit of the
// counters a profiler wants: how many queries ran and how much of the grid
// they had to look at.
type ScanStats struct {
	RangeQueries    uint64
	KNearestQueries uint64
	RayQueries      uint64
	CellsVisited    uint64
	MembersTested   uint64
}

// Engine answers proximity queries over a partition store.
type Engine struct {
	store     *grid.Store
	positions PositionSource
	opts      Options

	rangeQueries    atomic.Uint64
	knnQueries      atomic.Uint64
	rayQueries      atomic.Uint64
	cellsVisited    atomic.Uint64
	membersTested   atomic.Uint64
}

// NewEngine creates a query engine over store and positions.
func NewEngine(store *grid.Store, positions PositionSource, optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.StepFraction <= 0 || opts.StepFraction > 0.5 {
		opts.StepFraction = 0.5
	}
	if opts.RadiusCap <= 0 {
		opts.RadiusCap = DefaultOptions.RadiusCap
	}

	return &Engine{store: store, positions: positions, opts: opts}
}

// Stats returns cumulative scan counters.
func (e *Engine) Stats() ScanStats {
	return ScanStats{
		RangeQueries:    e.rangeQueries.Load(),
		KNearestQueries: e.knnQueries.Load(),
		RayQueries:      e.rayQueries.Load(),
		CellsVisited:    e.cellsVisited.Load(),
		MembersTested:   e.membersTested.Load(),
	}
}

// RangeOptions contains options for a range query.
type RangeOptions struct {
	// Filter accepts or rejects candidates; nil accepts everything.
	Filter FilterFunc

	// MaxResults truncates the ordered result list. Zero means unlimited.
	MaxResults int
}

// Range returns every entity within radius of center that passes the filter,
// ordered by ascending distance (ties broken by ascending entity ID).
//
// The search covers the square of base cells circumscribing the query
// circle, recursing into subdivided partitions only where their bounds
// intersect the circle.
func (e *Engine) Range(center geo.Vec2, radius float64, optFns ...func(o *RangeOptions)) ([]Hit, error) {
	var opts RangeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if !center.IsFinite() {
		return nil, ErrNonFiniteCenter
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, &ErrInvalidRadius{Radius: radius}
	}

	e.rangeQueries.Add(1)

	hits := e.scanSquare(center, radius, radius, opts.Filter, nil)
	sortHits(hits)
	if opts.MaxResults > 0 && len(hits) > opts.MaxResults {
		hits = hits[:opts.MaxResults]
	}
	return hits, nil
}

// scanSquare scans all base cells in the square of half-width halfWidth
// around center, collecting members within radius of center. Cells already
// present in visited are skipped and newly scanned cells are added to it
// (visited may be nil for one-shot scans).
func (e *Engine) scanSquare(center geo.Vec2, halfWidth, radius float64, filter FilterFunc, visited map[geo.CellKey]struct{}) []Hit {
	minKey := e.store.CellAt(center.Sub(geo.Vec2{X: halfWidth, Y: halfWidth}))
	maxKey := e.store.CellAt(center.Add(geo.Vec2{X: halfWidth, Y: halfWidth}))

	var hits []Hit
	for y := minKey.Y; y <= maxKey.Y; y++ {
		for x := minKey.X; x <= maxKey.X; x++ {
			key := geo.CellKey{X: x, Y: y}
			if visited != nil {
				if _, done := visited[key]; done {
					continue
				}
				visited[key] = struct{}{}
			}
			ref, ok := e.store.Lookup(key)
			if !ok {
				continue
			}
			e.cellsVisited.Add(1)
			hits = e.collectCircle(ref, center, radius, filter, hits)
		}
	}
	return hits
}

// collectCircle appends members of ref (recursing into subdivisions whose
// bounds intersect the query circle) that lie within radius and pass the
// filter.
func (e *Engine) collectCircle(ref grid.Ref, center geo.Vec2, radius float64, filter FilterFunc, hits []Hit) []Hit {
	if e.store.Subdivided(ref) {
		for _, child := range e.store.Children(ref) {
			if e.store.Bounds(child).IntersectsCircle(center, radius) {
				hits = e.collectCircle(child, center, radius, filter, hits)
			}
		}
		return hits
	}

	radiusSq := radius * radius
	for _, id := range e.store.Members(ref) {
		e.membersTested.Add(1)
		if filter != nil && !filter(id) {
			continue
		}
		pos, ok := e.positions.Position(id)
		if !ok {
			continue
		}
		if d := geo.DistanceSquared(pos, center); d <= radiusSq {
			hits = append(hits, Hit{Entity: id, Distance: math.Sqrt(d)})
		}
	}
	return hits
}

// sortHits orders by ascending distance, then ascending entity ID so equal
// distances resolve deterministically.
func sortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		case a.Entity < b.Entity:
			return -1
		case a.Entity > b.Entity:
			return 1
		default:
			return 0
		}
	})
}
