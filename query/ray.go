package query

import (
	"errors"
	"math"

	"github.com/hupe1980/spatialgo/geo"
	"github.com/hupe1980/spatialgo/grid"
)

// ErrInvalidDirection is returned when a ray direction is zero or
// non-finite.
var ErrInvalidDirection = errors.New("ray direction must be non-zero and finite")

// DefaultHitRadius is the thickness of the ray when a query does not set
// one. Entities are points; the thickened ray is what makes hits possible.
const DefaultHitRadius = 1.0

// RayOptions contains options for a ray query.
type RayOptions struct {
	// Filter accepts or rejects candidates; nil accepts everything.
	Filter FilterFunc

	// HitRadius is the half-thickness of the ray. Defaults to
	// DefaultHitRadius when zero or negative.
	HitRadius float64
}

// Ray returns entities whose distance from the ray is at most the hit
// radius, ordered by ascending distance along the ray from origin.
//
// The walk samples the ray at a fixed step of StepFraction times the base
// cell size, which keeps the step at or under half a cell so thin partitions
// cannot be skipped. Each partition is tested once, the first time a sample
// lands in it. This is a deliberate approximation of exact cell traversal;
// entities slightly past a corner the samples straddle can in principle be
// missed, which consumers of a perception-style query tolerate.
func (e *Engine) Ray(origin, dir geo.Vec2, maxDistance float64, optFns ...func(o *RayOptions)) ([]Hit, error) {
	opts := RayOptions{HitRadius: DefaultHitRadius}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HitRadius <= 0 {
		opts.HitRadius = DefaultHitRadius
	}

	if !origin.IsFinite() || !dir.IsFinite() || dir.LengthSquared() == 0 {
		return nil, ErrInvalidDirection
	}
	if !(maxDistance > 0) || math.IsInf(maxDistance, 0) {
		return nil, &ErrInvalidMaxDistance{MaxDistance: maxDistance}
	}

	e.rayQueries.Add(1)

	dir = dir.Normalize()
	step := e.opts.StepFraction * e.store.CellSize()
	visited := make(map[geo.CellKey]struct{})

	var hits []Hit
	for t := 0.0; ; t += step {
		if t > maxDistance {
			break
		}
		sample := origin.Add(dir.Scale(t))
		key := e.store.CellAt(sample)
		if _, done := visited[key]; done {
			continue
		}
		visited[key] = struct{}{}

		ref, ok := e.store.Lookup(key)
		if !ok {
			continue
		}
		e.cellsVisited.Add(1)
		hits = e.collectRay(ref, origin, dir, maxDistance, opts.HitRadius, opts.Filter, hits)
	}

	sortHits(hits)
	return hits, nil
}

// collectRay appends members of ref within hitRadius of the ray segment
// [origin, origin+dir*maxDistance], recursing through subdivisions. The
// recorded distance is the projection of the entity onto the ray.
func (e *Engine) collectRay(ref grid.Ref, origin, dir geo.Vec2, maxDistance, hitRadius float64, filter FilterFunc, hits []Hit) []Hit {
	if e.store.Subdivided(ref) {
		for _, child := range e.store.Children(ref) {
			hits = e.collectRay(child, origin, dir, maxDistance, hitRadius, filter, hits)
		}
		return hits
	}

	hitSq := hitRadius * hitRadius
	for _, id := range e.store.Members(ref) {
		e.membersTested.Add(1)
		if filter != nil && !filter(id) {
			continue
		}
		pos, ok := e.positions.Position(id)
		if !ok {
			continue
		}

		rel := pos.Sub(origin)
		along := rel.Dot(dir)
		if along < 0 || along > maxDistance {
			continue
		}
		if perpSq := rel.LengthSquared() - along*along; perpSq <= hitSq {
			hits = append(hits, Hit{Entity: id, Distance: along})
		}
	}
	return hits
}
