// Package spatialgo provides a dynamic spatial index for simulation
// workloads: tens of thousands of moving point entities that are
// repositioned once per tick and queried many times per tick.
//
// The index partitions the 2-D ground plane into a uniform grid of
// fixed-size cells. A crowded cell subdivides into a bounded-depth 2x2
// hierarchy and collapses back when it empties out, so query cost stays
// sub-linear under clustering while sparse regions cost nothing.
//
// # Quick start
//
//	idx, err := spatialgo.New(
//	    spatialgo.WithCellSize(20),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	// Once per tick, before any query:
//	_, err = idx.ApplyBatch(ctx, []spatialgo.Change{
//	    {Entity: 1, Position: geo.Vec2{X: 10, Y: 10}},
//	    {Entity: 2, Position: geo.Vec2{X: 30, Y: 10}},
//	})
//
//	// Then query freely, concurrently if desired:
//	hits, err := idx.RangeQuery(geo.Vec2{X: 15, Y: 15}, 20)
//	nearest, err := idx.KNearestQuery(geo.Vec2{X: 0, Y: 0}, 3)
//
// # Tick contract
//
// Exactly one ApplyBatch call is expected per simulation tick, after all
// consumer subsystems have produced their position changes and before any of
// them queries. ApplyBatch holds the write lock for its whole duration, so
// the contract is enforced rather than assumed: a query issued concurrently
// with an apply simply waits for the new generation instead of observing a
// torn one.
//
// # Approximation bounds
//
// K-nearest and ray queries are bounded searches. Hitting the radius cap or
// the ray length communicates itself through the result shape (fewer than k
// hits, a truncated hit list), never through an error.
package spatialgo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/engine"
	"github.com/hupe1980/spatialgo/geo"
	"github.com/hupe1980/spatialgo/grid"
	"github.com/hupe1980/spatialgo/query"
)

// EntityID is the caller-owned identifier of an indexed entity.
type EntityID = core.EntityID

// Change is one entry of a batch: reposition Entity to Position, or remove
// it when Delete is set.
type Change = engine.Change

// Hit is one query result.
type Hit = query.Hit

// FilterFunc is an opaque caller-supplied predicate over entity identifiers
// (for example "has component X" or "is not self"). The index treats it as a
// black box evaluated once per candidate.
type FilterFunc = query.FilterFunc

// Index is a dynamic spatial index over moving point entities.
//
// All mutation goes through ApplyBatch (and its RemoveEntity convenience
// wrapper); the three query operations are pure reads and may run
// concurrently with each other.
type Index struct {
	mu      sync.RWMutex
	store   *grid.Store
	batcher *engine.Batcher
	queries *query.Engine

	saturations atomic.Uint64
	metrics     MetricsCollector
	logger      *Logger
}

// New creates an index from the given options.
func New(optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	store, err := grid.New(func(o *grid.Options) {
		o.CellSize = opts.cellSize
	})
	if err != nil {
		return nil, translateError(err)
	}

	idx := &Index{
		store:   store,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}

	rebalancer := grid.NewRebalancer(store, func(o *grid.RebalancerOptions) {
		o.SplitThreshold = opts.splitThreshold
		o.CollapseThreshold = opts.collapseThreshold
		o.CombinedCollapseThreshold = opts.combinedCollapseThreshold
		o.MaxDepth = opts.maxDepth
		o.RestructuresPerSec = opts.restructuresPerSec
	})
	rebalancer.OnDepthSaturation = func(key geo.CellKey, count int) {
		idx.saturations.Add(1)
		idx.metrics.RecordDepthSaturation(count)
		idx.logger.LogDepthSaturation(key.X, key.Y, count)
	}

	idx.batcher = engine.New(store, rebalancer, func(o *engine.Options) {
		o.MaxBatchSize = opts.maxBatchSize
	})
	idx.queries = query.NewEngine(store, idx.batcher, func(o *query.Options) {
		o.RadiusCap = opts.radiusCap
		o.StepFraction = opts.rayStepFraction
	})

	return idx, nil
}

// ApplyBatch applies one batch of position changes as a single atomic
// transition and returns the number of partitions restructured while
// rebalancing. It must be called once per tick, before that tick's queries.
//
// A batch referencing the same entity twice or carrying a non-finite
// position is rejected in full with a typed error; see the package error
// variables.
func (idx *Index) ApplyBatch(ctx context.Context, changes []Change) (int, error) {
	start := time.Now()
	idx.mu.Lock()
	restructured, err := idx.batcher.Apply(ctx, changes)
	idx.mu.Unlock()

	err = translateError(err)
	idx.metrics.RecordApply(len(changes), restructured, time.Since(start), err)
	idx.logger.LogApply(ctx, len(changes), restructured, err)
	return restructured, err
}

// RemoveEntity removes one entity from the index. It is a convenience
// wrapper over ApplyBatch with a deletion marker and reports
// ErrUnknownEntity when id is not tracked.
func (idx *Index) RemoveEntity(ctx context.Context, id EntityID) error {
	start := time.Now()
	idx.mu.Lock()
	_, err := idx.batcher.Remove(ctx, id)
	idx.mu.Unlock()

	err = translateError(err)
	idx.metrics.RecordRemove(time.Since(start), err)
	idx.logger.LogRemove(ctx, uint64(id), err)
	return err
}

// RangeQuery returns every entity within radius of center that passes the
// filter, ascending by distance with ties broken by entity ID.
func (idx *Index) RangeQuery(center geo.Vec2, radius float64, optFns ...func(o *RangeOptions)) ([]Hit, error) {
	start := time.Now()
	idx.mu.RLock()
	hits, err := idx.queries.Range(center, radius, optFns...)
	idx.mu.RUnlock()

	err = translateError(err)
	idx.metrics.RecordRangeQuery(len(hits), time.Since(start), err)
	idx.logger.LogRangeQuery(context.Background(), radius, len(hits), err)
	return hits, err
}

// KNearestQuery returns up to k entities nearest to center, nearest first.
// Fewer than k results means the expanding-ring search reached its cap; it
// is a documented approximation, not a failure.
func (idx *Index) KNearestQuery(center geo.Vec2, k int, optFns ...func(o *KNearestOptions)) ([]Hit, error) {
	start := time.Now()
	idx.mu.RLock()
	hits, err := idx.queries.KNearest(center, k, optFns...)
	idx.mu.RUnlock()

	err = translateError(err)
	idx.metrics.RecordKNearestQuery(k, len(hits), time.Since(start), err)
	idx.logger.LogKNearestQuery(context.Background(), k, len(hits), err)
	return hits, err
}

// RayQuery returns entities within the thickened ray from origin along dir,
// ascending by distance along the ray.
func (idx *Index) RayQuery(origin, dir geo.Vec2, maxDistance float64, optFns ...func(o *RayOptions)) ([]Hit, error) {
	start := time.Now()
	idx.mu.RLock()
	hits, err := idx.queries.Ray(origin, dir, maxDistance, optFns...)
	idx.mu.RUnlock()

	err = translateError(err)
	idx.metrics.RecordRayQuery(len(hits), time.Since(start), err)
	idx.logger.LogRayQuery(context.Background(), maxDistance, len(hits), err)
	return hits, err
}

// PositionOf returns an entity's last-known position.
func (idx *Index) PositionOf(id EntityID) (geo.Vec2, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.batcher.Position(id)
}

// Contains reports whether the index currently tracks id.
func (idx *Index) Contains(id EntityID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.batcher.Contains(id)
}

// Len returns the number of tracked entities.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.batcher.Len()
}

// Clear drops every entity and partition.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.batcher.Clear()
}

// RangeOptions contains options for RangeQuery.
type RangeOptions = query.RangeOptions

// KNearestOptions contains options for KNearestQuery.
type KNearestOptions = query.KNearestOptions

// RayOptions contains options for RayQuery.
type RayOptions = query.RayOptions
