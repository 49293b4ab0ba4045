// Package engine implements the mutation side of the spatial index: the
// batcher that applies one set of position changes per simulation tick and
// the entity position record that ties every entity to exactly one partition.
package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
	"github.com/hupe1980/spatialgo/grid"
)

// Change is one entry of a batch: reposition Entity to Position, or remove
// it when Delete is set.
type Change struct {
	Entity   core.EntityID
	Position geo.Vec2
	Delete   bool
}

type record struct {
	pos geo.Vec2
	ref grid.Ref
}

// Options contains configuration options for the batcher.
type Options struct {
	// MaxBatchSize rejects oversized batches before any work is done.
	// Zero means unlimited.
	MaxBatchSize int

	// ParallelThreshold is the batch size at which validation and
	// destination mapping fan out across CPUs. Below it everything runs on
	// the calling goroutine.
	ParallelThreshold int
}

// DefaultOptions contains the default configuration options for the batcher.
var DefaultOptions = Options{
	MaxBatchSize:      0,
	ParallelThreshold: 2048,
}

// Batcher applies batches of entity position changes to a partition store as
// one atomic-feeling operation and keeps the entity position record in
// lockstep with partition membership.
//
// Batcher is not safe for concurrent use with itself or with readers; the
// owning index serializes one Apply per tick strictly before the tick's
// queries.
type Batcher struct {
	store      *grid.Store
	rebalancer *grid.Rebalancer
	records    map[core.EntityID]record
	opts       Options
}

// New creates a batcher over store, restructuring through rebalancer after
// every applied batch.
func New(store *grid.Store, rebalancer *grid.Rebalancer, optFns ...func(o *Options)) *Batcher {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	b := &Batcher{
		store:      store,
		rebalancer: rebalancer,
		records:    make(map[core.EntityID]record, 4096),
		opts:       opts,
	}
	store.SetReassignHook(func(id core.EntityID, ref grid.Ref) {
		if r, ok := b.records[id]; ok {
			r.ref = ref
			b.records[id] = r
		}
	})
	return b
}

// Locate resolves an entity's last-known position. It backs member
// reassignment during splits and must only be called for recorded entities.
func (b *Batcher) Locate(id core.EntityID) geo.Vec2 {
	return b.records[id].pos
}

// Position returns an entity's last-known position.
func (b *Batcher) Position(id core.EntityID) (geo.Vec2, bool) {
	r, ok := b.records[id]
	return r.pos, ok
}

// Contains reports whether the index currently tracks id.
func (b *Batcher) Contains(id core.EntityID) bool {
	_, ok := b.records[id]
	return ok
}

// Len returns the number of tracked entities.
func (b *Batcher) Len() int { return len(b.records) }

// Apply applies one batch of changes and returns the number of partitions
// restructured afterwards.
//
// The staged protocol: validate the whole batch, remove every moved or
// deleted entity from its old partition (grouped per partition), add
// non-deletions to their destination leaf, then rebalance each touched
// partition exactly once. The core invariant (every recorded entity is a
// member of exactly the partition its record names) holds again when Apply
// returns; mid-call state is never observable because the owning index runs
// Apply under its write lock.
//
// A batch that references the same entity twice, or carries a non-finite
// position, is rejected in full with a typed error before any mutation.
// Deleting an entity that is not tracked is a no-op.
func (b *Batcher) Apply(ctx context.Context, changes []Change) (int, error) {
	if b.opts.MaxBatchSize > 0 && len(changes) > b.opts.MaxBatchSize {
		return 0, &ErrBatchTooLarge{Size: len(changes), Limit: b.opts.MaxBatchSize}
	}

	destKeys, err := b.validate(ctx, changes)
	if err != nil {
		return 0, err
	}

	touched := make(map[grid.Ref]struct{}, len(changes))
	oldRoots := make(map[geo.CellKey]struct{})

	// Stage 1: removals, grouped by old partition so each member list is
	// rewritten once.
	removals := make(map[grid.Ref][]core.EntityID)
	for _, c := range changes {
		if r, ok := b.records[c.Entity]; ok {
			removals[r.ref] = append(removals[r.ref], c.Entity)
			oldRoots[b.store.Key(r.ref)] = struct{}{}
		}
	}
	for ref, ids := range removals {
		for _, id := range ids {
			b.store.RemoveMember(ref, id)
		}
		touched[ref] = struct{}{}
	}

	// Stage 2: insertions and moves land in the deepest leaf containing the
	// new position; deletions drop their record.
	for i, c := range changes {
		if c.Delete {
			delete(b.records, c.Entity)
			continue
		}
		root := b.store.GetOrCreate(destKeys[i])
		leaf := b.store.LeafAt(root, c.Position)
		b.store.AddMember(leaf, c.Entity)
		b.records[c.Entity] = record{pos: c.Position, ref: leaf}
		touched[leaf] = struct{}{}
	}

	// Stage 3: one restructure pass over the touched set, then drop base
	// cells left entirely empty.
	touchedRefs := make([]grid.Ref, 0, len(touched))
	for ref := range touched {
		touchedRefs = append(touchedRefs, ref)
	}
	restructured := b.rebalancer.Rebalance(touchedRefs, b.Locate)

	for key := range oldRoots {
		b.store.RemoveIfEmpty(key)
	}

	return restructured, nil
}

// Remove is a convenience wrapper over Apply with a single deletion marker.
// It reports ErrUnknownEntity when id is not tracked.
func (b *Batcher) Remove(ctx context.Context, id core.EntityID) (int, error) {
	if !b.Contains(id) {
		return 0, ErrUnknownEntity
	}
	return b.Apply(ctx, []Change{{Entity: id, Delete: true}})
}

// Clear drops every entity and partition.
func (b *Batcher) Clear() {
	b.store.Clear()
	b.records = make(map[core.EntityID]record, 4096)
}

// validate rejects duplicate entities and non-finite positions, and
// precomputes each non-deletion's destination cell key. For large batches
// the per-change work fans out across CPUs; the duplicate scan stays on the
// calling goroutine because it is a single map pass.
func (b *Batcher) validate(ctx context.Context, changes []Change) ([]geo.CellKey, error) {
	seen := make(map[core.EntityID]struct{}, len(changes))
	for _, c := range changes {
		if _, dup := seen[c.Entity]; dup {
			return nil, &ErrDuplicateEntity{Entity: uint64(c.Entity)}
		}
		seen[c.Entity] = struct{}{}
	}

	destKeys := make([]geo.CellKey, len(changes))
	cellSize := b.store.CellSize()

	mapChunk := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			c := changes[i]
			if c.Delete {
				continue
			}
			if !c.Position.IsFinite() {
				return &ErrNonFinitePosition{Entity: uint64(c.Entity), X: c.Position.X, Y: c.Position.Y}
			}
			destKeys[i] = geo.CellAt(c.Position, cellSize)
		}
		return nil
	}

	if b.opts.ParallelThreshold <= 0 || len(changes) < b.opts.ParallelThreshold {
		if err := mapChunk(0, len(changes)); err != nil {
			return nil, err
		}
		return destKeys, nil
	}

	g, _ := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(changes) + workers - 1) / workers
	for lo := 0; lo < len(changes); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(changes))
		g.Go(func() error { return mapChunk(lo, hi) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return destKeys, nil
}
