package spatialgo

import "github.com/hupe1980/spatialgo/query"

// Stats is a point-in-time snapshot of index shape and query effort.
type Stats struct {
	// Entities is the number of tracked entities.
	Entities int

	// OccupiedCells is the number of base-grid cells holding at least one
	// partition.
	OccupiedCells int

	// Partitions is the total number of live partitions, subdivided
	// internal nodes included.
	Partitions int

	// DeepestLevel is the maximum subdivision depth currently in use.
	// Zero means every occupied cell is flat.
	DeepestLevel int

	// DepthSaturations counts partitions that exceeded the split threshold
	// while already at maximum depth, cumulative since construction.
	DepthSaturations uint64

	// Scan aggregates per-operation query effort counters.
	Scan query.ScanStats
}

// Stats returns a snapshot of the index. It takes the read lock, so it
// observes a consistent post-batch state.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{
		Entities:         idx.batcher.Len(),
		OccupiedCells:    idx.store.NumRoots(),
		Partitions:       idx.store.NumPartitions(),
		DeepestLevel:     idx.store.MaxDepthInUse(),
		DepthSaturations: idx.saturations.Load(),
		Scan:             idx.queries.Stats(),
	}
}
