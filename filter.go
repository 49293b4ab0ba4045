package spatialgo

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// IDSet is a compressed set of entity identifiers for use in query filters.
// It stays compact for both sparse and dense ID populations, so a consumer
// subsystem can keep one set per category ("hostile", "edible", "same team")
// and intersect them per query without materializing slices.
//
// IDSet is not safe for concurrent mutation; build or update it between
// queries, then share it read-only.
type IDSet struct {
	bitmap *roaring64.Bitmap
}

// NewIDSet creates an IDSet holding the given entities.
func NewIDSet(ids ...EntityID) *IDSet {
	s := &IDSet{bitmap: roaring64.New()}
	for _, id := range ids {
		s.bitmap.Add(uint64(id))
	}
	return s
}

// Add inserts an entity into the set.
func (s *IDSet) Add(id EntityID) {
	s.bitmap.Add(uint64(id))
}

// Remove deletes an entity from the set.
func (s *IDSet) Remove(id EntityID) {
	s.bitmap.Remove(uint64(id))
}

// Contains reports whether the set holds id.
func (s *IDSet) Contains(id EntityID) bool {
	return s.bitmap.Contains(uint64(id))
}

// Len returns the number of entities in the set.
func (s *IDSet) Len() int {
	return int(s.bitmap.GetCardinality())
}

// Union merges other into s.
func (s *IDSet) Union(other *IDSet) {
	s.bitmap.Or(other.bitmap)
}

// Intersect keeps only entities present in both s and other.
func (s *IDSet) Intersect(other *IDSet) {
	s.bitmap.And(other.bitmap)
}

// Allow returns a FilterFunc that passes only entities in the set.
func (s *IDSet) Allow() FilterFunc {
	return func(id EntityID) bool {
		return s.bitmap.Contains(uint64(id))
	}
}

// Deny returns a FilterFunc that rejects entities in the set. Useful for
// self-exclusion: query from an entity's own position without seeing itself.
func (s *IDSet) Deny() FilterFunc {
	return func(id EntityID) bool {
		return !s.bitmap.Contains(uint64(id))
	}
}

// AndFilters combines filters into one that passes only entities passing all
// of them. Nil entries are skipped; an empty combination passes everything.
func AndFilters(filters ...FilterFunc) FilterFunc {
	return func(id EntityID) bool {
		for _, f := range filters {
			if f != nil && !f(id) {
				return false
			}
		}
		return true
	}
}
