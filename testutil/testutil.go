package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Vec2 returns a pseudo-random point in [0,extent) x [0,extent).
func (r *RNG) Vec2(extent float64) geo.Vec2 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return geo.Vec2{
		X: r.rand.Float64() * extent,
		Y: r.rand.Float64() * extent,
	}
}

// ScatterUniform places n entities uniformly over [0,extent) squared.
// Entity IDs run from 1 to n.
func ScatterUniform(rng *RNG, n int, extent float64) map[core.EntityID]geo.Vec2 {
	positions := make(map[core.EntityID]geo.Vec2, n)
	for i := 1; i <= n; i++ {
		positions[core.EntityID(i)] = rng.Vec2(extent)
	}
	return positions
}

// ScatterClustered places n entities in the given number of clusters over
// [0,extent) squared, each cluster a square of the given spread. Clustered
// worlds are the adversarial case for a uniform grid; they force
// subdivision.
func ScatterClustered(rng *RNG, n, clusters int, extent, spread float64) map[core.EntityID]geo.Vec2 {
	centers := make([]geo.Vec2, clusters)
	for i := range centers {
		centers[i] = rng.Vec2(extent)
	}

	positions := make(map[core.EntityID]geo.Vec2, n)
	for i := 1; i <= n; i++ {
		c := centers[rng.Intn(clusters)]
		positions[core.EntityID(i)] = geo.Vec2{
			X: c.X + (rng.Float64()-0.5)*spread,
			Y: c.Y + (rng.Float64()-0.5)*spread,
		}
	}
	return positions
}

// Drift moves every position by a uniform step in [-speed, speed) per axis,
// in place.
func Drift(rng *RNG, positions map[core.EntityID]geo.Vec2, speed float64) {
	for id, p := range positions {
		p.X += (rng.Float64()*2 - 1) * speed
		p.Y += (rng.Float64()*2 - 1) * speed
		positions[id] = p
	}
}

// RangeResult is one entry of a brute-force reference query.
type RangeResult struct {
	Entity   core.EntityID
	Distance float64
}

// BruteForceRange returns all entities within radius of center, ascending by
// distance with ties broken by entity ID. It is the ground truth spatial
// queries are checked against.
func BruteForceRange(positions map[core.EntityID]geo.Vec2, center geo.Vec2, radius float64) []RangeResult {
	var results []RangeResult
	for id, p := range positions {
		if d := geo.Distance(p, center); d <= radius {
			results = append(results, RangeResult{Entity: id, Distance: d})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Entity < results[j].Entity
	})
	return results
}

// BruteForceKNearest returns the k nearest entities to center, nearest
// first.
func BruteForceKNearest(positions map[core.EntityID]geo.Vec2, center geo.Vec2, k int) []RangeResult {
	all := BruteForceRange(positions, center, 1e18)
	if len(all) > k {
		all = all[:k]
	}
	return all
}
