package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/spatialgo"
	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
	"github.com/hupe1980/spatialgo/testutil"
)

// Workload shapes: uniform scatter is the friendly baseline; clustered
// scatter forces subdivision and is the adversarial case the index exists
// for.
func worlds(n int) map[string]map[core.EntityID]geo.Vec2 {
	return map[string]map[core.EntityID]geo.Vec2{
		"uniform":   testutil.ScatterUniform(testutil.NewRNG(42), n, 2000),
		"clustered": testutil.ScatterClustered(testutil.NewRNG(42), n, 20, 2000, 60),
	}
}

func seedIndex(b *testing.B, positions map[core.EntityID]geo.Vec2) *spatialgo.Index {
	b.Helper()

	idx, err := spatialgo.New(spatialgo.WithCellSize(20))
	if err != nil {
		b.Fatal(err)
	}

	changes := make([]spatialgo.Change, 0, len(positions))
	for id, p := range positions {
		changes = append(changes, spatialgo.Change{Entity: id, Position: p})
	}
	if _, err := idx.ApplyBatch(context.Background(), changes); err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkApplyBatch(b *testing.B) {
	ctx := context.Background()

	for _, n := range []int{1000, 10000, 50000} {
		for name, positions := range worlds(n) {
			b.Run(fmt.Sprintf("%s_%d", name, n), func(b *testing.B) {
				idx := seedIndex(b, positions)
				rng := testutil.NewRNG(1)

				batch := make([]spatialgo.Change, 0, len(positions))
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					b.StopTimer()
					testutil.Drift(rng, positions, 3)
					batch = batch[:0]
					for id, p := range positions {
						batch = append(batch, spatialgo.Change{Entity: id, Position: p})
					}
					b.StartTimer()

					if _, err := idx.ApplyBatch(ctx, batch); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkRangeQuery(b *testing.B) {
	for name, positions := range worlds(20000) {
		b.Run(name, func(b *testing.B) {
			idx := seedIndex(b, positions)
			rng := testutil.NewRNG(1)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				center := positions[core.EntityID(rng.Intn(len(positions))+1)]
				if _, err := idx.RangeQuery(center, 25); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkKNearestQuery(b *testing.B) {
	for name, positions := range worlds(20000) {
		b.Run(name, func(b *testing.B) {
			idx := seedIndex(b, positions)
			rng := testutil.NewRNG(1)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				center := positions[core.EntityID(rng.Intn(len(positions))+1)]
				if _, err := idx.KNearestQuery(center, 8); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRayQuery(b *testing.B) {
	for name, positions := range worlds(20000) {
		b.Run(name, func(b *testing.B) {
			idx := seedIndex(b, positions)
			rng := testutil.NewRNG(1)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				origin := positions[core.EntityID(rng.Intn(len(positions))+1)]
				dir := geo.Vec2{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
				if dir.LengthSquared() == 0 {
					dir = geo.Vec2{X: 1}
				}
				if _, err := idx.RayQuery(origin, dir, 50); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTick measures a full simulation tick at scale: one batch apply
// followed by a realistic query mix.
func BenchmarkTick(b *testing.B) {
	ctx := context.Background()

	for name, positions := range worlds(20000) {
		b.Run(name, func(b *testing.B) {
			idx := seedIndex(b, positions)
			rng := testutil.NewRNG(1)
			batch := make([]spatialgo.Change, 0, len(positions))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				testutil.Drift(rng, positions, 3)
				batch = batch[:0]
				for id, p := range positions {
					batch = append(batch, spatialgo.Change{Entity: id, Position: p})
				}
				b.StartTimer()

				if _, err := idx.ApplyBatch(ctx, batch); err != nil {
					b.Fatal(err)
				}
				for q := 0; q < 100; q++ {
					center := positions[core.EntityID(rng.Intn(len(positions))+1)]
					if _, err := idx.RangeQuery(center, 25); err != nil {
						b.Fatal(err)
					}
				}
				for q := 0; q < 20; q++ {
					center := positions[core.EntityID(rng.Intn(len(positions))+1)]
					if _, err := idx.KNearestQuery(center, 8); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}
