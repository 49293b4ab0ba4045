package spatialgo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/spatialgo"
	"github.com/hupe1980/spatialgo/geo"
)

// Example demonstrates the once-per-tick flow: apply one batch of position
// changes, then query freely.
func Example() {
	idx, err := spatialgo.New(
		spatialgo.WithCellSize(20),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	_, err = idx.ApplyBatch(ctx, []spatialgo.Change{
		{Entity: 1, Position: geo.Vec2{X: 10, Y: 10}},
		{Entity: 2, Position: geo.Vec2{X: 30, Y: 10}},
		{Entity: 3, Position: geo.Vec2{X: 10, Y: 30}},
	})
	if err != nil {
		log.Fatal(err)
	}

	hits, err := idx.RangeQuery(geo.Vec2{X: 10, Y: 20}, 11)
	if err != nil {
		log.Fatal(err)
	}

	for _, h := range hits {
		fmt.Printf("entity %d at distance %.1f\n", h.Entity, h.Distance)
	}
	// Output:
	// entity 1 at distance 10.0
	// entity 3 at distance 10.0
}

// Example_kNearest demonstrates a bounded nearest-neighbor query with
// self-exclusion through an IDSet filter.
func Example_kNearest() {
	idx, err := spatialgo.New(spatialgo.WithCellSize(20))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	_, err = idx.ApplyBatch(ctx, []spatialgo.Change{
		{Entity: 1, Position: geo.Vec2{X: 0, Y: 0}},
		{Entity: 2, Position: geo.Vec2{X: 3, Y: 4}},
		{Entity: 3, Position: geo.Vec2{X: 6, Y: 8}},
	})
	if err != nil {
		log.Fatal(err)
	}

	self := spatialgo.NewIDSet(1)
	hits, err := idx.KNearestQuery(geo.Vec2{X: 0, Y: 0}, 2, func(o *spatialgo.KNearestOptions) {
		o.Filter = self.Deny()
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, h := range hits {
		fmt.Printf("entity %d at distance %.1f\n", h.Entity, h.Distance)
	}
	// Output:
	// entity 2 at distance 5.0
	// entity 3 at distance 10.0
}
