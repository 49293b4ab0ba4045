package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/geo"
)

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(7)
	b := NewRNG(7)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}

	a.Reset()
	c := NewRNG(7)
	assert.Equal(t, c.Float64(), a.Float64())
}

func TestScatter(t *testing.T) {
	rng := NewRNG(1)

	uniform := ScatterUniform(rng, 1000, 500)
	require.Len(t, uniform, 1000)
	for _, p := range uniform {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 500.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, 500.0)
	}

	clustered := ScatterClustered(rng, 1000, 5, 500, 30)
	require.Len(t, clustered, 1000)
}

func TestBruteForceRange(t *testing.T) {
	positions := ScatterUniform(NewRNG(2), 200, 100)
	center := geo.Vec2{X: 50, Y: 50}

	results := BruteForceRange(positions, center, 25)
	for i, r := range results {
		assert.LessOrEqual(t, r.Distance, 25.0)
		assert.InDelta(t, geo.Distance(positions[r.Entity], center), r.Distance, 1e-12)
		if i > 0 {
			assert.LessOrEqual(t, results[i-1].Distance, r.Distance)
		}
	}

	nearest := BruteForceKNearest(positions, center, 5)
	require.Len(t, nearest, 5)
	assert.Equal(t, results[0], nearest[0])
}
