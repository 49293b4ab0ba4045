package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
)

func TestKNearest(t *testing.T) {
	positions := staticPositions{
		1: {X: 1, Y: 0},
		2: {X: 5, Y: 0},
		3: {X: 12, Y: 0},
		4: {X: 40, Y: 0},
		5: {X: 200, Y: 200},
	}

	t.Run("NearestFirst", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)

		assert.Equal(t, core.EntityID(1), hits[0].Entity)
		assert.Equal(t, core.EntityID(2), hits[1].Entity)
		assert.Equal(t, core.EntityID(3), hits[2].Entity)

		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	})

	t.Run("RingExpansionReachesFarEntities", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		// Entity 5 is many cells away; only ring doubling can reach it.
		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 5)
		assert.Equal(t, core.EntityID(5), hits[4].Entity)
	})

	t.Run("KLargerThanPopulation", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 50)
		require.NoError(t, err)
		assert.Len(t, hits, 5, "under-returning is not an error")
	})

	t.Run("SparseFieldSingleResult", func(t *testing.T) {
		e, _ := buildEngine(t, 20, staticPositions{7: {X: 3, Y: 4}})

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, core.EntityID(7), hits[0].Entity)
		assert.InDelta(t, 5.0, hits[0].Distance, 1e-9)
	})

	t.Run("EmptyIndex", func(t *testing.T) {
		e, _ := buildEngine(t, 20, staticPositions{})

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("MaxDistance", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 5, func(o *KNearestOptions) {
			o.MaxDistance = 15
		})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for _, h := range hits {
			assert.LessOrEqual(t, h.Distance, 15.0)
		}
	})

	t.Run("Filter", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 2, func(o *KNearestOptions) {
			o.Filter = func(id core.EntityID) bool { return id != 1 }
		})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, core.EntityID(2), hits[0].Entity)
		assert.Equal(t, core.EntityID(3), hits[1].Entity)
	})

	t.Run("RadiusCapBoundsTheSearch", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions, func(o *Options) {
			o.RadiusCap = 50
		})

		hits, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 4, "entity beyond the cap stays invisible")
	})

	t.Run("TrueNearestAcrossCellBoundary", func(t *testing.T) {
		// The nearest entity sits just over a cell edge; an entity in the
		// center's own cell is farther. The ring must not stop early.
		boundary := staticPositions{
			1: {X: 19, Y: 1},  // cell (0,0), distance 18 from query point
			2: {X: 20.5, Y: 1}, // cell (1,0), distance 19.5
			3: {X: 1.5, Y: 1},  // cell (0,0), distance 0.5
		}
		e, _ := buildEngine(t, 20, boundary)

		hits, err := e.KNearest(geo.Vec2{X: 1, Y: 1}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, core.EntityID(3), hits[0].Entity)
		assert.Equal(t, core.EntityID(1), hits[1].Entity)
	})

	t.Run("SubdivisionDoesNotChangeResults", func(t *testing.T) {
		e, store := buildEngine(t, 20, positions)

		before, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 4)
		require.NoError(t, err)

		subdivideAt(t, store, positions, geo.Vec2{X: 1, Y: 0})

		after, err := e.KNearest(geo.Vec2{X: 0, Y: 0}, 4)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("InvalidArguments", func(t *testing.T) {
		e, _ := buildEngine(t, 20, positions)

		_, err := e.KNearest(geo.Vec2{}, 0)
		require.ErrorIs(t, err, ErrInvalidK)

		_, err = e.KNearest(geo.Vec2{}, -3)
		require.ErrorIs(t, err, ErrInvalidK)

		_, err = e.KNearest(geo.Vec2{X: 0, Y: math.Inf(-1)}, 3)
		require.ErrorIs(t, err, ErrNonFiniteCenter)
	})
}
