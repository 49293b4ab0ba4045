package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
)

// fixedLocate backs splits and invariant checks with a static position map.
func fixedLocate(positions map[core.EntityID]geo.Vec2) LocateFunc {
	return func(id core.EntityID) geo.Vec2 {
		return positions[id]
	}
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		s, err := New()
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions.CellSize, s.CellSize())
	})

	t.Run("InvalidCellSize", func(t *testing.T) {
		_, err := New(func(o *Options) { o.CellSize = 0 })
		require.Error(t, err)

		var ice *ErrInvalidCellSize
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, 0.0, ice.CellSize)
	})
}

func TestStoreRoots(t *testing.T) {
	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	t.Run("GetOrCreateIsIdempotent", func(t *testing.T) {
		key := geo.CellKey{X: 2, Y: 3}
		ref := s.GetOrCreate(key)
		require.NotEqual(t, NilRef, ref)
		assert.Equal(t, ref, s.GetOrCreate(key))
		assert.Equal(t, 1, s.NumRoots())

		got, ok := s.Lookup(key)
		require.True(t, ok)
		assert.Equal(t, ref, got)

		assert.Equal(t, key, s.Key(ref))
		assert.Equal(t, 0, s.Depth(ref))
		assert.Equal(t, NilRef, s.Parent(ref))
	})

	t.Run("LookupMiss", func(t *testing.T) {
		_, ok := s.Lookup(geo.CellKey{X: 99, Y: 99})
		assert.False(t, ok)
	})

	t.Run("RemoveIfEmpty", func(t *testing.T) {
		key := geo.CellKey{X: 7, Y: 7}
		ref := s.GetOrCreate(key)

		s.AddMember(ref, 1)
		s.RemoveIfEmpty(key)
		_, ok := s.Lookup(key)
		assert.True(t, ok, "occupied root must survive")

		s.RemoveMember(ref, 1)
		s.RemoveIfEmpty(key)
		_, ok = s.Lookup(key)
		assert.False(t, ok, "empty root must be released")
	})
}

func TestStoreMembers(t *testing.T) {
	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	ref := s.GetOrCreate(geo.CellKey{X: 0, Y: 0})
	s.AddMember(ref, 1)
	s.AddMember(ref, 2)
	s.AddMember(ref, 3)

	assert.Equal(t, 3, s.Count(ref))
	assert.ElementsMatch(t, []core.EntityID{1, 2, 3}, s.Members(ref))

	assert.True(t, s.RemoveMember(ref, 2))
	assert.False(t, s.RemoveMember(ref, 2), "double remove reports absence")
	assert.Equal(t, 2, s.Count(ref))
	assert.ElementsMatch(t, []core.EntityID{1, 3}, s.Members(ref))
}

func TestSubdivide(t *testing.T) {
	positions := map[core.EntityID]geo.Vec2{
		1: {X: 5, Y: 5},   // lower-left quadrant
		2: {X: 15, Y: 5},  // lower-right
		3: {X: 5, Y: 15},  // upper-left
		4: {X: 15, Y: 15}, // upper-right
		5: {X: 6, Y: 6},   // lower-left again
	}
	locate := fixedLocate(positions)

	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	ref := s.GetOrCreate(geo.CellKey{X: 0, Y: 0})
	for id := range positions {
		s.AddMember(ref, id)
	}

	children := s.Subdivide(ref, locate)

	t.Run("ParentHandsOffMembers", func(t *testing.T) {
		assert.True(t, s.Subdivided(ref))
		assert.Equal(t, 0, s.Count(ref))
		assert.Equal(t, 5, s.SubtreeCount(ref))
	})

	t.Run("ChildrenLinkBack", func(t *testing.T) {
		for _, child := range children {
			require.NotEqual(t, NilRef, child)
			assert.Equal(t, ref, s.Parent(child))
			assert.Equal(t, 1, s.Depth(child))
		}
	})

	t.Run("MembersLandInContainingChild", func(t *testing.T) {
		for id, p := range positions {
			leaf := s.LeafAt(ref, p)
			assert.Contains(t, s.Members(leaf), id)
			assert.True(t, s.Bounds(leaf).Contains(p))
		}
	})

	t.Run("ReassignHookFires", func(t *testing.T) {
		s2, err := New(func(o *Options) { o.CellSize = 20 })
		require.NoError(t, err)

		moved := make(map[core.EntityID]Ref)
		s2.SetReassignHook(func(id core.EntityID, ref Ref) {
			moved[id] = ref
		})

		r := s2.GetOrCreate(geo.CellKey{X: 0, Y: 0})
		for id := range positions {
			s2.AddMember(r, id)
		}
		s2.Subdivide(r, locate)

		require.Len(t, moved, len(positions))
		for id, ref := range moved {
			assert.Contains(t, s2.Members(ref), id)
		}
	})

	t.Run("InvariantsHold", func(t *testing.T) {
		require.NoError(t, s.CheckInvariants(locate))
	})
}

func TestCollapse(t *testing.T) {
	positions := map[core.EntityID]geo.Vec2{
		1: {X: 5, Y: 5},
		2: {X: 15, Y: 15},
	}
	locate := fixedLocate(positions)

	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	ref := s.GetOrCreate(geo.CellKey{X: 0, Y: 0})
	s.AddMember(ref, 1)
	s.AddMember(ref, 2)

	before := s.NumPartitions()
	s.Subdivide(ref, locate)
	require.Greater(t, s.NumPartitions(), before)

	s.Collapse(ref)

	assert.False(t, s.Subdivided(ref))
	assert.Equal(t, 2, s.Count(ref))
	assert.ElementsMatch(t, []core.EntityID{1, 2}, s.Members(ref))
	assert.Equal(t, before, s.NumPartitions(), "child slots return to the free list")
	require.NoError(t, s.CheckInvariants(locate))
}

func TestArenaReuse(t *testing.T) {
	positions := map[core.EntityID]geo.Vec2{1: {X: 5, Y: 5}}
	locate := fixedLocate(positions)

	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	ref := s.GetOrCreate(geo.CellKey{X: 0, Y: 0})
	s.AddMember(ref, 1)

	// Split/collapse cycles must not grow the arena beyond one generation
	// of children.
	s.Subdivide(ref, locate)
	high := s.NumPartitions()
	s.Collapse(ref)

	for i := 0; i < 10; i++ {
		s.Subdivide(ref, locate)
		assert.Equal(t, high, s.NumPartitions())
		s.Collapse(ref)
	}
}

func TestMaxDepthInUse(t *testing.T) {
	positions := map[core.EntityID]geo.Vec2{1: {X: 1, Y: 1}}
	locate := fixedLocate(positions)

	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	ref := s.GetOrCreate(geo.CellKey{X: 0, Y: 0})
	s.AddMember(ref, 1)
	assert.Equal(t, 0, s.MaxDepthInUse())

	s.Subdivide(ref, locate)
	assert.Equal(t, 1, s.MaxDepthInUse())

	leaf := s.LeafAt(ref, positions[1])
	s.Subdivide(leaf, locate)
	assert.Equal(t, 2, s.MaxDepthInUse())

	s.Collapse(leaf)
	assert.Equal(t, 1, s.MaxDepthInUse())
}

func TestClear(t *testing.T) {
	s, err := New(func(o *Options) { o.CellSize = 20 })
	require.NoError(t, err)

	for i := int32(0); i < 5; i++ {
		ref := s.GetOrCreate(geo.CellKey{X: i, Y: 0})
		s.AddMember(ref, core.EntityID(i))
	}
	require.Equal(t, 5, s.NumRoots())

	s.Clear()
	assert.Equal(t, 0, s.NumRoots())
	assert.Equal(t, 0, s.NumPartitions())
}
