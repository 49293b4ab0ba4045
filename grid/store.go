// Package grid implements the partition store of the spatial index: a uniform
// base grid of lazily created partitions, each either a flat member list or a
// 2x2 subdivision into finer children.
//
// Partitions live in a flat arena addressed by Ref instead of an owned
// recursive structure. A subdivided partition holds the arena refs of its
// four children; released quads go to a free list for reuse.
package grid

import (
	"fmt"

	"github.com/hupe1980/spatialgo/core"
	"github.com/hupe1980/spatialgo/geo"
)

// Ref addresses a partition inside the store's arena.
type Ref int32

// NilRef is the zero-value "no partition" ref.
const NilRef Ref = -1

// LocateFunc resolves an entity's last-known position. The store needs it to
// reassign members when a partition is split; callers back it with the entity
// position record.
type LocateFunc func(id core.EntityID) geo.Vec2

// ErrInvalidCellSize indicates a non-positive or non-finite base cell size.
type ErrInvalidCellSize struct {
	CellSize float64
}

func (e *ErrInvalidCellSize) Error() string {
	return fmt.Sprintf("invalid cell size: %g", e.CellSize)
}

// Partition is the unit of storage. It is in exactly one of two states:
// flat (members holds entity IDs directly) or subdivided (children hold four
// arena refs covering the same extent at half the size).
type Partition struct {
	key        geo.CellKey // base-grid key of the root ancestor
	bounds     geo.AABB
	depth      uint8
	alive      bool
	parent     Ref
	children   [4]Ref
	subdivided bool
	members    []core.EntityID
}

// Options contains configuration options for the store.
type Options struct {
	// CellSize is the edge length of a base-grid cell, in world units.
	// It must be positive and finite.
	CellSize float64
}

// DefaultOptions contains the default configuration options for the store.
var DefaultOptions = Options{
	CellSize: 20.0,
}

// Store owns the mapping from cell key to partition plus the partition arena.
// It exposes mutation primitives only; split/collapse policy lives in
// Rebalancer and batch orchestration lives in the engine package.
//
// Store is not safe for concurrent use; the engine serializes access.
type Store struct {
	opts     Options
	cells    map[geo.CellKey]Ref
	arena    []Partition
	free     []Ref // refs of released child quads, 4 at a time
	reassign func(id core.EntityID, ref Ref)
}

// SetReassignHook registers fn to be called whenever a restructure moves a
// member to a different partition. The engine uses it to keep the entity
// position record pointing at the owning leaf.
func (s *Store) SetReassignHook(fn func(id core.EntityID, ref Ref)) {
	s.reassign = fn
}

// New creates a new partition store.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if !(opts.CellSize > 0) || opts.CellSize != opts.CellSize {
		return nil, &ErrInvalidCellSize{CellSize: opts.CellSize}
	}

	return &Store{
		opts:  opts,
		cells: make(map[geo.CellKey]Ref, 1024),
	}, nil
}

// CellSize returns the configured base cell size.
func (s *Store) CellSize() float64 { return s.opts.CellSize }

// CellAt maps a world position to its base-grid key.
func (s *Store) CellAt(p geo.Vec2) geo.CellKey {
	return geo.CellAt(p, s.opts.CellSize)
}

// GetOrCreate returns the root partition for key, creating it lazily on
// first occupancy.
func (s *Store) GetOrCreate(key geo.CellKey) Ref {
	if ref, ok := s.cells[key]; ok {
		return ref
	}
	ref := s.alloc(Partition{
		key:    key,
		bounds: key.Bounds(s.opts.CellSize),
		parent: NilRef,
	})
	s.cells[key] = ref
	return ref
}

// Lookup returns the root partition for key, if one exists.
func (s *Store) Lookup(key geo.CellKey) (Ref, bool) {
	ref, ok := s.cells[key]
	return ref, ok
}

// RemoveIfEmpty deletes the root partition for key if it is flat and has no
// members. Subdivided roots are kept; the rebalancer collapses them first.
func (s *Store) RemoveIfEmpty(key geo.CellKey) {
	ref, ok := s.cells[key]
	if !ok {
		return
	}
	p := &s.arena[ref]
	if p.subdivided || len(p.members) > 0 {
		return
	}
	delete(s.cells, key)
	s.release(ref)
}

// LeafAt descends from ref to the deepest partition whose bounds contain p.
// For a flat ref it returns ref itself.
func (s *Store) LeafAt(ref Ref, p geo.Vec2) Ref {
	for s.arena[ref].subdivided {
		q := s.arena[ref].bounds.QuadrantIndex(p)
		ref = s.arena[ref].children[q]
	}
	return ref
}

// AddMember appends id to the flat member list of ref. The caller must
// resolve ref to a leaf first (LeafAt).
func (s *Store) AddMember(ref Ref, id core.EntityID) {
	s.arena[ref].members = append(s.arena[ref].members, id)
}

// RemoveMember removes id from the flat member list of ref, reporting
// whether it was present. Order within the list is not preserved.
func (s *Store) RemoveMember(ref Ref, id core.EntityID) bool {
	m := s.arena[ref].members
	for i, e := range m {
		if e == id {
			m[i] = m[len(m)-1]
			s.arena[ref].members = m[:len(m)-1]
			return true
		}
	}
	return false
}

// Count returns the flat member count of ref (0 for a subdivided partition).
func (s *Store) Count(ref Ref) int { return len(s.arena[ref].members) }

// Members returns the flat member list of ref. The slice is owned by the
// store and must not be retained across mutations.
func (s *Store) Members(ref Ref) []core.EntityID { return s.arena[ref].members }

// Bounds returns the spatial extent of ref.
func (s *Store) Bounds(ref Ref) geo.AABB { return s.arena[ref].bounds }

// Depth returns the subdivision depth of ref (0 for a base-grid root).
func (s *Store) Depth(ref Ref) int { return int(s.arena[ref].depth) }

// Key returns the base-grid key of the root ancestor of ref.
func (s *Store) Key(ref Ref) geo.CellKey { return s.arena[ref].key }

// Parent returns the parent of ref, or NilRef for a root.
func (s *Store) Parent(ref Ref) Ref { return s.arena[ref].parent }

// Subdivided reports whether ref delegates to children.
func (s *Store) Subdivided(ref Ref) bool { return s.arena[ref].subdivided }

// Children returns the four child refs of a subdivided partition.
func (s *Store) Children(ref Ref) [4]Ref { return s.arena[ref].children }

// Subdivide replaces the flat state of ref with four children covering its
// quadrants and reassigns every member to the child containing its position.
// The parent's member list is cleared; entity IDs are never dropped because
// quadrant selection clamps out-of-bounds positions.
func (s *Store) Subdivide(ref Ref, locate LocateFunc) [4]Ref {
	parent := s.arena[ref]
	depth := parent.depth + 1

	var children [4]Ref
	for i := 0; i < 4; i++ {
		children[i] = s.alloc(Partition{
			key:    parent.key,
			bounds: parent.bounds.Quadrant(i),
			depth:  depth,
			parent: ref,
		})
	}

	members := s.arena[ref].members
	bounds := s.arena[ref].bounds
	for _, id := range members {
		q := bounds.QuadrantIndex(locate(id))
		s.AddMember(children[q], id)
		if s.reassign != nil {
			s.reassign(id, children[q])
		}
	}

	p := &s.arena[ref]
	p.members = nil
	p.children = children
	p.subdivided = true
	return children
}

// Collapse flattens the four children of ref back into a single member list
// and releases them. All children must currently be flat.
func (s *Store) Collapse(ref Ref) {
	children := s.arena[ref].children
	var merged []core.EntityID
	for _, c := range children {
		merged = append(merged, s.arena[c].members...)
	}
	if s.reassign != nil {
		for _, id := range merged {
			s.reassign(id, ref)
		}
	}
	for _, c := range children {
		s.release(c)
	}
	p := &s.arena[ref]
	p.members = merged
	p.children = [4]Ref{}
	p.subdivided = false
}

// SubtreeCount returns the total member count under ref, including ref
// itself when flat.
func (s *Store) SubtreeCount(ref Ref) int {
	p := &s.arena[ref]
	if !p.subdivided {
		return len(p.members)
	}
	n := 0
	for _, c := range p.children {
		n += s.SubtreeCount(c)
	}
	return n
}

// AllFlatChildren reports whether every child of a subdivided ref is flat.
func (s *Store) AllFlatChildren(ref Ref) bool {
	for _, c := range s.arena[ref].children {
		if s.arena[c].subdivided {
			return false
		}
	}
	return true
}

// NumRoots returns the number of occupied base-grid cells.
func (s *Store) NumRoots() int { return len(s.cells) }

// NumPartitions returns the number of live partitions, children included.
func (s *Store) NumPartitions() int { return len(s.arena) - len(s.free) }

// MaxDepthInUse returns the deepest subdivision level currently present.
func (s *Store) MaxDepthInUse() int {
	max := 0
	for i := range s.arena {
		if !s.arena[i].alive {
			continue
		}
		if d := int(s.arena[i].depth); d > max {
			max = d
		}
	}
	return max
}

// Roots calls fn for every root partition. Iteration order is unspecified.
func (s *Store) Roots(fn func(key geo.CellKey, ref Ref) bool) {
	for key, ref := range s.cells {
		if !fn(key, ref) {
			return
		}
	}
}

// Clear removes every partition and member.
func (s *Store) Clear() {
	s.cells = make(map[geo.CellKey]Ref, 1024)
	s.arena = s.arena[:0]
	s.free = s.free[:0]
}

// CheckInvariants verifies the structural invariants of the store: each
// partition is flat xor subdivided, child bounds tile their parent, and every
// member's located position falls inside the bounds of the leaf holding it.
// Intended for tests and debugging; cost is linear in the tree size.
func (s *Store) CheckInvariants(locate LocateFunc) error {
	for _, root := range s.cells {
		if err := s.checkSubtree(root, locate); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) checkSubtree(ref Ref, locate LocateFunc) error {
	p := &s.arena[ref]
	if p.subdivided {
		if len(p.members) != 0 {
			return fmt.Errorf("grid: partition %v depth %d is subdivided but holds %d members", p.key, p.depth, len(p.members))
		}
		for i, c := range p.children {
			if s.arena[c].parent != ref {
				return fmt.Errorf("grid: partition %v child %d has wrong parent", p.key, i)
			}
			if err := s.checkSubtree(c, locate); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range p.members {
		if pos := locate(id); !p.bounds.Contains(pos) {
			return fmt.Errorf("grid: entity %d at %v outside partition %v depth %d bounds", id, pos, p.key, p.depth)
		}
	}
	return nil
}

func (s *Store) alloc(p Partition) Ref {
	p.alive = true
	if n := len(s.free); n > 0 {
		ref := s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[ref] = p
		return ref
	}
	s.arena = append(s.arena, p)
	return Ref(len(s.arena) - 1)
}

func (s *Store) release(ref Ref) {
	s.arena[ref] = Partition{parent: NilRef}
	s.free = append(s.free, ref)
}
