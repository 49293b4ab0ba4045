// Package geo provides the coordinate primitives of the spatial index: world
// positions, discrete cell keys and axis-aligned boxes.
//
// Everything in this package is a pure value computation with no failure
// modes; behavior for non-finite input (NaN/Inf) is undefined and must be
// rejected by callers before use.
package geo

import "math"

// Vec2 is a position on the 2-D ground plane, in world units.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// LengthSquared returns the squared length of v.
func (v Vec2) LengthSquared() float64 { return v.X*v.X + v.Y*v.Y }

// Length returns the length of v.
func (v Vec2) Length() float64 { return math.Sqrt(v.LengthSquared()) }

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// IsFinite reports whether both components are finite numbers.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// DistanceSquared returns the squared distance between a and b.
func DistanceSquared(a, b Vec2) float64 {
	return a.Sub(b).LengthSquared()
}

// Distance returns the distance between a and b.
func Distance(a, b Vec2) float64 {
	return math.Sqrt(DistanceSquared(a, b))
}

// CellKey identifies one fixed-size cell of the uniform base grid.
//
// Two positions map to the same key iff they lie in the same cell. Z is
// reserved at 0 for the 2-D case and exists only so a future volumetric
// extension does not change the key type.
type CellKey struct {
	X int32
	Y int32
	Z int32
}

// CellAt maps a world position to the key of the base cell containing it.
// The mapping is floor division, so negative coordinates round toward
// negative infinity and cell boundaries belong to the cell on their
// upper-right side.
func CellAt(p Vec2, cellSize float64) CellKey {
	return CellKey{
		X: int32(math.Floor(p.X / cellSize)),
		Y: int32(math.Floor(p.Y / cellSize)),
	}
}

// Neighbors returns the 8 adjacent keys on the same grid level, in
// deterministic row-major order.
func (k CellKey) Neighbors() [8]CellKey {
	return [8]CellKey{
		{k.X - 1, k.Y - 1, k.Z}, {k.X, k.Y - 1, k.Z}, {k.X + 1, k.Y - 1, k.Z},
		{k.X - 1, k.Y, k.Z}, {k.X + 1, k.Y, k.Z},
		{k.X - 1, k.Y + 1, k.Z}, {k.X, k.Y + 1, k.Z}, {k.X + 1, k.Y + 1, k.Z},
	}
}

// Bounds returns the axis-aligned box covered by the cell at the base
// resolution.
func (k CellKey) Bounds(cellSize float64) AABB {
	min := Vec2{X: float64(k.X) * cellSize, Y: float64(k.Y) * cellSize}
	return AABB{
		Min: min,
		Max: Vec2{X: min.X + cellSize, Y: min.Y + cellSize},
	}
}

// Less orders keys lexicographically by (Z, Y, X). The store itself needs no
// ordering; this exists so callers can iterate keys deterministically.
func (k CellKey) Less(o CellKey) bool {
	if k.Z != o.Z {
		return k.Z < o.Z
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.X < o.X
}

// AABB is an axis-aligned box, min-inclusive and max-exclusive on each axis
// so that adjacent cells tile the plane without overlap.
type AABB struct {
	Min Vec2
	Max Vec2
}

// Contains reports whether p lies inside the box.
func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X < b.Max.X && p.Y >= b.Min.Y && p.Y < b.Max.Y
}

// Center returns the center point of the box.
func (b AABB) Center() Vec2 {
	return Vec2{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// IntersectsCircle reports whether the box and the circle overlap. Used to
// prune subdivided partitions whose extent cannot contain query results.
func (b AABB) IntersectsCircle(center Vec2, radius float64) bool {
	cx := math.Max(b.Min.X, math.Min(center.X, b.Max.X))
	cy := math.Max(b.Min.Y, math.Min(center.Y, b.Max.Y))
	dx := center.X - cx
	dy := center.Y - cy
	return dx*dx+dy*dy <= radius*radius
}

// Quadrant returns one of the four equal sub-boxes of b, indexed 0..3 in
// row-major order: (min,min), (max,min), (min,max), (max,max).
func (b AABB) Quadrant(i int) AABB {
	c := b.Center()
	switch i {
	case 0:
		return AABB{Min: b.Min, Max: c}
	case 1:
		return AABB{Min: Vec2{c.X, b.Min.Y}, Max: Vec2{b.Max.X, c.Y}}
	case 2:
		return AABB{Min: Vec2{b.Min.X, c.Y}, Max: Vec2{c.X, b.Max.Y}}
	default:
		return AABB{Min: c, Max: b.Max}
	}
}

// QuadrantIndex returns the index of the quadrant of b containing p,
// consistent with Quadrant. Positions outside b are clamped to the nearest
// quadrant so membership reassignment during a split never drops an entity.
func (b AABB) QuadrantIndex(p Vec2) int {
	c := b.Center()
	i := 0
	if p.X >= c.X {
		i |= 1
	}
	if p.Y >= c.Y {
		i |= 2
	}
	return i
}
