package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec2 is a point or displacement in the environment plane. It shares its
// layout with r2.Vec and delegates the arithmetic to it.
type Vec2 r2.Vec

func (v Vec2) Add(o Vec2) Vec2      { return Vec2(r2.Add(r2.Vec(v), r2.Vec(o))) }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2(r2.Sub(r2.Vec(v), r2.Vec(o))) }
func (v Vec2) Scale(s float64) Vec2 { return Vec2(r2.Scale(s, r2.Vec(v))) }
func (v Vec2) Dot(o Vec2) float64   { return r2.Dot(r2.Vec(v), r2.Vec(o)) }
func (v Vec2) IsFinite() bool       { return isFinite(v.X) && isFinite(v.Y) }

// Len is the Euclidean length as sqrt(v.v). Pruning compares positions
// bit for bit, so this formula must not change to a hypot.
func (v Vec2) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Dist is the distance between two points.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ObstacleLine is a wall or gate segment from (SX,SY) to (EX,EY).
// The zero value is the open sentinel: a gate whose barrier has been lifted.
type ObstacleLine struct {
	SX, SY float64
	EX, EY float64
}

// OpenLine is the sentinel stored in place of a gate whose barrier is gone.
var OpenLine = ObstacleLine{}

// NewObstacleLine returns the segment (sx,sy)-(ex,ey).
func NewObstacleLine(sx, sy, ex, ey float64) ObstacleLine {
	return ObstacleLine{SX: sx, SY: sy, EX: ex, EY: ey}
}

// IsOpen reports whether l is the open sentinel. Only the start x coordinate
// is inspected; no wall or gate of a valid layout starts on the x=0 border.
func (l ObstacleLine) IsOpen() bool {
	return l.SX == 0
}

// Start returns the first endpoint.
func (l ObstacleLine) Start() Vec2 { return Vec2{l.SX, l.SY} }

// End returns the second endpoint.
func (l ObstacleLine) End() Vec2 { return Vec2{l.EX, l.EY} }

// DistanceToPoint projects p onto the segment, clamping the projection
// parameter to [0,1], and returns the distance to the clamped contact point
// along with the contact point itself. A zero-length segment contacts at its
// start point.
func (l ObstacleLine) DistanceToPoint(p Vec2) (float64, Vec2) {
	dx := l.EX - l.SX
	dy := l.EY - l.SY
	lenSq := dx*dx + dy*dy

	t := 0.0
	if lenSq > 0 {
		t = (dx*(p.X-l.SX) + dy*(p.Y-l.SY)) / lenSq
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	contact := Vec2{l.SX + t*dx, l.SY + t*dy}
	return p.Dist(contact), contact
}

// Intersect tests the segment p0→p1 against l and returns the crossing point
// when both parametric coordinates lie in [0,1]. Parallel segments never
// intersect (the zero denominator yields non-finite parameters).
func (l ObstacleLine) Intersect(p0, p1 Vec2) (Vec2, bool) {
	s1x := p1.X - p0.X
	s1y := p1.Y - p0.Y
	s2x := l.EX - l.SX
	s2y := l.EY - l.SY

	denom := -s2x*s1y + s1x*s2y
	s := (-s1y*(p0.X-l.SX) + s1x*(p0.Y-l.SY)) / denom
	t := (s2x*(p0.Y-l.SY) - s2y*(p0.X-l.SX)) / denom

	if s >= 0 && s <= 1 && t >= 0 && t <= 1 {
		return Vec2{p0.X + t*s1x, p0.Y + t*s1y}, true
	}
	return Vec2{}, false
}
