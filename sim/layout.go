package sim

import (
	"fmt"
	"math/rand"
)

// Room layout constants. The environment is a square split into a 4x4 grid of
// rooms; every interior room boundary carries a wall stub at each corner and a
// gate segment between the stubs.
const (
	NumRoomsPerSide = 4
	NumWalls        = 30
	NumGates        = 24
	NumGoals        = 7

	roomFrac    = 0.25  // room side as a fraction of the environment
	wallHalf    = 0.125 // half extent of a corner wall stub before trimming
	wallTrim    = 0.023
	gateInset   = 0.1 // gate inset from the room corner
	borderInset = 0.001

	verticalWalls = (NumRoomsPerSide - 1) * (NumRoomsPerSide + 1)
	verticalGates = (NumRoomsPerSide - 1) * NumRoomsPerSide
)

// Layout holds the static room geometry for an environment of side Dim.
// Gates are returned closed (barrier present); clones copy them and lift
// barriers as their schedules fire.
type Layout struct {
	Dim   float64
	Walls []ObstacleLine
	Gates []ObstacleLine
}

// NewLayout builds the wall and gate segments for a square environment.
// Panics if dim is not positive.
func NewLayout(dim float64) *Layout {
	if dim <= 0 {
		panic(fmt.Sprintf("NewLayout: dim must be > 0, got %f", dim))
	}
	walls := make([]ObstacleLine, NumWalls)
	gates := make([]ObstacleLine, NumGates)

	// vertical stubs on x = 0.25, 0.5, 0.75
	for ix := 1; ix < NumRoomsPerSide; ix++ {
		for iy := 0; iy <= NumRoomsPerSide; iy++ {
			idx := (ix-1)*(NumRoomsPerSide+1) + iy
			x := roomFrac * float64(ix) * dim
			walls[idx] = NewObstacleLine(
				x, (roomFrac*float64(iy)-wallHalf+wallTrim)*dim,
				x, (roomFrac*float64(iy)+wallHalf-wallTrim)*dim)
		}
	}
	// horizontal stubs on y = 0.25, 0.5, 0.75
	for iy := 1; iy < NumRoomsPerSide; iy++ {
		for ix := 0; ix <= NumRoomsPerSide; ix++ {
			idx := verticalWalls + (iy-1)*(NumRoomsPerSide+1) + ix
			y := roomFrac * float64(iy) * dim
			walls[idx] = NewObstacleLine(
				(roomFrac*float64(ix)-wallHalf+wallTrim)*dim, y,
				(roomFrac*float64(ix)+wallHalf-wallTrim)*dim, y)
		}
	}
	for ix := 1; ix < NumRoomsPerSide; ix++ {
		for iy := 0; iy < NumRoomsPerSide; iy++ {
			idx := (ix-1)*NumRoomsPerSide + iy
			x := roomFrac * float64(ix) * dim
			gates[idx] = NewObstacleLine(
				x, (roomFrac*float64(iy)+gateInset)*dim,
				x, (roomFrac*float64(iy+1)-gateInset)*dim)
		}
	}
	for iy := 1; iy < NumRoomsPerSide; iy++ {
		for ix := 0; ix < NumRoomsPerSide; ix++ {
			idx := verticalGates + (iy-1)*NumRoomsPerSide + ix
			y := roomFrac * float64(iy) * dim
			gates[idx] = NewObstacleLine(
				(roomFrac*float64(ix)+gateInset)*dim, y,
				(roomFrac*float64(ix+1)-gateInset)*dim, y)
		}
	}
	return &Layout{Dim: dim, Walls: walls, Gates: gates}
}

// NewWaypoints plans a room-to-room route from loc toward the far corner.
// Each step moves one room right or down through the centre of a gate; the
// last waypoint is always the corner (Dim, Dim).
func (l *Layout) NewWaypoints(loc Vec2, rng *rand.Rand) [NumGoals]Vec2 {
	dim := l.Dim
	ix := int(loc.X / (roomFrac * dim))
	iy := int(loc.Y / (roomFrac * dim))
	last := NumRoomsPerSide - 1

	var seq [NumGoals]Vec2
	for i := range seq {
		seq[i] = Vec2{dim, dim}
	}
	for i := 0; i < NumGoals-1; i++ {
		r := rng.Float64()
		switch {
		case ix < last && iy < last && r < 0.5:
			iy++
			seq[i] = Vec2{(float64(ix)*roomFrac + roomFrac/2) * dim, float64(iy) * roomFrac * dim}
		case ix < last:
			ix++
			seq[i] = Vec2{float64(ix) * roomFrac * dim, (float64(iy)*roomFrac + roomFrac/2) * dim}
		case iy < last:
			iy++
			seq[i] = Vec2{(float64(ix)*roomFrac + roomFrac/2) * dim, float64(iy) * roomFrac * dim}
		}
	}
	return seq
}

// clampToBounds pulls v into [0, limit): values at or above the limit land
// just inside it, negatives clamp to zero.
func clampToBounds(v, limit float64) float64 {
	if v >= limit {
		return limit - borderInset
	}
	if v < 0 {
		return 0
	}
	return v
}
