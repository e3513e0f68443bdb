package sim

import (
	"fmt"
	"math"
)

const (
	// OccupancyCellDim is the side of one occupancy cell.
	OccupancyCellDim = 4.0
	// PassiveRadius is the half-width of the window scanned around an agent
	// by the passive cloning condition.
	PassiveRadius = 5.0
)

// OccupancyGrid marks the coarse cells that hold at least one agent owned by
// a clone. Cells are stored column-major: cells[ix*n+iy].
type OccupancyGrid struct {
	n     int
	cells []bool
}

// NewOccupancyGrid covers a square environment of side dim.
func NewOccupancyGrid(dim float64) *OccupancyGrid {
	n := int(math.Ceil(dim / OccupancyCellDim))
	if n < 1 {
		panic(fmt.Sprintf("NewOccupancyGrid: dim %f yields no cells", dim))
	}
	return &OccupancyGrid{n: n, cells: make([]bool, n*n)}
}

// Size returns the number of cells per side.
func (g *OccupancyGrid) Size() int { return g.n }

// Clear unmarks every cell.
func (g *OccupancyGrid) Clear() {
	clear(g.cells)
}

// Mark records an agent at p.
func (g *OccupancyGrid) Mark(p Vec2) {
	g.cells[g.cellIndex(g.clampCell(p.X), g.clampCell(p.Y))] = true
}

// Occupied reports whether cell (ix, iy) is marked.
func (g *OccupancyGrid) Occupied(ix, iy int) bool {
	return g.cells[g.cellIndex(ix, iy)]
}

// AnyWithin reports whether a marked cell overlaps the square window of half
// width radius around p. The window is converted to cell indices and clamped
// to the grid.
func (g *OccupancyGrid) AnyWithin(p Vec2, radius float64) bool {
	minX := g.clampCell(p.X - radius)
	minY := g.clampCell(p.Y - radius)
	maxX := g.clampCell(p.X + radius)
	maxY := g.clampCell(p.Y + radius)
	for ix := minX; ix <= maxX; ix++ {
		for iy := minY; iy <= maxY; iy++ {
			if g.cells[g.cellIndex(ix, iy)] {
				return true
			}
		}
	}
	return false
}

// Count returns the number of marked cells.
func (g *OccupancyGrid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

func (g *OccupancyGrid) clampCell(v float64) int {
	c := int(math.Floor(v / OccupancyCellDim))
	return max(0, min(c, g.n-1))
}

func (g *OccupancyGrid) cellIndex(ix, iy int) int {
	return ix*g.n + iy
}
