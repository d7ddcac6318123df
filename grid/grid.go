package grid

import (
	"fmt"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
)

// Grid is an arena of cells which can be addressed as a 3D array.
type Grid struct {
	Dims  geom.IVec
	Cells []*cell.Cell
	// Debug turns on bounds checking in Idx.
	Debug bool

	area, volume int
}

// NewGrid allocates a grid with the given dimensions. Cells inside the owned
// range [lo, hi) start with the given capacity, all other cells are ghosts
// and start empty.
func NewGrid(
	dims, lo, hi geom.IVec, layout *cell.Layout, capacity, increment int,
) (*Grid, error) {
	g := &Grid{}
	g.Init(dims)
	g.Cells = make([]*cell.Cell, g.volume)

	for idx := range g.Cells {
		x, y, z := g.Coords(idx)
		c := geom.IVec{x, y, z}
		n := 0
		if inRange(c, lo, hi) {
			n = capacity
		}
		cl, err := cell.NewCell(layout, n, increment)
		if err != nil {
			return nil, err
		}
		cl.Index = idx
		g.Cells[idx] = cl
	}
	return g, nil
}

// Init sets the dimensions of g without allocating any cells.
func (g *Grid) Init(dims geom.IVec) {
	g.Dims = dims
	g.area = dims[1] * dims[2]
	g.volume = dims[0] * dims[1] * dims[2]
}

// Idx returns the grid index corresponding to a set of coordinates.
func (g *Grid) Idx(x, y, z int) int {
	if g.Debug && !g.BoundsCheck(x, y, z) {
		panic(fmt.Sprintf(
			"grid: coordinate (%d, %d, %d) outside grid of size %v.",
			x, y, z, g.Dims,
		))
	}
	return x*g.area + y*g.Dims[2] + z
}

// IdxCheck returns an index and true if the given coordinate are valid and
// false otherwise.
func (g *Grid) IdxCheck(x, y, z int) (idx int, ok bool) {
	if !g.BoundsCheck(x, y, z) {
		return -1, false
	}
	return g.Idx(x, y, z), true
}

// BoundsCheck returns true if the given coordinates are within the Grid and
// false otherwise.
func (g *Grid) BoundsCheck(x, y, z int) bool {
	return (0 <= x && 0 <= y && 0 <= z) &&
		(x < g.Dims[0] && y < g.Dims[1] && z < g.Dims[2])
}

// Coords returns the x, y, z coordinates of a point from its grid index.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx / g.area
	y = (idx % g.area) / g.Dims[2]
	z = idx % g.Dims[2]
	return x, y, z
}

// At returns the cell at the given coordinate.
func (g *Grid) At(c geom.IVec) *cell.Cell {
	return g.Cells[g.Idx(c[0], c[1], c[2])]
}

// Len returns the number of cells in the grid, ghosts included.
func (g *Grid) Len() int { return g.volume }

func inRange(c, lo, hi geom.IVec) bool {
	for k := 0; k < 3; k++ {
		if c[k] < lo[k] || c[k] >= hi[k] {
			return false
		}
	}
	return true
}
