/*package cell implements the columnar particle storage owned by each grid
cell and the routines that move particles between cells.

Only the first N entries of every column are valid. Removal swaps the last
live entry into the vacated slot, so the order of particles inside a cell
changes under every mutating operation. Code which needs to follow a
particle across moves should key on its ID, or use a Registry.
*/
package cell

import (
	"fmt"

	"github.com/phil-mansfield/cellgrid/geom"
)

// MaxCapacity is the largest number of particles a single cell may hold.
const MaxCapacity = 1 << 26

// AllocationError is returned when cell storage of the requested size cannot
// be provided.
type AllocationError struct {
	Requested int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf(
		"cell: cannot allocate storage for %d particles (limit is %d)",
		e.Requested, MaxCapacity,
	)
}

// IndexError is the panic value used when a particle index is out of range.
type IndexError struct {
	Op       string
	Index, N int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf(
		"cell: %s called with index %d, but the cell holds %d particles",
		e.Op, e.Index, e.N,
	)
}

// Particle is a single row of a Cell. The channel slices are ordered like the
// names in the cell's Layout. They may be nil, in which case the channels are
// zeroed.
type Particle struct {
	ID      int64
	Species int
	Mass    float64
	Epot    float64

	Pos, Mom, Force geom.Vec

	Scalars []float64
	Vectors []geom.Vec
	Tensors []Tensor
}

// Cell is growable struct-of-arrays particle storage.
type Cell struct {
	// N is the number of live particles and Cap the length of every column.
	N, Cap int
	// Increment is added to Cap whenever the cell is full. Zero means the
	// capacity doubles instead.
	Increment int
	// Index is the position of the cell within its grid, or -1 for cells
	// which aren't part of one.
	Index  int
	Layout *Layout

	ID      []int64
	Species []int
	Mass    []float64
	Epot    []float64

	Pos, Mom, Force []geom.Vec

	Scalars   [][]float64
	Vectors   [][]geom.Vec
	Tensors   [][]Tensor
	Neighbors []NeighborTable
}

// NewCell returns a grid cell with the given starting capacity which grows by
// increment particles at a time.
func NewCell(layout *Layout, capacity, increment int) (*Cell, error) {
	if increment <= 0 {
		return nil, fmt.Errorf(
			"cell: growth increment must be positive, got %d", increment,
		)
	}
	c := &Cell{Increment: increment, Index: -1, Layout: layout}
	c.initChannels()
	if err := c.Resize(capacity); err != nil {
		return nil, err
	}
	return c, nil
}

// NewTransferCell returns an empty cell which doubles its capacity when full.
// It is used to hold particles on their way to another process.
func NewTransferCell(layout *Layout) *Cell {
	c := &Cell{Index: -1, Layout: layout}
	c.initChannels()
	return c
}

func (c *Cell) initChannels() {
	c.Scalars = make([][]float64, len(c.Layout.Scalars))
	c.Vectors = make([][]geom.Vec, len(c.Layout.Vectors))
	c.Tensors = make([][]Tensor, len(c.Layout.Tensors))
}

// Resize changes the capacity of c. A capacity of zero frees every column.
// Shrinking below N is destructive: N is reset to zero and neighbor tables
// are released, since the caller is about to repopulate the cell. Otherwise
// the first N entries are carried over unchanged.
func (c *Cell) Resize(newCap int) error {
	if newCap < 0 || newCap > MaxCapacity {
		return &AllocationError{newCap}
	}

	if newCap == 0 {
		c.free()
		return nil
	}

	if newCap < c.N {
		c.N = 0
		c.Neighbors = nil
	}
	if newCap == c.Cap {
		return nil
	}

	n := c.N
	c.ID = resizeCol(c.ID, newCap, n)
	c.Species = resizeCol(c.Species, newCap, n)
	c.Mass = resizeCol(c.Mass, newCap, n)
	c.Epot = resizeCol(c.Epot, newCap, n)
	c.Pos = resizeCol(c.Pos, newCap, n)
	c.Mom = resizeCol(c.Mom, newCap, n)
	c.Force = resizeCol(c.Force, newCap, n)
	for i := range c.Scalars {
		c.Scalars[i] = resizeCol(c.Scalars[i], newCap, n)
	}
	for i := range c.Vectors {
		c.Vectors[i] = resizeCol(c.Vectors[i], newCap, n)
	}
	for i := range c.Tensors {
		c.Tensors[i] = resizeCol(c.Tensors[i], newCap, n)
	}
	if c.Layout.Neighbors {
		c.Neighbors = resizeCol(c.Neighbors, newCap, n)
	}

	c.Cap = newCap
	return nil
}

func resizeCol[T any](col []T, newCap, n int) []T {
	out := make([]T, newCap)
	copy(out, col[:min(n, len(col))])
	return out
}

func (c *Cell) free() {
	c.N, c.Cap = 0, 0
	c.ID, c.Species = nil, nil
	c.Mass, c.Epot = nil, nil
	c.Pos, c.Mom, c.Force = nil, nil, nil
	for i := range c.Scalars {
		c.Scalars[i] = nil
	}
	for i := range c.Vectors {
		c.Vectors[i] = nil
	}
	for i := range c.Tensors {
		c.Tensors[i] = nil
	}
	c.Neighbors = nil
}

// Grow increases the capacity of c according to its growth policy.
func (c *Cell) Grow() error {
	next := c.Cap + c.Increment
	if c.Increment == 0 {
		next = max(2*c.Cap, 1)
	}
	return c.Resize(next)
}

// Append adds p to the end of c, growing it if needed, and returns its slot.
func (c *Cell) Append(p *Particle) (int, error) {
	if c.N == c.Cap {
		if err := c.Grow(); err != nil {
			return -1, err
		}
	}
	c.set(c.N, p)
	c.N++
	return c.N - 1, nil
}

// Get returns a copy of the particle in slot i.
func (c *Cell) Get(i int) *Particle {
	c.check("Get", i)

	p := &Particle{
		ID: c.ID[i], Species: c.Species[i], Mass: c.Mass[i], Epot: c.Epot[i],
		Pos: c.Pos[i], Mom: c.Mom[i], Force: c.Force[i],
		Scalars: make([]float64, len(c.Scalars)),
		Vectors: make([]geom.Vec, len(c.Vectors)),
		Tensors: make([]Tensor, len(c.Tensors)),
	}
	for j := range c.Scalars {
		p.Scalars[j] = c.Scalars[j][i]
	}
	for j := range c.Vectors {
		p.Vectors[j] = c.Vectors[j][i]
	}
	for j := range c.Tensors {
		p.Tensors[j] = c.Tensors[j][i]
	}
	return p
}

// Set overwrites the live particle in slot i.
func (c *Cell) Set(i int, p *Particle) {
	c.check("Set", i)
	c.set(i, p)
}

func (c *Cell) set(i int, p *Particle) {
	c.ID[i], c.Species[i] = p.ID, p.Species
	c.Mass[i], c.Epot[i] = p.Mass, p.Epot
	c.Pos[i], c.Mom[i], c.Force[i] = p.Pos, p.Mom, p.Force

	for j := range c.Scalars {
		c.Scalars[j][i] = 0
		if j < len(p.Scalars) {
			c.Scalars[j][i] = p.Scalars[j]
		}
	}
	for j := range c.Vectors {
		c.Vectors[j][i] = geom.Vec{}
		if j < len(p.Vectors) {
			c.Vectors[j][i] = p.Vectors[j]
		}
	}
	for j := range c.Tensors {
		c.Tensors[j][i] = Tensor{}
		if j < len(p.Tensors) {
			c.Tensors[j][i] = p.Tensors[j]
		}
	}
	if c.Neighbors != nil {
		c.Neighbors[i] = c.Neighbors[i][:0]
	}
}

// copyEntry copies every column except the neighbor table from src[i] to
// dst[j].
func copyEntry(dst *Cell, j int, src *Cell, i int) {
	dst.ID[j], dst.Species[j] = src.ID[i], src.Species[i]
	dst.Mass[j], dst.Epot[j] = src.Mass[i], src.Epot[i]
	dst.Pos[j], dst.Mom[j], dst.Force[j] = src.Pos[i], src.Mom[i], src.Force[i]
	for k := range dst.Scalars {
		dst.Scalars[k][j] = src.Scalars[k][i]
	}
	for k := range dst.Vectors {
		dst.Vectors[k][j] = src.Vectors[k][i]
	}
	for k := range dst.Tensors {
		dst.Tensors[k][j] = src.Tensors[k][i]
	}
}

func (c *Cell) check(op string, i int) {
	if i < 0 || i >= c.N {
		panic(&IndexError{Op: op, Index: i, N: c.N})
	}
}

// Clear drops every particle while keeping the allocated storage.
func (c *Cell) Clear() {
	for i := 0; i < c.N && c.Neighbors != nil; i++ {
		c.Neighbors[i] = c.Neighbors[i][:0]
	}
	c.N = 0
}

// ZeroAccumulators zeroes the forces, potential energies, and accumulator
// channels of every live particle.
func (c *Cell) ZeroAccumulators() {
	n := c.N
	clear(c.Force[:n])
	clear(c.Epot[:n])
	for j, acc := range c.Layout.ScalarAccum {
		if acc {
			clear(c.Scalars[j][:n])
		}
	}
	for j, acc := range c.Layout.VectorAccum {
		if acc {
			clear(c.Vectors[j][:n])
		}
	}
	for j, acc := range c.Layout.TensorAccum {
		if acc {
			clear(c.Tensors[j][:n])
		}
	}
}
