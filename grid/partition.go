package grid

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/pairs"
)

// Partitioner owns the cell grid of a box and the pair lists built over it.
type Partitioner struct {
	Config   Config
	Registry *cell.Registry

	box      *geom.Box
	dims     *Dimensions
	grid     *Grid
	lists    *pairs.Lists
	outgoing *cell.Cell
	heights  geom.Vec
	owned    []*cell.Cell
	migrator cell.Migrator
}

// NewPartitioner lays out and allocates the grid for box.
func NewPartitioner(box *geom.Box, config Config) (*Partitioner, error) {
	p := &Partitioner{
		Config:   config,
		Registry: cell.NewRegistry(),
		box:      box,
	}
	p.migrator.Registry = p.Registry
	if config.Layout != nil {
		p.outgoing = cell.NewTransferCell(config.Layout)
	}
	if err := p.Rebuild(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Partitioner) Box() *geom.Box { return p.box }
func (p *Partitioner) Grid() *Grid { return p.grid }
func (p *Partitioner) Lists() *pairs.Lists { return p.lists }
func (p *Partitioner) Dimensions() *Dimensions { return p.dims }
func (p *Partitioner) Distributed() bool { return p.Config.Procs != nil }
func (p *Partitioner) Outgoing() *cell.Cell { return p.outgoing }
func (p *Partitioner) Migrator() *cell.Migrator { return &p.migrator }

// Cells returns every cell of the grid, ghosts included.
func (p *Partitioner) Cells() []*cell.Cell { return p.grid.Cells }

// Owned returns the cells owned by this process.
func (p *Partitioner) Owned() []*cell.Cell { return p.owned }

// Topology returns the description of the current grid used to build pairs.
func (p *Partitioner) Topology() pairs.Topology {
	return pairs.Topology{
		Dim:         p.box.Dim,
		Global:      p.dims.Global,
		Local:       p.dims.Local,
		Offset:      p.dims.Offset,
		Periodic:    p.Config.Periodic,
		Distributed: p.Distributed(),
	}
}

// Rebuild lays out a new grid for the current box, moves every owned
// particle into it, and rebuilds the pair lists.
func (p *Partitioner) Rebuild() error {
	dims, err := ComputeDimensions(p.box, &p.Config)
	if err != nil {
		return err
	}
	g, err := NewGrid(
		dims.Local, dims.Lo, dims.Hi,
		p.Config.Layout, p.Config.InitialSize, p.Config.Increment,
	)
	if err != nil {
		return err
	}
	g.Debug = p.Config.Debug

	old, oldDims, oldOwned := p.grid, p.dims, p.owned
	p.dims, p.grid = dims, g
	p.owned = nil
	for idx, c := range g.Cells {
		x, y, z := g.Coords(idx)
		if inRange(geom.IVec{x, y, z}, dims.Lo, dims.Hi) {
			p.owned = append(p.owned, c)
		}
	}

	lists, err := pairs.Build(p.Topology())
	if err != nil {
		p.dims, p.grid, p.owned = oldDims, old, oldOwned
		return err
	}
	if p.Config.Debug {
		if err := lists.CheckDisjoint(); err != nil {
			p.dims, p.grid, p.owned = oldDims, old, oldOwned
			return err
		}
	}
	p.lists = lists

	if old != nil {
		if err := p.repopulate(old, oldDims); err != nil {
			return err
		}
		if err := p.reindex(); err != nil {
			return err
		}
	}
	p.heights = p.box.Heights()

	p.logf("Global cell array dimensions: %d %d %d",
		dims.Global[0], dims.Global[1], dims.Global[2])
	p.logf("Local cell array dimensions: %d %d %d",
		dims.Local[0], dims.Local[1], dims.Local[2])
	for k := 0; k < p.box.Dim; k++ {
		p.logf("Axis %d: minimal cell size %.4g, actual cell size %.4g",
			k, dims.MinScale[k]*p.heights[k], dims.Scale[k]*p.heights[k])
	}
	if p.Config.Ensemble != NVE {
		p.logf("Next grid %v, limit shrink %.4g, limit growth %.4g",
			dims.Next, dims.LimitShrink, dims.LimitGrowth)
	}

	return nil
}

// repopulate moves the particles of every owned cell in old into the current
// grid and frees the old cells.
func (p *Partitioner) repopulate(old *Grid, oldDims *Dimensions) error {
	for idx, c := range old.Cells {
		x, y, z := old.Coords(idx)
		if inRange(geom.IVec{x, y, z}, oldDims.Lo, oldDims.Hi) {
			for i := c.N - 1; i >= 0; i-- {
				dst := p.grid.At(p.clampOwned(p.LocalCoord(c.Pos[i])))
				if _, err := p.migrator.Move(dst, c, i); err != nil {
					return err
				}
			}
		}
		c.Resize(0)
	}
	return nil
}

// reindex rebuilds the id registry from the new grid and the outgoing cell.
func (p *Partitioner) reindex() error {
	p.Registry.Reset()
	for _, c := range p.owned {
		p.Registry.Index(c)
	}
	if p.outgoing != nil {
		p.Registry.Index(p.outgoing)
	}

	n := p.Count()
	if p.outgoing != nil {
		n += p.outgoing.N
	}
	if p.Registry.Len() != n {
		return fmt.Errorf(
			"grid: %d particles but %d distinct ids after rebuild",
			n, p.Registry.Len(),
		)
	}
	return nil
}

// SetBox replaces the box. The grid is left alone until the next Rebuild.
func (p *Partitioner) SetBox(box *geom.Box) { p.box = box }

// NeedsRebuild returns true if the current grid is no longer valid for the
// box. Fixed-volume ensembles rebuild whenever the grid dimensions change,
// fluctuating-volume ensembles only once a box height leaves the range set
// by LimitShrink and LimitGrowth.
func (p *Partitioner) NeedsRebuild() bool {
	if p.Config.Ensemble == NVE {
		dims, err := ComputeDimensions(p.box, &p.Config)
		if err != nil {
			// Let Rebuild report the problem.
			return true
		}
		return dims.Global != p.dims.Global
	}

	h := p.box.Heights()
	for k := 0; k < p.box.Dim; k++ {
		ratio := h[k] / p.heights[k]
		if ratio < p.dims.LimitShrink[k] || ratio >= p.dims.LimitGrowth[k] {
			return true
		}
	}
	return false
}

// CellCoord returns the global coordinate of the cell containing x. Points
// outside the box are clamped onto the boundary cells.
func (p *Partitioner) CellCoord(x geom.Vec) geom.IVec {
	s := p.box.Fractional(x)
	var c geom.IVec
	for k := 0; k < 3; k++ {
		g := p.dims.Global[k]
		i := int(math.Floor(s[k] * float64(g)))
		c[k] = min(max(i, 0), g-1)
	}
	return c
}

// LocalCoord returns the coordinate of the cell containing x within the
// local grid. In a distributed grid the result may lie in the ghost margin
// or outside the local grid entirely.
func (p *Partitioner) LocalCoord(x geom.Vec) geom.IVec {
	c := p.CellCoord(x)
	if !p.Distributed() {
		return c
	}
	for k := 0; k < p.box.Dim; k++ {
		c[k] += 1 - p.dims.Offset[k]
	}
	return c
}

// Owns returns true if the local coordinate c is owned by this process.
func (p *Partitioner) Owns(c geom.IVec) bool {
	return inRange(c, p.dims.Lo, p.dims.Hi)
}

func (p *Partitioner) clampOwned(c geom.IVec) geom.IVec {
	for k := 0; k < 3; k++ {
		c[k] = min(max(c[k], p.dims.Lo[k]), p.dims.Hi[k]-1)
	}
	return c
}

// ForEachOwned calls fn on every owned cell of the grid.
func (p *Partitioner) ForEachOwned(fn func(c *cell.Cell)) {
	for _, c := range p.owned {
		fn(c)
	}
}

// Count returns the number of particles held in owned cells.
func (p *Partitioner) Count() int {
	n := 0
	p.ForEachOwned(func(c *cell.Cell) { n += c.N })
	return n
}

// Insert adds a particle to the cell containing it. Particles outside of the
// owned region are rejected.
func (p *Partitioner) Insert(pt *cell.Particle) error {
	if p.Distributed() {
		c := p.LocalCoord(pt.Pos)
		if !p.Owns(c) {
			return fmt.Errorf(
				"grid: particle %d at %v is outside of the owned cells",
				pt.ID, pt.Pos,
			)
		}
	}
	if _, ok := p.Registry.Get(pt.ID); ok {
		return fmt.Errorf("grid: particle id %d inserted twice", pt.ID)
	}

	dst := p.grid.At(p.LocalCoord(pt.Pos))
	i, err := dst.Append(pt)
	if err != nil {
		return err
	}
	p.Registry.Put(pt.ID, dst.Index, i)
	return nil
}

// Redistribute wraps positions back into the box along periodic axes and
// moves particles which have left their cell. In a distributed grid,
// particles which have left the owned region are moved to the outgoing
// transfer cell.
func (p *Partitioner) Redistribute() error {
	var err error
	p.ForEachOwned(func(c *cell.Cell) {
		for i := c.N - 1; i >= 0 && err == nil; i-- {
			c.Pos[i] = p.box.WrapIntoBox(c.Pos[i], p.Config.Periodic)
			lc := p.LocalCoord(c.Pos[i])

			var dst *cell.Cell
			if p.Owns(lc) {
				dst = p.grid.At(lc)
			} else {
				dst = p.outgoing
			}
			if dst != c {
				_, err = p.migrator.Move(dst, c, i)
			}
		}
	})
	return err
}

// ClearOutgoing drops the particles in the transfer cell once the transport
// layer has sent them elsewhere.
func (p *Partitioner) ClearOutgoing() {
	for i := 0; i < p.outgoing.N; i++ {
		p.Registry.Delete(p.outgoing.ID[i])
	}
	p.outgoing.Clear()
}

// Locate returns the cell and slot of the particle with the given id.
func (p *Partitioner) Locate(id int64) (*cell.Cell, int, bool) {
	loc, ok := p.Registry.Get(id)
	if !ok {
		return nil, -1, false
	}
	if loc.Cell < 0 {
		return p.outgoing, loc.Slot, true
	}
	return p.grid.Cells[loc.Cell], loc.Slot, true
}

func (p *Partitioner) logf(format string, args ...any) {
	if p.Config.Logger != nil {
		p.Config.Logger.Printf(format, args...)
	}
}
