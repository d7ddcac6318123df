/*
Package cellgrid is the spatial decomposition layer of a particle
simulation. A Domain splits a periodic (and possibly triclinic) box into a
grid of cells no thinner than the interaction cutoff, keeps every particle
in the cell that contains it, and hands force kernels the pairs of
neighboring cells in buckets that can be processed in parallel.

A typical step looks like:

	e, err := dom.Compute(ctx, driver)
	// ... integrate positions and momenta ...
	err = dom.Redistribute(ctx)
	rebuilt, err := dom.RebuildGridIfNeeded(ctx)

The order of particles inside a cell changes whenever particles move. Use
Locate to find a particle by id.
*/
package cellgrid

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/force"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/grid"
	"github.com/phil-mansfield/cellgrid/pairs"
)

const tracerName = "github.com/phil-mansfield/cellgrid"

// Config describes the box and the grid laid over it.
type Config struct {
	Lattice [3]geom.Vec
	// Dim is 2 or 3. Two dimensional boxes only use the first two lattice
	// vectors.
	Dim  int
	Grid grid.Config
}

// Domain owns the box, the cell grid and the pair lists of one process.
type Domain struct {
	part   *grid.Partitioner
	tracer trace.Tracer
}

// New returns a Domain with an empty grid.
func New(config Config) (*Domain, error) {
	box, err := geom.NewBox(config.Lattice, config.Dim)
	if err != nil {
		return nil, err
	}
	part, err := grid.NewPartitioner(box, config.Grid)
	if err != nil {
		return nil, err
	}
	return &Domain{part: part, tracer: otel.Tracer(tracerName)}, nil
}

func (d *Domain) Box() *geom.Box { return d.part.Box() }
func (d *Domain) Grid() *grid.Grid { return d.part.Grid() }
func (d *Domain) Lists() *pairs.Lists { return d.part.Lists() }
func (d *Domain) Partitioner() *grid.Partitioner { return d.part }
func (d *Domain) Outgoing() *cell.Cell { return d.part.Outgoing() }

// Count returns the number of particles owned by this process.
func (d *Domain) Count() int { return d.part.Count() }

// CellCoord returns the global coordinate of the cell containing x.
func (d *Domain) CellCoord(x geom.Vec) geom.IVec { return d.part.CellCoord(x) }

// WrapIntoBox returns the image of x inside the box along every periodic
// axis.
func (d *Domain) WrapIntoBox(x geom.Vec) geom.Vec {
	return d.part.Box().WrapIntoBox(x, d.part.Config.Periodic)
}

// ForEachCell calls fn on every owned cell.
func (d *Domain) ForEachCell(fn func(c *cell.Cell)) { d.part.ForEachOwned(fn) }

// ForEachLivePairList calls fn on every non-empty pair bucket, in the order
// they must be processed.
func (d *Domain) ForEachLivePairList(fn func(b *pairs.Bucket)) {
	buckets := d.part.Lists().Buckets
	for i := range buckets {
		if len(buckets[i].Pairs) > 0 {
			fn(&buckets[i])
		}
	}
}

// Insert adds a particle to the cell that contains it.
func (d *Domain) Insert(p *cell.Particle) error { return d.part.Insert(p) }

// Locate returns the cell and slot holding the particle with the given id.
func (d *Domain) Locate(id int64) (*cell.Cell, int, bool) { return d.part.Locate(id) }

// Migrate moves the particle in slot i of src into dst.
func (d *Domain) Migrate(src *cell.Cell, i int, dst *cell.Cell) error {
	_, err := d.part.Migrator().Move(dst, src, i)
	return err
}

// ClearOutgoing drops the particles waiting in the outgoing transfer cell.
func (d *Domain) ClearOutgoing() { d.part.ClearOutgoing() }

// SetLattice changes the lattice vectors of the box. The grid is not
// touched until RebuildGridIfNeeded.
func (d *Domain) SetLattice(lattice [3]geom.Vec) error {
	box, err := geom.NewBox(lattice, d.part.Box().Dim)
	if err != nil {
		return err
	}
	d.part.SetBox(box)
	return nil
}

// Redistribute wraps positions into the box and moves every particle which
// has left its cell.
func (d *Domain) Redistribute(ctx context.Context) error {
	_, span := d.tracer.Start(ctx, "cellgrid.Redistribute")
	defer span.End()
	return d.part.Redistribute()
}

// RebuildGridIfNeeded repartitions the box if the current grid is no longer
// valid for it and reports whether it did.
func (d *Domain) RebuildGridIfNeeded(ctx context.Context) (bool, error) {
	if !d.part.NeedsRebuild() {
		return false, nil
	}

	_, span := d.tracer.Start(ctx, "cellgrid.Rebuild")
	defer span.End()
	if err := d.part.Rebuild(); err != nil {
		span.RecordError(err)
		return false, err
	}
	g := d.part.Dimensions().Global
	span.SetAttributes(attribute.IntSlice("cellgrid.dims", g[:]))
	return true, nil
}

// Compute evaluates the driver's kernels over the domain.
func (d *Domain) Compute(ctx context.Context, drv *force.Driver) (force.Energy, error) {
	return drv.Compute(ctx, d.part)
}
