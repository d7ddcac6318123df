/*package force drives the evaluation of interaction kernels over the cell
pairs of a grid.

A Driver runs in phases. It first zeroes forces, potential energies, and
accumulator channels, then runs each Pass in order. A pair pass processes
the pair buckets one at a time, spreading the pairs of a bucket over its
workers. Since no cell appears twice in a bucket, kernels may write to both
cells of a pair without locking. A cell pass visits every owned cell once.
Global kernels, such as long-range corrections, run last on a single
goroutine.
*/
package force

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/pairs"
	"github.com/phil-mansfield/cellgrid/thread"
)

const tracerName = "github.com/phil-mansfield/cellgrid/force"

// Energy is the potential energy and virial contributed by a kernel.
type Energy struct {
	Pot, Virial float64
	// Vir holds the diagonal components of the virial tensor.
	Vir geom.Vec
}

// Add adds e2 to e.
func (e *Energy) Add(e2 Energy) {
	e.Pot += e2.Pot
	e.Virial += e2.Virial
	e.Vir.AddSelf(e2.Vir)
}

// PairKernel computes the interactions between the particles of two cells.
// The particles of q are translated by shift. If p == q the kernel must
// count each particle pair once and skip self-interactions.
type PairKernel interface {
	Pair(p, q *cell.Cell, shift geom.Vec) Energy
}

// CellKernel computes a contribution that depends on a single cell.
type CellKernel interface {
	Cell(p *cell.Cell) Energy
}

// GlobalKernel computes a contribution that depends on the whole system.
type GlobalKernel interface {
	Apply(src Source) Energy
}

// Source is the system a Driver evaluates.
type Source interface {
	Box() *geom.Box
	// Cells returns every cell, indexed like the pairs in Lists.
	Cells() []*cell.Cell
	Owned() []*cell.Cell
	Lists() *pairs.Lists
}

// Pass is one sweep over the system. Exactly one of Pair and Cell should be
// set.
type Pass struct {
	Name string
	Pair PairKernel
	Cell CellKernel
}

// Driver evaluates a fixed sequence of passes.
type Driver struct {
	// Workers is the number of goroutines to use. Zero means
	// thread.NumCores.
	Workers int
	Passes  []Pass
	Global  []GlobalKernel
	Tracer  trace.Tracer
}

func (d *Driver) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}
	return otel.Tracer(tracerName)
}

// Compute runs every pass over src and returns the total energy.
func (d *Driver) Compute(ctx context.Context, src Source) (Energy, error) {
	ctx, span := d.tracer().Start(ctx, "force.Compute")
	defer span.End()

	if err := d.zero(ctx, src); err != nil {
		return Energy{}, err
	}

	var total Energy
	for _, pass := range d.Passes {
		var (
			e   Energy
			err error
		)
		switch {
		case pass.Pair != nil:
			e, err = d.pairPass(ctx, src, pass)
		case pass.Cell != nil:
			e, err = d.cellPass(ctx, src, pass)
		}
		if err != nil {
			return Energy{}, err
		}
		total.Add(e)
	}

	if len(d.Global) > 0 {
		_, gspan := d.tracer().Start(ctx, "force.global")
		for _, g := range d.Global {
			total.Add(g.Apply(src))
		}
		gspan.End()
	}

	span.SetAttributes(attribute.Float64("cellgrid.epot", total.Pot))
	return total, nil
}

func (d *Driver) zero(ctx context.Context, src Source) error {
	ctx, span := d.tracer().Start(ctx, "force.zero")
	defer span.End()

	cells := src.Cells()
	return thread.For(ctx, d.Workers, len(cells), func(_, lo, hi int) error {
		for _, c := range cells[lo:hi] {
			if c.N > 0 {
				c.ZeroAccumulators()
			}
		}
		return nil
	})
}

func (d *Driver) pairPass(
	ctx context.Context, src Source, pass Pass,
) (Energy, error) {
	ctx, span := d.tracer().Start(ctx, "force.pairs",
		trace.WithAttributes(attribute.String("cellgrid.pass", pass.Name)))
	defer span.End()

	box, cells := src.Box(), src.Cells()
	lists := src.Lists()
	partial := make([]Energy, thread.Workers(d.Workers, lists.Len()))
	for bi := range lists.Buckets {
		bucket := lists.Buckets[bi].Pairs
		err := thread.For(ctx, d.Workers, len(bucket), func(w, lo, hi int) error {
			for _, pr := range bucket[lo:hi] {
				p, q := cells[pr.A], cells[pr.B]
				if p.N == 0 || q.N == 0 {
					continue
				}
				partial[w].Add(pass.Pair.Pair(p, q, box.ShiftVector(pr.Shift)))
			}
			return nil
		})
		if err != nil {
			return Energy{}, err
		}
	}

	var e Energy
	for i := range partial {
		e.Add(partial[i])
	}
	return e, nil
}

func (d *Driver) cellPass(
	ctx context.Context, src Source, pass Pass,
) (Energy, error) {
	ctx, span := d.tracer().Start(ctx, "force.cells",
		trace.WithAttributes(attribute.String("cellgrid.pass", pass.Name)))
	defer span.End()

	cells := src.Owned()
	partial := make([]Energy, thread.Workers(d.Workers, len(cells)))
	err := thread.For(ctx, d.Workers, len(cells), func(w, lo, hi int) error {
		for _, c := range cells[lo:hi] {
			if c.N > 0 {
				partial[w].Add(pass.Cell.Cell(c))
			}
		}
		return nil
	})
	if err != nil {
		return Energy{}, err
	}

	var e Energy
	for i := range partial {
		e.Add(partial[i])
	}
	return e, nil
}
