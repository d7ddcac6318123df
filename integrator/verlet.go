// Package integrator advances a cellgrid.Domain in time with the velocity
// Verlet scheme.
package integrator

import (
	"context"
	"fmt"

	"github.com/phil-mansfield/cellgrid"
	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/force"
	"github.com/phil-mansfield/cellgrid/thread"
)

// Verlet is a velocity Verlet integrator. Forces must be current before the
// first call to Step, which Init arranges.
type Verlet struct {
	TimeStep float64
	Driver   *force.Driver
	// Rebuilds counts the grid rebuilds triggered by Step.
	Rebuilds int
}

// NewVerlet returns a Verlet integrator which evaluates forces with drv.
func NewVerlet(dt float64, drv *force.Driver) (*Verlet, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("integrator: TimeStep must be positive, got %g", dt)
	}
	return &Verlet{TimeStep: dt, Driver: drv}, nil
}

// Init computes the forces on the starting configuration.
func (v *Verlet) Init(ctx context.Context, d *cellgrid.Domain) (force.Energy, error) {
	return d.Compute(ctx, v.Driver)
}

// Step advances d by one time step and returns the potential energy of the
// new configuration.
func (v *Verlet) Step(ctx context.Context, d *cellgrid.Domain) (force.Energy, error) {
	if err := v.kick(ctx, d); err != nil {
		return force.Energy{}, err
	}
	if err := v.drift(ctx, d); err != nil {
		return force.Energy{}, err
	}

	if err := d.Redistribute(ctx); err != nil {
		return force.Energy{}, err
	}
	rebuilt, err := d.RebuildGridIfNeeded(ctx)
	if err != nil {
		return force.Energy{}, err
	}
	if rebuilt {
		v.Rebuilds++
	}

	e, err := d.Compute(ctx, v.Driver)
	if err != nil {
		return force.Energy{}, err
	}
	if err := v.kick(ctx, d); err != nil {
		return force.Energy{}, err
	}
	return e, nil
}

// kick advances momenta by half a step.
func (v *Verlet) kick(ctx context.Context, d *cellgrid.Domain) error {
	h := v.TimeStep / 2
	return forOwned(ctx, v.Driver.Workers, d, func(c *cell.Cell) {
		for i := 0; i < c.N; i++ {
			c.Mom[i].AddSelf(c.Force[i].Scale(h))
		}
	})
}

// drift advances positions by a full step.
func (v *Verlet) drift(ctx context.Context, d *cellgrid.Domain) error {
	dt := v.TimeStep
	return forOwned(ctx, v.Driver.Workers, d, func(c *cell.Cell) {
		for i := 0; i < c.N; i++ {
			c.Pos[i].AddSelf(c.Mom[i].Scale(dt / c.Mass[i]))
		}
	})
}

func forOwned(
	ctx context.Context, workers int, d *cellgrid.Domain, fn func(c *cell.Cell),
) error {
	owned := d.Partitioner().Owned()
	return thread.For(ctx, workers, len(owned), func(_, lo, hi int) error {
		for _, c := range owned[lo:hi] {
			fn(c)
		}
		return nil
	})
}

// KineticEnergy returns the total kinetic energy of the particles in d.
func KineticEnergy(d *cellgrid.Domain) float64 {
	sum := 0.0
	d.ForEachCell(func(c *cell.Cell) {
		for i := 0; i < c.N; i++ {
			sum += c.Mom[i].Norm2() / (2 * c.Mass[i])
		}
	})
	return sum
}
