package integrator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/cellgrid"
	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/force"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/grid"
)

func domain(t *testing.T, ps ...cell.Particle) *cellgrid.Domain {
	layout, err := cell.NewLayout(cell.LayoutConfig{})
	require.NoError(t, err)
	d, err := cellgrid.New(cellgrid.Config{
		Lattice: [3]geom.Vec{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}},
		Dim:     3,
		Grid: grid.Config{
			Cutoff: 2.5, Periodic: [3]bool{true, true, true},
			Layout: layout, InitialSize: 4, Increment: 4,
		},
	})
	require.NoError(t, err)
	for i := range ps {
		require.NoError(t, d.Insert(&ps[i]))
	}
	return d
}

func ljVerlet(t *testing.T, dt float64) *Verlet {
	lj, err := force.NewLennardJones(1, 1, 2.5)
	require.NoError(t, err)
	v, err := NewVerlet(dt, &force.Driver{Workers: 2, Passes: lj.Passes()})
	require.NoError(t, err)
	return v
}

func TestNewVerlet(t *testing.T) {
	_, err := NewVerlet(0, &force.Driver{})
	assert.Error(t, err)
	_, err = NewVerlet(math.NaN(), &force.Driver{})
	assert.Error(t, err)
}

func TestFreeParticle(t *testing.T) {
	ctx := context.Background()
	d := domain(t, cell.Particle{
		ID: 1, Mass: 2, Pos: geom.Vec{9.5, 5, 0.25}, Mom: geom.Vec{2, 0, -1},
	})
	v := ljVerlet(t, 0.1)

	_, err := v.Init(ctx, d)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err = v.Step(ctx, d)
		require.NoError(t, err)
	}

	c, j, ok := d.Locate(1)
	require.True(t, ok)
	pos := c.Pos[j]
	assert.InDelta(t, 0.5, pos[0], 1e-9)
	assert.InDelta(t, 5, pos[1], 1e-9)
	assert.InDelta(t, 9.75, pos[2], 1e-9)
	assert.Equal(t, d.Grid().Idx(0, 2, 3), c.Index)
	assert.Equal(t, geom.Vec{2, 0, -1}, c.Mom[j])
	assert.InDelta(t, 1.25, KineticEnergy(d), 1e-12)
	assert.Equal(t, 0, v.Rebuilds)
}

func TestEnergyConservation(t *testing.T) {
	ctx := context.Background()
	d := domain(t,
		cell.Particle{ID: 1, Mass: 1, Pos: geom.Vec{9.25, 5, 5}},
		cell.Particle{ID: 2, Mass: 1, Pos: geom.Vec{0.75, 5, 5}},
	)
	v := ljVerlet(t, 0.001)

	e, err := v.Init(ctx, d)
	require.NoError(t, err)
	e0 := e.Pot + KineticEnergy(d)
	assert.InDelta(t, 4*(math.Pow(1.5, -12)-math.Pow(1.5, -6)), e0, 1e-12)

	for i := 0; i < 2000; i++ {
		e, err = v.Step(ctx, d)
		require.NoError(t, err)
		assert.InDelta(t, e0, e.Pot+KineticEnergy(d), 1e-3, "step %d", i)
	}

	var p geom.Vec
	d.ForEachCell(func(c *cell.Cell) {
		for i := 0; i < c.N; i++ {
			p.AddSelf(c.Mom[i])
		}
	})
	assert.InDelta(t, 0, p.Norm(), 1e-9)
	assert.Equal(t, 2, d.Count())
}

func TestStepCanceled(t *testing.T) {
	d := domain(t, cell.Particle{ID: 1, Mass: 1, Pos: geom.Vec{1, 1, 1}})
	v := ljVerlet(t, 0.01)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.Step(ctx, d)
	assert.ErrorIs(t, err, context.Canceled)
}
