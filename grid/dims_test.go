package grid

import (
	"math"
	"testing"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func cube(t *testing.T, edge float64) *geom.Box {
	b, err := geom.NewBox([3]geom.Vec{{edge, 0, 0}, {0, edge, 0}, {0, 0, edge}}, 3)
	require.NoError(t, err)
	return b
}

func testConfig(t *testing.T, cutoff float64) Config {
	l, err := cell.NewLayout(cell.LayoutConfig{})
	require.NoError(t, err)
	return Config{
		Cutoff: cutoff, Periodic: [3]bool{true, true, true},
		Layout: l, InitialSize: 4, Increment: 4,
	}
}

func TestComputeDimensions(t *testing.T) {
	sheared, err := geom.NewBox([3]geom.Vec{{10, 0, 0}, {5, 10, 0}, {0, 0, 10}}, 3)
	require.NoError(t, err)
	flat, err := geom.NewBox([3]geom.Vec{{8, 0, 0}, {0, 4, 0}}, 2)
	require.NoError(t, err)

	table := []struct {
		box    *geom.Box
		cutoff float64
		procs  *ProcessGrid
		global geom.IVec
		local  geom.IVec
		offset geom.IVec
	}{
		{cube(t, 10), 2.5, nil, geom.IVec{4, 4, 4}, geom.IVec{4, 4, 4}, geom.IVec{}},
		{cube(t, 10), 3, nil, geom.IVec{3, 3, 3}, geom.IVec{3, 3, 3}, geom.IVec{}},
		{sheared, 2.5, nil, geom.IVec{3, 4, 4}, geom.IVec{3, 4, 4}, geom.IVec{}},
		{flat, 2, nil, geom.IVec{4, 2, 1}, geom.IVec{4, 2, 1}, geom.IVec{}},
		{
			cube(t, 10), 1, &ProcessGrid{geom.IVec{3, 2, 1}, geom.IVec{2, 1, 0}},
			geom.IVec{9, 10, 10}, geom.IVec{5, 7, 12}, geom.IVec{6, 5, 0},
		},
		{
			flat, 1, &ProcessGrid{geom.IVec{2, 2, 1}, geom.IVec{1, 0, 0}},
			geom.IVec{8, 4, 1}, geom.IVec{6, 4, 1}, geom.IVec{4, 0, 0},
		},
	}

	for i, test := range table {
		config := testConfig(t, test.cutoff)
		config.Procs = test.procs
		d, err := ComputeDimensions(test.box, &config)
		require.NoError(t, err)
		if d.Global != test.global || d.Local != test.local ||
			d.Offset != test.offset {
			t.Errorf("%d) Expected global %v, local %v, offset %v. "+
				"Got %v, %v, %v.", i, test.global, test.local, test.offset,
				d.Global, d.Local, d.Offset)
		}
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 1/float64(d.Global[k]), d.Scale[k], eps)
		}
	}
}

func TestComputeDimensionsNPT(t *testing.T) {
	config := testConfig(t, 2.5)
	config.Ensemble, config.Tolerance = NPTIso, 0.05
	d, err := ComputeDimensions(cube(t, 10), &config)
	require.NoError(t, err)

	assert.Equal(t, geom.IVec{3, 3, 3}, d.Global)
	assert.Equal(t, geom.IVec{4, 4, 4}, d.Next)
	scale := 0.25 / 0.95
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 4*scale, d.LimitGrowth[k], eps)
		assert.InDelta(t, 3*scale*0.95, d.LimitShrink[k], eps)
	}
	assert.InDelta(t, 0.25, d.MinScale[0], eps)

	// Axial limits are per axis.
	box, err := geom.NewBox([3]geom.Vec{{10, 0, 0}, {0, 20, 0}, {0, 0, 10}}, 3)
	require.NoError(t, err)
	config.Ensemble = NPTAxial
	d, err = ComputeDimensions(box, &config)
	require.NoError(t, err)
	assert.Equal(t, geom.IVec{3, 7, 3}, d.Global)
	assert.Equal(t, geom.IVec{4, 8, 4}, d.Next)
	assert.InDelta(t, 0.125/0.95*8, d.LimitGrowth[1], eps)
	assert.InDelta(t, 0.125*7, d.LimitShrink[1], eps)
	assert.InDelta(t, 0.25*3, d.LimitShrink[0], eps)

	// Iso takes the strictest limit over all axes.
	config.Ensemble = NPTIso
	d, err = ComputeDimensions(box, &config)
	require.NoError(t, err)
	g := math.Min(0.25/0.95*4, 0.125/0.95*8)
	s := math.Max(0.25*3, 0.125*7)
	for k := 0; k < 3; k++ {
		assert.InDelta(t, g, d.LimitGrowth[k], eps)
		assert.InDelta(t, s, d.LimitShrink[k], eps)
	}

	// The next grid always has more cells, by a whole process layer.
	config.Procs = &ProcessGrid{Dims: geom.IVec{2, 2, 2}}
	config.Cutoff = 3.2
	d, err = ComputeDimensions(cube(t, 10), &config)
	require.NoError(t, err)
	assert.Equal(t, geom.IVec{2, 2, 2}, d.Global)
	assert.Equal(t, geom.IVec{4, 4, 4}, d.Next)
}

func TestComputeDimensionsErrors(t *testing.T) {
	config := testConfig(t, 6)
	_, err := ComputeDimensions(cube(t, 10), &config)
	assert.ErrorIs(t, err, ErrTooFewCells)

	config = testConfig(t, 4)
	config.Procs = &ProcessGrid{Dims: geom.IVec{3, 1, 1}}
	_, err = ComputeDimensions(cube(t, 10), &config)
	assert.ErrorIs(t, err, ErrTooFewCellsPerProcess)

	config = testConfig(t, 0)
	_, err = ComputeDimensions(cube(t, 10), &config)
	assert.ErrorIs(t, err, geom.ErrCutoff)

	bad := []func(c *Config){
		func(c *Config) { c.Procs = &ProcessGrid{geom.IVec{2, 1, 1}, geom.IVec{2, 0, 0}} },
		func(c *Config) { c.Procs = &ProcessGrid{geom.IVec{0, 1, 1}, geom.IVec{}} },
		func(c *Config) { c.Ensemble = NPTIso },
		func(c *Config) { c.Ensemble, c.Tolerance = NPTAxial, 1 },
		func(c *Config) { c.Increment = 0 },
		func(c *Config) { c.Layout = nil },
	}
	for i, f := range bad {
		config := testConfig(t, 1)
		f(&config)
		if _, err := ComputeDimensions(cube(t, 10), &config); err == nil {
			t.Errorf("%d) Expected an error.", i)
		}
	}
}

func TestComputeDimensionsTooManyCells(t *testing.T) {
	for _, cutoff := range []float64{1e-6, 1e-300} {
		config := testConfig(t, cutoff)
		_, err := ComputeDimensions(cube(t, 10), &config)
		var aerr *AllocationError
		require.ErrorAs(t, err, &aerr, "cutoff %g", cutoff)
		assert.True(t, aerr.Requested > MaxCells)

		_, err = NewPartitioner(cube(t, 10), config)
		assert.ErrorAs(t, err, &aerr)
	}

	// 8192^3 cells on one process, 18 x 18 x 8192 on each of 512^2.
	config := testConfig(t, 1.0/1024)
	_, err := ComputeDimensions(cube(t, 8), &config)
	assert.ErrorContains(t, err, "549755813888 cells")

	config.Procs = &ProcessGrid{Dims: geom.IVec{512, 512, 1}}
	d, err := ComputeDimensions(cube(t, 8), &config)
	require.NoError(t, err)
	assert.Equal(t, geom.IVec{18, 18, 8192}, d.Local)
}

func TestParseEnsemble(t *testing.T) {
	for _, e := range []Ensemble{NVE, NPTIso, NPTAxial} {
		got, err := ParseEnsemble(e.String())
		assert.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEnsemble("NVT")
	assert.Error(t, err)
}
