/*package grid sizes the cell grid for a box and keeps every particle in the
cell that contains it.

The number of cells along each axis is the largest integer that keeps the
perpendicular height of a cell at or above the interaction cutoff, so a
particle only interacts with particles in its own and the 26 surrounding
cells. With a process grid, every process owns an equal block of the global
grid and surrounds it with one layer of ghost cells.

Under a fluctuating volume the grid is computed with a safety margin and
only rebuilt once the box has moved far enough to make the margin run out,
or far enough that a finer grid would fit.
*/
package grid

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
)

var (
	// ErrTooFewCells is returned when an active axis would have fewer than
	// two cells.
	ErrTooFewCells = errors.New("grid: fewer than two cells along an axis")
	// ErrTooFewCellsPerProcess is returned when an axis has fewer cells than
	// processes.
	ErrTooFewCellsPerProcess = errors.New(
		"grid: fewer cells than processes along an axis",
	)
)

// MaxCells is the largest number of cells, ghosts included, a single grid
// may hold.
const MaxCells = 1 << 27

// AllocationError is returned when a box and cutoff would need a grid with
// more than MaxCells cells. Requested is a float64 since the count may not
// fit in an int.
type AllocationError struct {
	Requested float64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf(
		"grid: cannot allocate %.0f cells (limit is %d)", e.Requested, MaxCells,
	)
}

// Ensemble is the thermodynamic ensemble being simulated. It determines
// when the grid is rebuilt.
type Ensemble int

const (
	// NVE (and any other fixed-volume ensemble) rebuilds whenever the grid
	// dimensions change.
	NVE Ensemble = iota
	// NPTIso scales all axes together.
	NPTIso
	// NPTAxial scales each axis independently.
	NPTAxial
)

func (e Ensemble) String() string {
	switch e {
	case NVE:
		return "NVE"
	case NPTIso:
		return "NPTIso"
	case NPTAxial:
		return "NPTAxial"
	}
	return fmt.Sprintf("Ensemble(%d)", int(e))
}

// ParseEnsemble converts an ensemble name to an Ensemble.
func ParseEnsemble(s string) (Ensemble, error) {
	for _, e := range []Ensemble{NVE, NPTIso, NPTAxial} {
		if e.String() == s {
			return e, nil
		}
	}
	return NVE, fmt.Errorf("grid: unrecognized ensemble '%s'", s)
}

// ProcessGrid describes this process's position in a Cartesian grid of
// processes.
type ProcessGrid struct {
	Dims, Coord geom.IVec
}

// Config holds everything besides the box needed to lay out the grid.
type Config struct {
	Cutoff   float64
	Periodic [3]bool
	// Procs is nil unless the box is split across several processes.
	Procs     *ProcessGrid
	Ensemble  Ensemble
	Tolerance float64

	Layout                 *cell.Layout
	InitialSize, Increment int

	// Debug bounds-checks grid access and verifies every set of pair lists.
	Debug  bool
	Logger *log.Logger
}

func (c *Config) validate(dim int) error {
	if c.Layout == nil {
		return fmt.Errorf("grid: no cell layout given")
	}
	if c.InitialSize < 0 {
		return fmt.Errorf("grid: InitialSize = %d is negative", c.InitialSize)
	}
	if c.Increment <= 0 {
		return fmt.Errorf("grid: Increment = %d must be positive", c.Increment)
	}
	if c.Ensemble != NVE && !(c.Tolerance > 0 && c.Tolerance < 1) {
		return fmt.Errorf(
			"grid: %s needs a Tolerance in (0, 1), got %g",
			c.Ensemble, c.Tolerance,
		)
	}
	if c.Procs != nil {
		for k := 0; k < 3; k++ {
			p, x := c.Procs.Dims[k], c.Procs.Coord[k]
			if p < 1 || (k >= dim && p != 1) {
				return fmt.Errorf("grid: invalid process grid %v", c.Procs.Dims)
			}
			if x < 0 || x >= p {
				return fmt.Errorf(
					"grid: process coordinate %v is outside grid %v",
					c.Procs.Coord, c.Procs.Dims,
				)
			}
		}
	}
	return nil
}

func (c *Config) procs() geom.IVec {
	if c.Procs == nil {
		return geom.IVec{1, 1, 1}
	}
	return c.Procs.Dims
}

// Dimensions is a complete grid layout for one box.
type Dimensions struct {
	// Global is the number of cells along each axis of the box. Local is the
	// size of this process's grid, ghosts included, and Offset the global
	// coordinate of its first owned cell.
	Global, Local, Offset geom.IVec
	// Lo and Hi bound the owned local coordinates.
	Lo, Hi geom.IVec

	// MinScale is the fraction of each axis that a cell must span. Scale is
	// the fraction that the cells actually span.
	MinScale, Scale geom.Vec

	// Next is the grid that a growing box would switch to. LimitGrowth and
	// LimitShrink are the factors by which box heights may grow or shrink,
	// relative to the heights when the grid was built, before the grid must
	// be rebuilt. They are only set for fluctuating-volume ensembles.
	Next                     geom.IVec
	LimitGrowth, LimitShrink geom.Vec
}

// ComputeDimensions lays out a grid for the given box.
func ComputeDimensions(box *geom.Box, config *Config) (*Dimensions, error) {
	if err := config.validate(box.Dim); err != nil {
		return nil, err
	}
	raw, err := box.MinimalCellScale(config.Cutoff)
	if err != nil {
		return nil, err
	}

	d := &Dimensions{
		MinScale:    raw,
		Global:      geom.IVec{1, 1, 1},
		Next:        geom.IVec{1, 1, 1},
		LimitGrowth: geom.Vec{math.Inf(1), math.Inf(1), math.Inf(1)},
	}
	npt := config.Ensemble != NVE
	tol := config.Tolerance
	procs := config.procs()

	scale := raw
	for k := 0; k < box.Dim; k++ {
		if npt {
			scale[k] /= 1 - tol
		}
	}
	if n := localVolume(box.Dim, scale, config); n > MaxCells {
		return nil, &AllocationError{n}
	}
	for k := 0; k < box.Dim; k++ {
		if npt {
			d.Next[k] = int((1 + tol) / raw[k])
		}
		d.Global[k] = int(1 / scale[k])
	}

	for k := 0; k < box.Dim; k++ {
		if d.Global[k] < procs[k] {
			return nil, fmt.Errorf(
				"%w: %d cells and %d processes along axis %d",
				ErrTooFewCellsPerProcess, d.Global[k], procs[k], k,
			)
		}
		d.Global[k] -= d.Global[k] % procs[k]
		if npt {
			d.Next[k] -= d.Next[k] % procs[k]
		}

		if d.Global[k] < 2 {
			return nil, fmt.Errorf(
				"%w: %d cells along axis %d (cell scale %.4g)",
				ErrTooFewCells, d.Global[k], k, scale[k],
			)
		}
	}

	if npt {
		for k := 0; k < box.Dim; k++ {
			if d.Next[k] == d.Global[k] {
				d.Next[k] = d.Global[k] + procs[k]
			}
		}
		d.setLimits(box.Dim, config.Ensemble, scale, tol)
	}

	for k := 0; k < 3; k++ {
		d.Scale[k] = 1 / float64(d.Global[k])
		d.Local[k] = d.Global[k] / procs[k]
		d.Offset[k] = config.coord(k) * d.Local[k]
		d.Hi[k] = d.Local[k]
		if config.Procs != nil && k < box.Dim {
			d.Local[k] += 2
			d.Lo[k], d.Hi[k] = 1, d.Local[k]-1
		}
	}

	return d, nil
}

// localVolume estimates the number of cells in the local grid before any
// cell counts are converted to ints.
func localVolume(dim int, scale geom.Vec, config *Config) float64 {
	procs := config.procs()
	n := 1.0
	for k := 0; k < dim; k++ {
		local := math.Floor(1/scale[k]) / float64(procs[k])
		if config.Procs != nil {
			local += 2
		}
		n *= local
	}
	return n
}

func (c *Config) coord(k int) int {
	if c.Procs == nil {
		return 0
	}
	return c.Procs.Coord[k]
}

func (d *Dimensions) setLimits(dim int, e Ensemble, scale geom.Vec, tol float64) {
	if e == NPTIso {
		growth, shrink := math.Inf(1), 0.0
		for k := 0; k < dim; k++ {
			growth = math.Min(growth, scale[k]*float64(d.Next[k]))
			shrink = math.Max(shrink, scale[k]*float64(d.Global[k]))
		}
		shrink *= 1 - tol
		for k := 0; k < dim; k++ {
			d.LimitGrowth[k], d.LimitShrink[k] = growth, shrink
		}
		return
	}

	for k := 0; k < dim; k++ {
		d.LimitGrowth[k] = scale[k] * float64(d.Next[k])
		d.LimitShrink[k] = scale[k] * float64(d.Global[k]) * (1 - tol)
	}
}
