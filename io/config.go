package io

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/cellgrid"
	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/force"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/grid"
)

const ExampleConfigFile = `[Box]

#######################
# Required Parameters #
#######################

# Lattice vectors of the simulation box. In two dimensions C is ignored and
# A and B must lie in the xy plane.
A = 10 0 0
B = 0 10 0
C = 0 0 10

#######################
# Optional Parameters #
#######################

# Dimensions = 3
# Periodic = 1 1 1

[Cells]

#######################
# Required Parameters #
#######################

# Interaction cutoff. No cell is thinner than this along any axis.
Cutoff = 2.5

#######################
# Optional Parameters #
#######################

# Starting capacity of each cell and the amount it grows by when full.
# InitialSize = 16
# Increment = 8

# Extra per-particle channels. Each may be given several times. Channels
# listed as an Accumulator are zeroed before every force evaluation. The EAM
# potential needs Scalar = eam_rho, Scalar = eam_df and
# Accumulator = eam_rho.
# Scalar = eam_rho
# Scalar = eam_df
# Accumulator = eam_rho
# Vector = refpos
# Tensor = stress
# Neighbors = false

[Ensemble]

# One of NVE, NPTIso, or NPTAxial. NPT ensembles only rebuild the cell grid
# once the box has changed by more than Tolerance allows.
# Type = NVE
# Tolerance = 0.05

[Process]

# Size of the process grid and the coordinate of this process within it.
# Leave these unset to run on a single process.
# Grid = 2 2 1
# Coord = 0 1 0

[Run]

#######################
# Required Parameters #
#######################

# Whitespace separated table with the columns
# id species mass x y z px py pz
Particles = path/to/particles.txt
Steps = 100
TimeStep = 0.001

#######################
# Optional Parameters #
#######################

# Potential is LJ, EAM, or Table. Table potentials are read from a two
# column file of separations and pair energies given by PotentialFile.
# Potential = LJ
# PotentialFile = path/to/pair.txt
# Epsilon = 1
# Sigma = 1
# EAMA = 1

# Number of steps between energy log lines.
# LogInterval = 10

# Binary checkpoint written after the last step.
# Checkpoint = final.chk

# Threads = 0
# ProfileFile = prof.out
# LogFile = log.out`

type BoxConfig struct {
	// Required
	A, B, C string

	// Optional
	Dimensions int
	Periodic   string
}

type CellsConfig struct {
	// Required
	Cutoff float64

	// Optional
	InitialSize, Increment              int
	Scalar, Accumulator, Vector, Tensor []string
	Neighbors                           bool
}

type EnsembleConfig struct {
	Type      string
	Tolerance float64
}

type ProcessConfig struct {
	Grid, Coord string
}

type RunConfig struct {
	// Required
	Particles string
	Steps     int
	TimeStep  float64

	// Optional
	Potential, PotentialFile         string
	Epsilon, Sigma, EAMA             float64
	LogInterval, Threads             int
	LogFile, ProfileFile, Checkpoint string
}

// Wrapper is the full contents of a run configuration file.
type Wrapper struct {
	Box      BoxConfig
	Cells    CellsConfig
	Ensemble EnsembleConfig
	Process  ProcessConfig
	Run      RunConfig
}

func DefaultWrapper() *Wrapper {
	w := &Wrapper{}
	w.Box.Dimensions = 3
	w.Box.Periodic = "1 1 1"
	w.Cells.InitialSize = 16
	w.Cells.Increment = 8
	w.Ensemble.Type = grid.NVE.String()
	w.Ensemble.Tolerance = 0.05
	w.Run.Potential = "LJ"
	w.Run.Epsilon, w.Run.Sigma, w.Run.EAMA = 1, 1, 1
	w.Run.LogInterval = 10
	return w
}

// ReadConfig reads a configuration file, applies environment overrides, and
// checks the result.
func ReadConfig(fname string) (*Wrapper, error) {
	w := DefaultWrapper()
	if err := gcfg.ReadFileInto(w, fname); err != nil {
		return nil, err
	}
	if err := ApplyEnv(w); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate returns an error describing the first invalid value in w.
func (w *Wrapper) Validate() error {
	switch {
	case !w.Box.ValidDimensions():
		return fmt.Errorf("Dimensions must be 2 or 3, not %d.", w.Box.Dimensions)
	case !w.Cells.ValidCutoff():
		return fmt.Errorf("Need to specify a positive Cutoff.")
	case !w.Cells.ValidInitialSize():
		return fmt.Errorf("InitialSize must be non-negative.")
	case !w.Cells.ValidIncrement():
		return fmt.Errorf("Increment must be positive.")
	case !w.Ensemble.ValidType():
		return fmt.Errorf("Unrecognized ensemble Type '%s'.", w.Ensemble.Type)
	case !w.Run.ValidParticles():
		return fmt.Errorf("Invalid/non-existent 'Particles' value.")
	case !w.Run.ValidSteps():
		return fmt.Errorf("Steps must be non-negative.")
	case !w.Run.ValidTimeStep():
		return fmt.Errorf("Need to specify a positive TimeStep.")
	case !w.Run.ValidPotential():
		return fmt.Errorf(
			"Potential must be 'LJ', 'EAM', or 'Table' with a "+
				"PotentialFile, not '%s'.", w.Run.Potential,
		)
	case !w.Run.ValidLogInterval():
		return fmt.Errorf("LogInterval must be positive.")
	case !w.Run.ValidThreads():
		return fmt.Errorf("Threads must be non-negative.")
	}

	if _, err := w.Box.Lattice(); err != nil {
		return err
	}
	if _, err := w.Box.PeriodicFlags(); err != nil {
		return err
	}
	if _, err := w.Process.ProcessGrid(); err != nil {
		return err
	}
	return nil
}

func (con *BoxConfig) ValidDimensions() bool {
	return con.Dimensions == 2 || con.Dimensions == 3
}

func (con *CellsConfig) ValidCutoff() bool { return con.Cutoff > 0 }
func (con *CellsConfig) ValidInitialSize() bool { return con.InitialSize >= 0 }
func (con *CellsConfig) ValidIncrement() bool { return con.Increment > 0 }

func (con *EnsembleConfig) ValidType() bool {
	_, err := grid.ParseEnsemble(con.Type)
	return err == nil
}

func (con *RunConfig) ValidParticles() bool { return con.Particles != "" }
func (con *RunConfig) ValidSteps() bool { return con.Steps >= 0 }
func (con *RunConfig) ValidTimeStep() bool { return con.TimeStep > 0 }
func (con *RunConfig) ValidLogInterval() bool { return con.LogInterval > 0 }
func (con *RunConfig) ValidThreads() bool { return con.Threads >= 0 }
func (con *RunConfig) ValidLogFile() bool { return con.LogFile != "" }
func (con *RunConfig) ValidProfileFile() bool { return con.ProfileFile != "" }

func (con *RunConfig) ValidPotential() bool {
	switch con.Potential {
	case "LJ", "EAM":
		return true
	case "Table":
		return con.PotentialFile != ""
	}
	return false
}

// Lattice parses the three lattice vectors.
func (con *BoxConfig) Lattice() ([3]geom.Vec, error) {
	var lattice [3]geom.Vec
	for k, s := range []string{con.A, con.B, con.C} {
		if k == 2 && con.Dimensions == 2 {
			break
		}
		xs, err := parseFloats(s)
		if err != nil || len(xs) != 3 {
			return lattice, fmt.Errorf(
				"Lattice vector %c = '%s' must be three numbers.", 'A'+k, s,
			)
		}
		copy(lattice[k][:], xs)
	}
	return lattice, nil
}

// PeriodicFlags parses the per-axis periodicity.
func (con *BoxConfig) PeriodicFlags() ([3]bool, error) {
	var flags [3]bool
	xs, err := parseInts(con.Periodic)
	if err != nil || (len(xs) != con.Dimensions && len(xs) != 3) {
		return flags, fmt.Errorf(
			"Periodic = '%s' must have one 0 or 1 per dimension.", con.Periodic,
		)
	}
	for k, x := range xs {
		if x != 0 && x != 1 {
			return flags, fmt.Errorf("Periodic flags must be 0 or 1, got %d.", x)
		}
		flags[k] = x == 1
	}
	return flags, nil
}

// ProcessGrid parses the process grid. It returns nil if no grid was given.
func (con *ProcessConfig) ProcessGrid() (*grid.ProcessGrid, error) {
	if strings.TrimSpace(con.Grid) == "" {
		if strings.TrimSpace(con.Coord) != "" {
			return nil, fmt.Errorf("Process Coord is set without a Grid.")
		}
		return nil, nil
	}

	dims, err := parseInts(con.Grid)
	if err != nil || len(dims) != 3 {
		return nil, fmt.Errorf("Process Grid = '%s' must be three integers.", con.Grid)
	}
	coord := []int{0, 0, 0}
	if strings.TrimSpace(con.Coord) != "" {
		coord, err = parseInts(con.Coord)
		if err != nil || len(coord) != 3 {
			return nil, fmt.Errorf(
				"Process Coord = '%s' must be three integers.", con.Coord,
			)
		}
	}

	pg := &grid.ProcessGrid{}
	copy(pg.Dims[:], dims)
	copy(pg.Coord[:], coord)
	return pg, nil
}

// LayoutConfig returns the cell channels requested by con.
func (con *CellsConfig) LayoutConfig() cell.LayoutConfig {
	return cell.LayoutConfig{
		Scalars:      con.Scalar,
		Vectors:      con.Vector,
		Tensors:      con.Tensor,
		Accumulators: con.Accumulator,
		Neighbors:    con.Neighbors,
	}
}

// GridConfig assembles a grid.Config. w must already be valid.
func (w *Wrapper) GridConfig() (grid.Config, error) {
	layout, err := cell.NewLayout(w.Cells.LayoutConfig())
	if err != nil {
		return grid.Config{}, err
	}
	periodic, err := w.Box.PeriodicFlags()
	if err != nil {
		return grid.Config{}, err
	}
	procs, err := w.Process.ProcessGrid()
	if err != nil {
		return grid.Config{}, err
	}
	ensemble, err := grid.ParseEnsemble(w.Ensemble.Type)
	if err != nil {
		return grid.Config{}, err
	}

	return grid.Config{
		Cutoff:      w.Cells.Cutoff,
		Periodic:    periodic,
		Procs:       procs,
		Ensemble:    ensemble,
		Tolerance:   w.Ensemble.Tolerance,
		Layout:      layout,
		InitialSize: w.Cells.InitialSize,
		Increment:   w.Cells.Increment,
	}, nil
}

// DomainConfig assembles the configuration of a cellgrid.Domain.
func (w *Wrapper) DomainConfig() (cellgrid.Config, error) {
	lattice, err := w.Box.Lattice()
	if err != nil {
		return cellgrid.Config{}, err
	}
	gc, err := w.GridConfig()
	if err != nil {
		return cellgrid.Config{}, err
	}
	return cellgrid.Config{Lattice: lattice, Dim: w.Box.Dimensions, Grid: gc}, nil
}

// Passes returns the force passes for the configured potential.
func (w *Wrapper) Passes(layout *cell.Layout) ([]force.Pass, error) {
	switch w.Run.Potential {
	case "LJ":
		lj, err := force.NewLennardJones(w.Run.Epsilon, w.Run.Sigma, w.Cells.Cutoff)
		if err != nil {
			return nil, err
		}
		return lj.Passes(), nil
	case "EAM":
		eam, err := force.NewEAM(layout, w.Run.EAMA, w.Cells.Cutoff)
		if err != nil {
			return nil, err
		}
		return eam.Passes(), nil
	case "Table":
		rs, us, err := ReadPotentialTable(w.Run.PotentialFile)
		if err != nil {
			return nil, err
		}
		tab, err := force.NewTabulated(rs, us, w.Cells.Cutoff)
		if err != nil {
			return nil, err
		}
		return tab.Passes(), nil
	}
	return nil, fmt.Errorf("Unrecognized Potential '%s'.", w.Run.Potential)
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	xs := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return xs, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	xs := make([]int, len(fields))
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return xs, nil
}
