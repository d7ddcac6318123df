package io

import (
	"fmt"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/cellgrid/cell"
)

// ParticleColumns is the number of columns in a particle table: id, species,
// mass, the three position components, and the three momentum components.
const ParticleColumns = 9

// ReadParticles reads a whitespace separated particle table.
func ReadParticles(file string) ([]cell.Particle, error) {
	colIdxs := make([]int, ParticleColumns)
	for i := range colIdxs {
		colIdxs[i] = i
	}
	cols, err := table.ReadTable(file, colIdxs, nil)
	if err != nil {
		return nil, err
	}

	ids, species, masses := cols[0], cols[1], cols[2]
	ps := make([]cell.Particle, len(ids))
	for i := range ps {
		if species[i] < 0 || masses[i] <= 0 {
			return nil, fmt.Errorf(
				"Row %d of %s has species %g and mass %g.",
				i, file, species[i], masses[i],
			)
		}
		ps[i].ID = int64(ids[i])
		ps[i].Species = int(species[i])
		ps[i].Mass = masses[i]
		for k := 0; k < 3; k++ {
			ps[i].Pos[k] = cols[3+k][i]
			ps[i].Mom[k] = cols[6+k][i]
		}
	}
	return ps, nil
}

// ReadPotentialTable reads a two column table of separations and pair
// energies.
func ReadPotentialTable(file string) (rs, us []float64, err error) {
	cols, err := table.ReadTable(file, []int{0, 1}, nil)
	if err != nil {
		return nil, nil, err
	}
	return cols[0], cols[1], nil
}
