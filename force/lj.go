package force

import (
	"fmt"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
)

// pairLoop calls fn on every pair of particles from p and q which lie within
// sqrt(rc2) of each other. d points from p's particle to q's and fn returns
// the pair energy and f = -(dU/dr)/r. The forces are applied to both
// particles and the energy split between them.
func pairLoop(
	p, q *cell.Cell, shift geom.Vec, rc2 float64,
	fn func(i, j int, r2 float64) (pot, f float64),
) Energy {
	var e Energy
	self := p == q
	for i := 0; i < p.N; i++ {
		xi := p.Pos[i].Sub(shift)
		j0 := 0
		if self {
			j0 = i + 1
		}
		for j := j0; j < q.N; j++ {
			d := q.Pos[j].Sub(xi)
			r2 := d.Norm2()
			if r2 >= rc2 || r2 == 0 {
				continue
			}
			pot, f := fn(i, j, r2)

			fd := d.Scale(f)
			p.Force[i].SubSelf(fd)
			q.Force[j].AddSelf(fd)
			p.Epot[i] += pot / 2
			q.Epot[j] += pot / 2

			e.Pot += pot
			e.Virial += f * r2
			e.Vir[0] += fd[0] * d[0]
			e.Vir[1] += fd[1] * d[1]
			e.Vir[2] += fd[2] * d[2]
		}
	}
	return e
}

// LennardJones is a truncated 12-6 pair potential shared by all species.
type LennardJones struct {
	Epsilon, Sigma, Cutoff float64
}

// NewLennardJones returns a LennardJones kernel after checking its
// parameters.
func NewLennardJones(epsilon, sigma, cutoff float64) (*LennardJones, error) {
	if !(sigma > 0) || !(cutoff > 0) {
		return nil, fmt.Errorf(
			"force: Lennard-Jones needs positive Sigma and Cutoff, got %g and %g",
			sigma, cutoff,
		)
	}
	return &LennardJones{epsilon, sigma, cutoff}, nil
}

func (lj *LennardJones) Pair(p, q *cell.Cell, shift geom.Vec) Energy {
	s2 := lj.Sigma * lj.Sigma
	return pairLoop(p, q, shift, lj.Cutoff*lj.Cutoff,
		func(_, _ int, r2 float64) (float64, float64) {
			sr2 := s2 / r2
			sr6 := sr2 * sr2 * sr2
			sr12 := sr6 * sr6
			return 4 * lj.Epsilon * (sr12 - sr6),
				24 * lj.Epsilon * (2*sr12 - sr6) / r2
		})
}

// Passes returns the passes which evaluate lj.
func (lj *LennardJones) Passes() []Pass {
	return []Pass{{Name: "lj", Pair: lj}}
}
