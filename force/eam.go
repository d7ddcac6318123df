package force

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
)

// Channel names used by EAM. RhoChannel must be declared as an accumulator.
const (
	RhoChannel = "eam_rho"
	DFChannel  = "eam_df"
)

// EAM is a Finnis-Sinclair style embedded atom potential with embedding
// energy F(rho) = -A sqrt(rho) and density contribution
// phi(r) = (Cutoff - r)^2. It needs three passes: densities are summed over
// pairs, embedding energies are computed per particle, and forces are
// summed over pairs again.
type EAM struct {
	A, Cutoff float64

	rho, df int
}

// NewEAM returns an EAM kernel which stores its intermediate values in the
// RhoChannel and DFChannel scalar channels of layout.
func NewEAM(layout *cell.Layout, a, cutoff float64) (*EAM, error) {
	if !(cutoff > 0) {
		return nil, fmt.Errorf("force: EAM needs a positive Cutoff, got %g", cutoff)
	}

	rho, ok := layout.Scalar(RhoChannel)
	if !ok {
		return nil, fmt.Errorf("force: EAM needs a '%s' scalar channel", RhoChannel)
	}
	if !layout.ScalarAccum[rho] {
		return nil, fmt.Errorf(
			"force: '%s' must be an accumulator channel", RhoChannel,
		)
	}
	df, ok := layout.Scalar(DFChannel)
	if !ok {
		return nil, fmt.Errorf("force: EAM needs a '%s' scalar channel", DFChannel)
	}

	return &EAM{A: a, Cutoff: cutoff, rho: rho, df: df}, nil
}

// Passes returns the three passes which evaluate e.
func (e *EAM) Passes() []Pass {
	return []Pass{
		{Name: "eam_density", Pair: eamDensity{e}},
		{Name: "eam_embed", Cell: eamEmbed{e}},
		{Name: "eam_force", Pair: eamForce{e}},
	}
}

type eamDensity struct{ *EAM }
type eamEmbed struct{ *EAM }
type eamForce struct{ *EAM }

func (e eamDensity) Pair(p, q *cell.Cell, shift geom.Vec) Energy {
	rc := e.Cutoff
	prho, qrho := p.Scalars[e.rho], q.Scalars[e.rho]
	self := p == q
	for i := 0; i < p.N; i++ {
		xi := p.Pos[i].Sub(shift)
		j0 := 0
		if self {
			j0 = i + 1
		}
		for j := j0; j < q.N; j++ {
			r2 := q.Pos[j].Sub(xi).Norm2()
			if r2 >= rc*rc || r2 == 0 {
				continue
			}
			dr := rc - math.Sqrt(r2)
			prho[i] += dr * dr
			qrho[j] += dr * dr
		}
	}
	return Energy{}
}

func (e eamEmbed) Cell(p *cell.Cell) Energy {
	var en Energy
	rho, df := p.Scalars[e.rho], p.Scalars[e.df]
	for i := 0; i < p.N; i++ {
		if rho[i] <= 0 {
			df[i] = 0
			continue
		}
		sq := math.Sqrt(rho[i])
		f := -e.A * sq
		df[i] = -e.A / (2 * sq)
		p.Epot[i] += f
		en.Pot += f
	}
	return en
}

func (e eamForce) Pair(p, q *cell.Cell, shift geom.Vec) Energy {
	rc := e.Cutoff
	pdf, qdf := p.Scalars[e.df], q.Scalars[e.df]
	return pairLoop(p, q, shift, rc*rc,
		func(i, j int, r2 float64) (float64, float64) {
			r := math.Sqrt(r2)
			// dU/dr = (F'(rho_i) + F'(rho_j)) phi'(r)
			dudr := (pdf[i] + qdf[j]) * -2 * (rc - r)
			return 0, -dudr / r
		})
}
