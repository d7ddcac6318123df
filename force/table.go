package force

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/phil-mansfield/cellgrid/interpolate"
)

// Tabulated is a pair potential U(r) interpolated from a table with a cubic
// spline. Separations below the first table entry are extrapolated.
type Tabulated struct {
	Cutoff float64
	sp     *interpolate.Spline
}

// NewTabulated returns a Tabulated kernel for the table (rs, us). The table
// must extend out to cutoff.
func NewTabulated(rs, us []float64, cutoff float64) (*Tabulated, error) {
	sp, err := interpolate.NewSpline(rs, us)
	if err != nil {
		return nil, err
	}
	if _, hi := sp.Range(); !(cutoff > 0) || cutoff > hi {
		return nil, fmt.Errorf(
			"force: Cutoff %g must be positive and within the table, "+
				"which ends at %g", cutoff, hi,
		)
	}
	return &Tabulated{Cutoff: cutoff, sp: sp}, nil
}

func (tab *Tabulated) Pair(p, q *cell.Cell, shift geom.Vec) Energy {
	return pairLoop(p, q, shift, tab.Cutoff*tab.Cutoff,
		func(_, _ int, r2 float64) (float64, float64) {
			r := math.Sqrt(r2)
			u, du := tab.sp.Eval(r)
			return u, -du / r
		})
}

// Passes returns the passes which evaluate tab.
func (tab *Tabulated) Passes() []Pass {
	return []Pass{{Name: "table", Pair: tab}}
}
