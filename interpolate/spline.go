package interpolate

import (
	"fmt"
)

// Spline represents a 1D natural cubic spline which can be used to
// interpolate between points.
type Spline struct {
	xs, ys, y2s []float64

	// Usually the input data is uniform. This is our estimate of the point
	// spacing.
	dx float64
}

// NewSpline creates a spline based off a table of x and y values. The values
// must be strictly increasing in x.
//
// xs and ys must not be modified throughout the lifetime of the Spline.
func NewSpline(xs, ys []float64) (*Spline, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf(
			"Table given to NewSpline() has len(xs) = %d but len(ys) = %d.",
			len(xs), len(ys),
		)
	} else if len(xs) <= 2 {
		return nil, fmt.Errorf(
			"Table given to NewSpline() has length of %d.", len(xs),
		)
	}
	for i := 0; i < len(xs)-1; i++ {
		if !(xs[i+1] > xs[i]) {
			return nil, fmt.Errorf(
				"Table given to NewSpline() not sorted at index %d.", i,
			)
		}
	}

	sp := &Spline{xs: xs, ys: ys, y2s: make([]float64, len(xs))}
	sp.dx = (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)
	if err := sp.secondDerivative(); err != nil {
		return nil, err
	}
	return sp, nil
}

// Range returns the smallest and largest x values in the table.
func (sp *Spline) Range() (lo, hi float64) { return sp.xs[0], sp.xs[len(sp.xs)-1] }

// Interpolate interpolates the table of x and y values given in NewSpline to
// the point x.
func (sp *Spline) Interpolate(x float64) float64 {
	y, _ := sp.Eval(x)
	return y
}

// Eval returns the value of the spline and its first derivative at x. Points
// outside the table are extrapolated from the nearest segment.
func (sp *Spline) Eval(x float64) (y, dy float64) {
	lo := sp.bsearch(x)
	hi := lo + 1

	h := sp.xs[hi] - sp.xs[lo]
	A := (sp.xs[hi] - x) / h
	B := 1 - A
	C := (A*A*A - A) * h * h / 6
	D := (B*B*B - B) * h * h / 6
	y = A*sp.ys[lo] + B*sp.ys[hi] + C*sp.y2s[lo] + D*sp.y2s[hi]
	dy = (sp.ys[hi]-sp.ys[lo])/h -
		(3*A*A-1)*h*sp.y2s[lo]/6 + (3*B*B-1)*h*sp.y2s[hi]/6
	return y, dy
}

// bsearch returns the index of the segment containing x, clamped to the
// first and last segments.
func (sp *Spline) bsearch(x float64) int {
	n := len(sp.xs)
	if x <= sp.xs[0] {
		return 0
	} else if x >= sp.xs[n-1] {
		return n - 2
	}

	// Guess under the assumption of uniform spacing.
	guess := int((x - sp.xs[0]) / sp.dx)
	if guess >= 0 && guess < n-1 && sp.xs[guess] <= x && sp.xs[guess+1] >= x {
		return guess
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x >= sp.xs[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// secondDerivative computes the second derivative at every point in the table
// given in NewSpline. The boundaries are set to zero.
func (sp *Spline) secondDerivative() error {
	n := len(sp.xs)
	as, bs := make([]float64, n-2), make([]float64, n-2)
	cs, rs := make([]float64, n-2), make([]float64, n-2)

	xs, ys := sp.xs, sp.ys
	for i := range rs {
		// j indexes into xs and ys.
		j := i + 1

		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = ((ys[j+1] - ys[j]) / (xs[j+1] - xs[j])) -
			((ys[j] - ys[j-1]) / (xs[j] - xs[j-1]))
	}

	return TriDiagAt(as, bs, cs, rs, sp.y2s[1:n-1])
}

// TriDiagAt solves the system of equations
//
//	| b0 c0 ..    |   | out0 |   | r0 |
//	| a1 b1 c1 .. |   | out1 |   | r1 |
//	| ..          | * | ..   | = | .. |
//	| ..    an bn |   | outn |   | rn |
//
// for out0 .. outn in place in the given slice.
func TriDiagAt(as, bs, cs, rs, out []float64) error {
	if len(as) != len(bs) || len(as) != len(cs) ||
		len(as) != len(out) || len(as) != len(rs) {
		return fmt.Errorf("Length of arguments to TriDiagAt are unequal.")
	}
	if len(out) == 0 {
		return nil
	}

	tmp := make([]float64, len(as))

	beta := bs[0]
	if beta == 0 {
		return fmt.Errorf("TriDiagAt cannot solve given system.")
	}
	out[0] = rs[0] / beta

	for i := 1; i < len(out); i++ {
		tmp[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*tmp[i]
		if beta == 0 {
			return fmt.Errorf("TriDiagAt cannot solve given system.")
		}
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}

	for i := len(out) - 2; i >= 0; i-- {
		out[i] -= tmp[i+1] * out[i+1]
	}
	return nil
}
