/*package mat contains small dense matrix routines. The only consumer at the
moment is the box geometry code, which needs determinants and inverses of the
lattice matrix, but nothing here is specific to three dimensions.
*/
package mat

import (
	"errors"
	"math"
)

// ErrSingular is returned when a factorization encounters a zero pivot.
var ErrSingular = errors.New("mat: matrix is singular")

// Matrix is a row-major dense matrix.
type Matrix struct {
	Vals          []float64
	Width, Height int
}

// LUFactors holds the LU decomposition of a square matrix along with the row
// permutation used to compute it.
type LUFactors struct {
	lu    Matrix
	pivot []int
	d     float64
}

func NewMatrix(vals []float64, width, height int) *Matrix {
	if width <= 0 {
		panic("width must be positive.")
	} else if height <= 0 {
		panic("height must be positive.")
	} else if width*height != len(vals) {
		panic("height * width must equal len(vals).")
	}

	return &Matrix{Vals: vals, Width: width, Height: height}
}

// At returns the element in row i and column j.
func (m *Matrix) At(i, j int) float64 { return m.Vals[i*m.Width+j] }

// Set sets the element in row i and column j.
func (m *Matrix) Set(i, j int, x float64) { m.Vals[i*m.Width+j] = x }

// Transpose returns a newly allocated transpose of m.
func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(make([]float64, len(m.Vals)), m.Height, m.Width)
	for i := 0; i < m.Height; i++ {
		for j := 0; j < m.Width; j++ {
			t.Vals[j*t.Width+i] = m.Vals[i*m.Width+j]
		}
	}
	return t
}

// VecMult computes out = m * xs. xs and out may not alias.
func (m *Matrix) VecMult(xs, out []float64) {
	if len(xs) != m.Width {
		panic("len(xs) != m.Width")
	} else if len(out) != m.Height {
		panic("len(out) != m.Height")
	}

	for i := 0; i < m.Height; i++ {
		sum := 0.0
		row := m.Vals[i*m.Width : (i+1)*m.Width]
		for j, x := range xs {
			sum += row[j] * x
		}
		out[i] = sum
	}
}

func NewLUFactors(n int) *LUFactors {
	luf := new(LUFactors)

	luf.lu.Vals, luf.lu.Width, luf.lu.Height = make([]float64, n*n), n, n
	luf.pivot = make([]int, n)
	luf.d = 1

	return luf
}

// LU computes the LU decomposition of m.
func (m *Matrix) LU() (*LUFactors, error) {
	if m.Width != m.Height {
		panic("m is non-square.")
	}

	lu := NewLUFactors(m.Width)
	if err := m.LUFactorsAt(lu); err != nil {
		return nil, err
	}
	return lu, nil
}

// LUFactorsAt computes the LU decomposition of m into luf using Crout's
// method with implicit row scaling.
func (m *Matrix) LUFactorsAt(luf *LUFactors) error {
	if luf.lu.Width != m.Width || luf.lu.Height != m.Height {
		panic("luf has different dimenstions than m.")
	}

	n := m.Width
	scale := make([]float64, n)
	lu := luf.lu.Vals
	luf.d = 1
	copy(lu, m.Vals)

	for i := 0; i < n; i++ {
		max := 0.0
		for j := 0; j < n; j++ {
			tmp := math.Abs(lu[i*n+j])
			if tmp > max {
				max = tmp
			}
		}
		if max == 0 {
			return ErrSingular
		}
		scale[i] = 1 / max
	}

	for k := 0; k < n; k++ {
		max := 0.0
		maxi := k
		for i := k; i < n; i++ {
			tmp := scale[i] * math.Abs(lu[i*n+k])
			if tmp > max {
				max = tmp
				maxi = i
			}
		}

		if k != maxi {
			for j := 0; j < n; j++ {
				idx1, idx2 := k*n+j, maxi*n+j
				lu[idx1], lu[idx2] = lu[idx2], lu[idx1]
			}
			luf.d = -luf.d
			scale[maxi] = scale[k]
		}
		luf.pivot[k] = maxi

		if lu[k*n+k] == 0 {
			return ErrSingular
		}

		for i := k + 1; i < n; i++ {
			lu[i*n+k] /= lu[k*n+k]
			tmp := lu[i*n+k]
			for j := k + 1; j < n; j++ {
				lu[i*n+j] -= tmp * lu[k*n+j]
			}
		}
	}

	return nil
}

// SolveVector solves M * xs = bs for xs.
//
// bs and xs may point to the same physical memory.
func (luf *LUFactors) SolveVector(bs, xs []float64) {
	n := luf.lu.Width
	if n != len(bs) {
		panic("len(b) != luf.Width")
	} else if n != len(xs) {
		panic("len(x) != luf.Width")
	}

	copy(xs, bs)
	lu := luf.lu.Vals

	// L * y = b, then U * x = y, both in place.
	forwardSubst(n, luf.pivot, lu, xs)
	backSubst(n, lu, xs)
}

// Solves L * y = b in place, unscrambling the pivots as it goes.
// y_i = b_i - sum_j=0^i-1 (alpha_ij y_j)
func forwardSubst(n int, pivot []int, lu, ys []float64) {
	nzIdx := -1
	for i := 0; i < n; i++ {
		piv := pivot[i]
		sum := ys[piv]
		ys[piv] = ys[i]

		if nzIdx >= 0 {
			for j := nzIdx; j < i; j++ {
				sum -= lu[i*n+j] * ys[j]
			}
		} else if sum != 0 {
			nzIdx = i
		}

		ys[i] = sum
	}
}

// Solves U * x = y in place.
// x_i = (y_i - sum_j=i+1^N-1 (beta_ij x_j)) / beta_ii
func backSubst(n int, lu, xs []float64) {
	for i := n - 1; i >= 0; i-- {
		sum := xs[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n+j] * xs[j]
		}
		xs[i] = sum / lu[i*n+i]
	}
}

// Invert writes the inverse of the factored matrix into out.
func (luf *LUFactors) Invert(out *Matrix) {
	n := luf.lu.Width
	if out.Width != out.Height {
		panic("out matrix is non-square.")
	} else if n != out.Width {
		panic("out matrix different size than m matrix.")
	}

	col := make([]float64, n)
	for j := 0; j < n; j++ {
		for i := range col {
			col[i] = 0
		}
		col[j] = 1
		luf.SolveVector(col, col)
		for i := 0; i < n; i++ {
			out.Vals[i*n+j] = col[i]
		}
	}
}

func (luf *LUFactors) Determinant() float64 {
	d := luf.d
	lu := luf.lu.Vals
	n := luf.lu.Width

	for i := 0; i < n; i++ {
		d *= lu[i*n+i]
	}
	return d
}
