package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmat "gonum.org/v1/gonum/mat"
)

const eps = 1e-10

func triclinic() [3]Vec {
	return [3]Vec{{10, 0, 0}, {2, 9, 0}, {1, -1.5, 8}}
}

func TestNewBoxInverse(t *testing.T) {
	lattice := triclinic()
	b, err := NewBox(lattice, 3)
	require.NoError(t, err)

	vals := make([]float64, 0, 9)
	for k := 0; k < 3; k++ {
		vals = append(vals, lattice[k][:]...)
	}
	L := gmat.NewDense(3, 3, vals)
	assert.InDelta(t, gmat.Det(L), b.Det, eps)

	var inv gmat.Dense
	require.NoError(t, inv.Inverse(L))
	for k := 0; k < 3; k++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, inv.At(j, k), b.TInv[k][j], eps)
		}
	}

	// Each lattice vector maps to a unit fractional vector.
	for k := 0; k < 3; k++ {
		s := b.Fractional(lattice[k])
		for j := 0; j < 3; j++ {
			exp := 0.0
			if j == k {
				exp = 1
			}
			assert.InDelta(t, exp, s[j], eps)
		}
	}
}

func TestFractionalRoundTrip(t *testing.T) {
	b, err := NewBox(triclinic(), 3)
	require.NoError(t, err)

	xs := []Vec{{0, 0, 0}, {1, 2, 3}, {-4, 7.5, 0.25}, {13, 13, 13}}
	for i, x := range xs {
		y := b.Cartesian(b.Fractional(x))
		for k := 0; k < 3; k++ {
			if math.Abs(y[k]-x[k]) > eps {
				t.Errorf("%d) Expected %v, got %v.", i, x, y)
				break
			}
		}
	}
}

func TestHeights(t *testing.T) {
	table := []struct {
		lattice [3]Vec
		dim     int
		heights Vec
	}{
		{[3]Vec{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}, 3, Vec{10, 10, 10}},
		{[3]Vec{{4, 0, 0}, {0, 6, 0}, {0, 0, 8}}, 3, Vec{4, 6, 8}},
		// Shearing b along a only lowers the height along a.
		{[3]Vec{{10, 0, 0}, {5, 10, 0}, {0, 0, 10}}, 3, Vec{10 / math.Sqrt(1.25), 10, 10}},
		{[3]Vec{{3, 0, 0}, {0, 5, 0}, {}}, 2, Vec{3, 5, 1}},
	}

	for i, test := range table {
		b, err := NewBox(test.lattice, test.dim)
		require.NoError(t, err)
		h := b.Heights()
		for k := 0; k < 3; k++ {
			if math.Abs(h[k]-test.heights[k]) > eps {
				t.Errorf("%d) Expected heights %v, got %v.", i, test.heights, h)
				break
			}
		}
	}
}

func TestMinimalCellScale(t *testing.T) {
	b, err := NewBox([3]Vec{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}, 3)
	require.NoError(t, err)

	scale, err := b.MinimalCellScale(2.5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25}, scale[:], eps)

	_, err = b.MinimalCellScale(0)
	assert.ErrorIs(t, err, ErrCutoff)
	_, err = b.MinimalCellScale(-1)
	assert.ErrorIs(t, err, ErrCutoff)

	b2, err := NewBox([3]Vec{{8, 0, 0}, {0, 4, 0}}, 2)
	require.NoError(t, err)
	scale, err = b2.MinimalCellScale(2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 1}, scale[:], eps)
}

func TestDegenerateBox(t *testing.T) {
	table := [][3]Vec{
		{{1, 0, 0}, {2, 0, 0}, {0, 0, 1}},
		{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}},
		{{1, 0, 0}, {0, 1, 0}, {1, 1, 1e-14}},
	}
	for i, lattice := range table {
		_, err := NewBox(lattice, 3)
		if !assert.ErrorIs(t, err, ErrDegenerateBox) {
			t.Errorf("%d) Expected a degenerate box error.", i)
		}
	}

	_, err := NewBox([3]Vec{{1, 0, 0}, {1, 0, 0}}, 2)
	assert.ErrorIs(t, err, ErrDegenerateBox)
	_, err = NewBox([3]Vec{{1, 0, 1}, {0, 1, 0}}, 2)
	assert.Error(t, err)
	_, err = NewBox(triclinic(), 4)
	assert.Error(t, err)
}

func TestWrapIntoBox(t *testing.T) {
	b, err := NewBox(triclinic(), 3)
	require.NoError(t, err)

	all := [3]bool{true, true, true}
	xs := []Vec{{-1, -1, -1}, {25, 3, 4}, {5, 5, 5}, {0, 20, -9}}
	for i, x := range xs {
		w := b.WrapIntoBox(x, all)
		s := b.Fractional(w)
		for k := 0; k < 3; k++ {
			if s[k] < -eps || s[k] >= 1+eps {
				t.Errorf("%d) Expected %v to wrap into the box, got fractional %v.",
					i, x, s)
				break
			}
		}
		// The wrapped position is an image of the original.
		d := b.Fractional(w.Sub(x))
		for k := 0; k < 3; k++ {
			if math.Abs(d[k]-math.Round(d[k])) > 1e-8 {
				t.Errorf("%d) %v and %v are not periodic images.", i, x, w)
				break
			}
		}
	}

	ortho, err := NewBox([3]Vec{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}, 3)
	require.NoError(t, err)
	w := ortho.WrapIntoBox(Vec{-1, 12, 15}, [3]bool{true, false, true})
	assert.InDeltaSlice(t, []float64{9, 12, 5}, w[:], eps)
}

func TestShiftVector(t *testing.T) {
	b, err := NewBox(triclinic(), 3)
	require.NoError(t, err)
	v := b.ShiftVector(IVec{1, -1, 1})
	assert.InDeltaSlice(t, []float64{9, -10.5, 8}, v[:], eps)
	assert.Equal(t, Vec{}, b.ShiftVector(IVec{}))
}

func TestVec(t *testing.T) {
	x, y := Vec{1, 0, 0}, Vec{0, 1, 0}
	assert.Equal(t, Vec{0, 0, 1}, x.Cross(y))
	assert.Equal(t, 0.0, x.Dot(y))
	assert.Equal(t, 14.0, Vec{1, 2, 3}.Norm2())
	assert.Equal(t, IVec{-1, 2, 0}, IVec{1, -2, 0}.Neg())
	assert.True(t, IVec{}.IsZero())
}
