package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/phil-mansfield/cellgrid/mat"
)

const (
	// degenerateEps is the smallest allowed ratio between the box volume
	// and the product of its edge lengths.
	degenerateEps = 1e-12
)

var (
	// ErrDegenerateBox is returned when the lattice vectors are (close to)
	// linearly dependent.
	ErrDegenerateBox = errors.New("geom: box edges are parallel")
	// ErrCutoff is returned for a non-positive interaction cutoff.
	ErrCutoff = errors.New("geom: cutoff must be positive")
)

// Box is a periodic parallelepiped spanned by three lattice vectors.
//
// To determine the cell that contains a particle, Cartesian coordinates are
// mapped into the coordinate system spanned by the box edges. This gives
// fractional coordinates in [0, 1) which are then scaled by the number of
// cells along each axis. TInv holds the rows of the transposed inverse of
// the lattice matrix, so the k-th fractional coordinate of x is TInv[k]·x.
type Box struct {
	Lattice [3]Vec
	TInv    [3]Vec
	Det     float64
	// Dim is the number of active axes, 2 or 3. In two dimensions the third
	// lattice vector is the out-of-plane unit vector and never holds more
	// than one cell.
	Dim int

	heights Vec
}

// NewBox returns a Box for the given lattice vectors, or ErrDegenerateBox if
// they do not span a volume.
func NewBox(lattice [3]Vec, dim int) (*Box, error) {
	b := &Box{}
	if err := b.Init(lattice, dim); err != nil {
		return nil, err
	}
	return b, nil
}

// Init (re)initializes a Box. It is called whenever the lattice vectors
// change.
func (b *Box) Init(lattice [3]Vec, dim int) error {
	switch dim {
	case 3:
	case 2:
		if lattice[0][2] != 0 || lattice[1][2] != 0 {
			return fmt.Errorf(
				"geom: 2D lattice vectors must lie in the xy plane, got %v and %v",
				lattice[0], lattice[1],
			)
		}
		lattice[2] = Vec{0, 0, 1}
	default:
		return fmt.Errorf("geom: dimension must be 2 or 3, not %d", dim)
	}

	vals := make([]float64, 9)
	for k := 0; k < 3; k++ {
		copy(vals[3*k:3*k+3], lattice[k][:])
	}
	m := mat.NewMatrix(vals, 3, 3)

	luf, err := m.LU()
	if err != nil {
		return fmt.Errorf("%w: lattice %v", ErrDegenerateBox, lattice)
	}
	det := luf.Determinant()
	edges := lattice[0].Norm() * lattice[1].Norm() * lattice[2].Norm()
	if math.Abs(det) <= degenerateEps*edges {
		return fmt.Errorf("%w: determinant %g", ErrDegenerateBox, det)
	}

	inv := mat.NewMatrix(make([]float64, 9), 3, 3)
	luf.Invert(inv)

	b.Lattice = lattice
	b.Det = det
	b.Dim = dim
	for k := 0; k < 3; k++ {
		for j := 0; j < 3; j++ {
			b.TInv[k][j] = inv.At(j, k)
		}
	}

	for k := 0; k < 3; k++ {
		side := lattice[(k+1)%3].Cross(lattice[(k+2)%3])
		b.heights[k] = math.Abs(det) / side.Norm()
	}

	return nil
}

// Heights returns the perpendicular distance between opposite faces of the
// box, one per axis. This, not the edge length, limits how many cells of a
// given width fit along an axis.
func (b *Box) Heights() Vec { return b.heights }

// Volume returns the (area in 2D) volume of the box.
func (b *Box) Volume() float64 { return math.Abs(b.Det) }

// MinimalCellScale returns, per axis, the fraction of the box that a cell must
// span so that the distance between its faces equals the cutoff. The
// reciprocal, rounded down, is the largest usable number of cells. Inactive
// axes report 1.
func (b *Box) MinimalCellScale(cutoff float64) (Vec, error) {
	if !(cutoff > 0) {
		return Vec{}, fmt.Errorf("%w, got %g", ErrCutoff, cutoff)
	}

	scale := Vec{1, 1, 1}
	for k := 0; k < b.Dim; k++ {
		scale[k] = cutoff / b.heights[k]
	}
	return scale, nil
}

// Fractional maps a Cartesian position to box coordinates.
func (b *Box) Fractional(x Vec) Vec {
	return Vec{b.TInv[0].Dot(x), b.TInv[1].Dot(x), b.TInv[2].Dot(x)}
}

// Cartesian maps box coordinates to a Cartesian position.
func (b *Box) Cartesian(s Vec) Vec {
	var x Vec
	for k := 0; k < 3; k++ {
		x[0] += s[k] * b.Lattice[k][0]
		x[1] += s[k] * b.Lattice[k][1]
		x[2] += s[k] * b.Lattice[k][2]
	}
	return x
}

// ShiftVector returns the translation corresponding to a periodic image
// shift.
func (b *Box) ShiftVector(shift IVec) Vec {
	var v Vec
	for k := 0; k < 3; k++ {
		if shift[k] == 0 {
			continue
		}
		v.AddSelf(b.Lattice[k].Scale(float64(shift[k])))
	}
	return v
}

// WrapIntoBox maps a position back into the canonical image of the box along
// every periodic axis. Non-periodic axes are left alone.
func (b *Box) WrapIntoBox(x Vec, periodic [3]bool) Vec {
	s := b.Fractional(x)
	for k := 0; k < b.Dim; k++ {
		if !periodic[k] {
			continue
		}
		if i := math.Floor(s[k]); i != 0 {
			x.SubSelf(b.Lattice[k].Scale(i))
		}
	}
	return x
}
