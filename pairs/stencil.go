package pairs

import (
	"github.com/phil-mansfield/cellgrid/geom"
)

// HalfShell returns the neighbor offsets visited from every cell: the cell
// itself followed by one offset out of each mirrored pair of its neighbors.
// The first non-zero component of every returned offset is +1. Offsets
// which move along an axis at or above dim are omitted.
func HalfShell(dim int) []geom.IVec {
	out := []geom.IVec{}
	for l := 0; l <= 1; l++ {
		for m := -l; m <= 1; m++ {
			nLow := -l
			if l == 0 {
				nLow = -m
			}
			for n := nLow; n <= 1; n++ {
				o := geom.IVec{l, m, n}
				if active(o, dim) {
					out = append(out, o)
				}
			}
		}
	}
	return out
}

// FullShell returns every offset in [-1, 1]^dim, including zero.
func FullShell(dim int) []geom.IVec {
	out := []geom.IVec{}
	for l := -1; l <= 1; l++ {
		for m := -1; m <= 1; m++ {
			for n := -1; n <= 1; n++ {
				o := geom.IVec{l, m, n}
				if active(o, dim) {
					out = append(out, o)
				}
			}
		}
	}
	return out
}

func active(o geom.IVec, dim int) bool {
	for k := dim; k < 3; k++ {
		if o[k] != 0 {
			return false
		}
	}
	return true
}

// leadingAxis returns the first axis along which o is non-zero, or -1.
func leadingAxis(o geom.IVec) int {
	for k := 0; k < 3; k++ {
		if o[k] != 0 {
			return k
		}
	}
	return -1
}

// shiftOf returns the periodic image shift of a raw global coordinate.
func shiftOf(r, global int) int {
	switch {
	case r > global-1:
		return 1
	case r < 0:
		return -1
	}
	return 0
}

func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}
