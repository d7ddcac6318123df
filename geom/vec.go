package geom

import (
	"math"
)

// Vec is a Cartesian (or fractional) coordinate. Two dimensional systems
// use the first two components and leave the third at zero.
type Vec [3]float64

// IVec is an integer triple, used for cell coordinates and periodic image
// shifts.
type IVec [3]int

func (v Vec) Add(u Vec) Vec { return Vec{v[0] + u[0], v[1] + u[1], v[2] + u[2]} }
func (v Vec) Sub(u Vec) Vec { return Vec{v[0] - u[0], v[1] - u[1], v[2] - u[2]} }
func (v Vec) Scale(s float64) Vec { return Vec{v[0] * s, v[1] * s, v[2] * s} }

func (v Vec) Dot(u Vec) float64 { return v[0]*u[0] + v[1]*u[1] + v[2]*u[2] }

// Cross returns v x u.
func (v Vec) Cross(u Vec) Vec {
	return Vec{
		v[1]*u[2] - v[2]*u[1],
		v[2]*u[0] - v[0]*u[2],
		v[0]*u[1] - v[1]*u[0],
	}
}

func (v Vec) Norm2() float64 { return v.Dot(v) }
func (v Vec) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// AddSelf adds u to v in place. The force kernels accumulate into cell
// columns through this, so it avoids the copy that Add makes.
func (v *Vec) AddSelf(u Vec) {
	v[0] += u[0]
	v[1] += u[1]
	v[2] += u[2]
}

// SubSelf subtracts u from v in place.
func (v *Vec) SubSelf(u Vec) {
	v[0] -= u[0]
	v[1] -= u[1]
	v[2] -= u[2]
}

func (v IVec) Add(u IVec) IVec { return IVec{v[0] + u[0], v[1] + u[1], v[2] + u[2]} }
func (v IVec) Sub(u IVec) IVec { return IVec{v[0] - u[0], v[1] - u[1], v[2] - u[2]} }

// Neg returns -v.
func (v IVec) Neg() IVec { return IVec{-v[0], -v[1], -v[2]} }

// IsZero returns true if every component of v is zero.
func (v IVec) IsZero() bool { return v[0] == 0 && v[1] == 0 && v[2] == 0 }
