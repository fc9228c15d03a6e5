// Package mathx provides the 2D linear algebra used across the engine:
// vectors (via [mgl64.Vec2]), rotations, rigid transforms, swept transforms
// and a 2x2 matrix for small constraint systems.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is the engine-wide 2D vector type.
type Vec2 = mgl64.Vec2

// V builds a Vec2.
func V(x, y float64) Vec2 { return Vec2{x, y} }

// Cross returns the scalar z-component of the 2D cross product a x b.
func Cross(a, b Vec2) float64 { return a.X()*b.Y() - a.Y()*b.X() }

// CrossSV returns s x v, the perpendicular of v scaled by s.
func CrossSV(s float64, v Vec2) Vec2 { return Vec2{-s * v.Y(), s * v.X()} }

// CrossVS returns v x s.
func CrossVS(v Vec2, s float64) Vec2 { return Vec2{s * v.Y(), -s * v.X()} }

// Perp returns the counter-clockwise perpendicular of v.
func Perp(v Vec2) Vec2 { return Vec2{-v.Y(), v.X()} }

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// IsFinite reports whether both components are finite numbers.
func IsFinite(v Vec2) bool {
	return !math.IsNaN(v.X()) && !math.IsInf(v.X(), 0) &&
		!math.IsNaN(v.Y()) && !math.IsInf(v.Y(), 0)
}

// Mat22 is a column-major 2x2 matrix.
type Mat22 struct {
	Ex, Ey Vec2
}

// MulV applies the matrix to v.
func (m Mat22) MulV(v Vec2) Vec2 {
	return Vec2{
		m.Ex.X()*v.X() + m.Ey.X()*v.Y(),
		m.Ex.Y()*v.X() + m.Ey.Y()*v.Y(),
	}
}

// Solve returns x such that m*x = b, or the zero vector if m is singular.
func (m Mat22) Solve(b Vec2) Vec2 {
	a11, a12 := m.Ex.X(), m.Ey.X()
	a21, a22 := m.Ex.Y(), m.Ey.Y()
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1.0 / det
	}
	return Vec2{det * (a22*b.X() - a12*b.Y()), det * (a11*b.Y() - a21*b.X())}
}

// Inverse returns the matrix inverse, or the zero matrix if m is singular.
func (m Mat22) Inverse() Mat22 {
	a, b := m.Ex.X(), m.Ey.X()
	c, d := m.Ex.Y(), m.Ey.Y()
	det := a*d - b*c
	if det != 0 {
		det = 1.0 / det
	}
	return Mat22{
		Ex: Vec2{det * d, -det * c},
		Ey: Vec2{-det * b, det * a},
	}
}
