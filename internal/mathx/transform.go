package mathx

import "math"

// Rot is a 2D rotation stored as sine/cosine so that applying it never
// re-evaluates trigonometric functions.
type Rot struct {
	S, C float64
}

// NewRot builds a rotation from an angle in radians.
func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

// Angle returns the rotation angle in radians.
func (q Rot) Angle() float64 { return math.Atan2(q.S, q.C) }

// XAxis returns the rotated x axis.
func (q Rot) XAxis() Vec2 { return Vec2{q.C, q.S} }

// YAxis returns the rotated y axis.
func (q Rot) YAxis() Vec2 { return Vec2{-q.S, q.C} }

// Apply rotates v.
func (q Rot) Apply(v Vec2) Vec2 {
	return Vec2{q.C*v.X() - q.S*v.Y(), q.S*v.X() + q.C*v.Y()}
}

// ApplyT applies the inverse rotation to v.
func (q Rot) ApplyT(v Vec2) Vec2 {
	return Vec2{q.C*v.X() + q.S*v.Y(), -q.S*v.X() + q.C*v.Y()}
}

// MulRot composes two rotations, q then r.
func MulRot(q, r Rot) Rot {
	return Rot{S: q.S*r.C + q.C*r.S, C: q.C*r.C - q.S*r.S}
}

// MulTRot composes the inverse of q with r.
func MulTRot(q, r Rot) Rot {
	return Rot{S: q.C*r.S - q.S*r.C, C: q.C*r.C + q.S*r.S}
}

// Transform is a rigid-body transform: rotation followed by translation.
type Transform struct {
	P Vec2
	Q Rot
}

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{Q: Rot{S: 0, C: 1}}
}

// Apply maps a local point to world space.
func (t Transform) Apply(v Vec2) Vec2 {
	return t.Q.Apply(v).Add(t.P)
}

// ApplyT maps a world point to local space.
func (t Transform) ApplyT(v Vec2) Vec2 {
	return t.Q.ApplyT(v.Sub(t.P))
}

// Mul composes transforms: (t * u)(v) == t(u(v)).
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Q: MulRot(t.Q, u.Q),
		P: t.Q.Apply(u.P).Add(t.P),
	}
}

// MulT composes the inverse of t with u.
func (t Transform) MulT(u Transform) Transform {
	return Transform{
		Q: MulTRot(t.Q, u.Q),
		P: t.Q.ApplyT(u.P.Sub(t.P)),
	}
}

// Sweep describes the motion of a body's center of mass over a step, used to
// interpolate transforms for time-of-impact queries. C0/A0 hold the state at
// Alpha0, C/A the state at the end of the step.
type Sweep struct {
	LocalCenter Vec2
	C0, C       Vec2
	A0, A       float64
	Alpha0      float64
}

// GetTransform returns the interpolated body transform at beta in [0,1].
func (s *Sweep) GetTransform(beta float64) Transform {
	c := s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	a := (1.0-beta)*s.A0 + beta*s.A
	q := NewRot(a)
	return Transform{
		Q: q,
		P: c.Sub(q.Apply(s.LocalCenter)),
	}
}

// Advance moves the start of the sweep forward to alpha, leaving the end
// state untouched.
func (s *Sweep) Advance(alpha float64) {
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	s.A0 = (1.0-beta)*s.A0 + beta*s.A
	s.Alpha0 = alpha
}

// Normalize wraps the sweep angles into [-pi, pi] to keep them well
// conditioned over long runs.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
