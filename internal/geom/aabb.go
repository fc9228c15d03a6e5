package geom

import "github.com/san-kum/rigid2d/internal/mathx"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Lower, Upper mathx.Vec2
}

// Overlaps reports whether the two boxes intersect.
func (bb AABB) Overlaps(other AABB) bool {
	if other.Lower.X()-bb.Upper.X() > 0 || other.Lower.Y()-bb.Upper.Y() > 0 {
		return false
	}
	if bb.Lower.X()-other.Upper.X() > 0 || bb.Lower.Y()-other.Upper.Y() > 0 {
		return false
	}
	return true
}

// Contains reports whether bb fully contains other.
func (bb AABB) Contains(other AABB) bool {
	return bb.Lower.X() <= other.Lower.X() &&
		bb.Lower.Y() <= other.Lower.Y() &&
		other.Upper.X() <= bb.Upper.X() &&
		other.Upper.Y() <= bb.Upper.Y()
}

// Union returns the smallest box containing both.
func (bb AABB) Union(other AABB) AABB {
	return AABB{
		Lower: mathx.V(min(bb.Lower.X(), other.Lower.X()), min(bb.Lower.Y(), other.Lower.Y())),
		Upper: mathx.V(max(bb.Upper.X(), other.Upper.X()), max(bb.Upper.Y(), other.Upper.Y())),
	}
}

// Perimeter returns the box perimeter, the cost metric for tree balancing.
func (bb AABB) Perimeter() float64 {
	wx := bb.Upper.X() - bb.Lower.X()
	wy := bb.Upper.Y() - bb.Lower.Y()
	return 2.0 * (wx + wy)
}

// Center returns the box center.
func (bb AABB) Center() mathx.Vec2 {
	return bb.Lower.Add(bb.Upper).Mul(0.5)
}

// Extend grows the box by margin on every side.
func (bb AABB) Extend(margin float64) AABB {
	m := mathx.V(margin, margin)
	return AABB{Lower: bb.Lower.Sub(m), Upper: bb.Upper.Add(m)}
}

// ExtendTowards grows the box in the direction of displacement d, the
// velocity-based prediction that reduces re-indexing churn for moving
// colliders.
func (bb AABB) ExtendTowards(d mathx.Vec2) AABB {
	out := bb
	if d.X() < 0 {
		out.Lower = mathx.V(out.Lower.X()+d.X(), out.Lower.Y())
	} else {
		out.Upper = mathx.V(out.Upper.X()+d.X(), out.Upper.Y())
	}
	if d.Y() < 0 {
		out.Lower = mathx.V(out.Lower.X(), out.Lower.Y()+d.Y())
	} else {
		out.Upper = mathx.V(out.Upper.X(), out.Upper.Y()+d.Y())
	}
	return out
}
