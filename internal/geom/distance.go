package geom

import (
	"github.com/san-kum/rigid2d/internal/mathx"
)

// DistanceProxy is the convex core of a shape (radius stripped) as consumed
// by GJK.
type DistanceProxy struct {
	Verts  []mathx.Vec2
	Radius float64
}

// Proxy extracts the distance proxy of a shape.
func Proxy(s *Shape) DistanceProxy {
	switch s.Kind {
	case KindCircle:
		return DistanceProxy{Verts: s.Verts[:1], Radius: s.Radius}
	case KindPolygon:
		return DistanceProxy{Verts: s.Verts, Radius: s.Radius}
	default: // capsule, segment
		return DistanceProxy{Verts: s.Verts[:2], Radius: s.Radius}
	}
}

func (p DistanceProxy) support(d mathx.Vec2) int {
	best := 0
	bestDot := p.Verts[0].Dot(d)
	for i := 1; i < len(p.Verts); i++ {
		if dot := p.Verts[i].Dot(d); dot > bestDot {
			bestDot = dot
			best = i
		}
	}
	return best
}

// DistanceInput configures a GJK query between two transformed proxies.
type DistanceInput struct {
	ProxyA, ProxyB DistanceProxy
	XfA, XfB       mathx.Transform
	UseRadii       bool
}

// DistanceOutput reports the closest points and their separation.
type DistanceOutput struct {
	PointA, PointB mathx.Vec2
	Distance       float64
	Iterations     int
}

type simplexVertex struct {
	wA, wB         mathx.Vec2 // support points on A and B
	w              mathx.Vec2 // wB - wA
	a              float64    // barycentric weight
	indexA, indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) searchDirection() mathx.Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Mul(-1)
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		sgn := mathx.Cross(e12, s.v[0].w.Mul(-1))
		if sgn > 0 {
			return mathx.CrossSV(1.0, e12)
		}
		return mathx.CrossVS(e12, 1.0)
	}
	return mathx.V(0, 0)
}

func (s *simplex) witnessPoints() (mathx.Vec2, mathx.Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA := s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB := s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB
	default:
		p := s.v[0].wA.Mul(s.v[0].a).
			Add(s.v[1].wA.Mul(s.v[1].a)).
			Add(s.v[2].wA.Mul(s.v[2].a))
		return p, p
	}
}

// solve2 finds the closest point on segment w0-w1 to the origin.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	d12_2 := -w1.Dot(e12)
	if d12_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}
	d12_1 := w2.Dot(e12)
	if d12_1 <= 0 {
		s.v[0] = s.v[1]
		s.v[0].a = 1
		s.count = 1
		return
	}
	inv := 1.0 / (d12_1 + d12_2)
	s.v[0].a = d12_1 * inv
	s.v[1].a = d12_2 * inv
	s.count = 2
}

// solve3 finds the closest feature of triangle w0-w1-w2 to the origin.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	e12 := w2.Sub(w1)
	d12_1 := w2.Dot(e12)
	d12_2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13_1 := w3.Dot(e13)
	d13_2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23_1 := w3.Dot(e23)
	d23_2 := -w2.Dot(e23)

	n123 := mathx.Cross(e12, e13)
	d123_1 := n123 * mathx.Cross(w2, w3)
	d123_2 := n123 * mathx.Cross(w3, w1)
	d123_3 := n123 * mathx.Cross(w1, w2)

	// Vertex regions.
	if d12_2 <= 0 && d13_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}
	// Edge 12.
	if d12_1 > 0 && d12_2 > 0 && d123_3 <= 0 {
		inv := 1.0 / (d12_1 + d12_2)
		s.v[0].a = d12_1 * inv
		s.v[1].a = d12_2 * inv
		s.count = 2
		return
	}
	// Edge 13.
	if d13_1 > 0 && d13_2 > 0 && d123_2 <= 0 {
		inv := 1.0 / (d13_1 + d13_2)
		s.v[0].a = d13_1 * inv
		s.v[2].a = d13_2 * inv
		s.v[1] = s.v[2]
		s.count = 2
		return
	}
	// Vertex 2.
	if d12_1 <= 0 && d23_2 <= 0 {
		s.v[0] = s.v[1]
		s.v[0].a = 1
		s.count = 1
		return
	}
	// Vertex 3.
	if d13_1 <= 0 && d23_1 <= 0 {
		s.v[0] = s.v[2]
		s.v[0].a = 1
		s.count = 1
		return
	}
	// Edge 23.
	if d23_1 > 0 && d23_2 > 0 && d123_1 <= 0 {
		inv := 1.0 / (d23_1 + d23_2)
		s.v[1].a = d23_1 * inv
		s.v[2].a = d23_2 * inv
		s.v[0] = s.v[2]
		s.count = 2
		return
	}
	// Interior: origin is contained.
	inv := 1.0 / (d123_1 + d123_2 + d123_3)
	s.v[0].a = d123_1 * inv
	s.v[1].a = d123_2 * inv
	s.v[2].a = d123_3 * inv
	s.count = 3
}

const gjkMaxIters = 20

// Distance runs GJK between two convex cores, returning closest points in
// world space. With UseRadii the shape radii are subtracted from the
// separation and the witness points pushed onto the shape surfaces.
func Distance(input DistanceInput) DistanceOutput {
	var s simplex
	pa := input.ProxyA
	pb := input.ProxyB

	// Seed with an arbitrary support pair.
	s.count = 1
	s.v[0].indexA = 0
	s.v[0].indexB = 0
	s.v[0].wA = input.XfA.Apply(pa.Verts[0])
	s.v[0].wB = input.XfB.Apply(pb.Verts[0])
	s.v[0].w = s.v[0].wB.Sub(s.v[0].wA)
	s.v[0].a = 1

	var out DistanceOutput
	var saveA, saveB [3]int

	for iter := 0; iter < gjkMaxIters; iter++ {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}
		if s.count == 3 {
			// Origin inside the Minkowski difference: overlap.
			break
		}

		d := s.searchDirection()
		if d.LenSqr() < 1e-24 {
			break
		}

		v := &s.v[s.count]
		v.indexA = pa.support(input.XfA.Q.ApplyT(d.Mul(-1)))
		v.wA = input.XfA.Apply(pa.Verts[v.indexA])
		v.indexB = pb.support(input.XfB.Q.ApplyT(d))
		v.wB = input.XfB.Apply(pb.Verts[v.indexB])
		v.w = v.wB.Sub(v.wA)

		out.Iterations = iter + 1

		// A repeated support pair means no progress.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if v.indexA == saveA[i] && v.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		s.count++
	}

	out.PointA, out.PointB = s.witnessPoints()
	out.Distance = out.PointB.Sub(out.PointA).Len()

	if input.UseRadii {
		rA := pa.Radius
		rB := pb.Radius
		if out.Distance > rA+rB && out.Distance > 1e-12 {
			out.Distance -= rA + rB
			normal := out.PointB.Sub(out.PointA).Normalize()
			out.PointA = out.PointA.Add(normal.Mul(rA))
			out.PointB = out.PointB.Sub(normal.Mul(rB))
		} else {
			p := out.PointA.Add(out.PointB).Mul(0.5)
			out.PointA = p
			out.PointB = p
			out.Distance = 0
		}
	}
	return out
}
