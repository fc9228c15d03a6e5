// Package geom defines the closed set of collision shapes, their bounding
// boxes and mass properties. Shape kinds form a tagged variant; every
// narrow-phase routine dispatches on the unordered pair of kinds.
package geom

import (
	"errors"
	"math"

	"github.com/san-kum/rigid2d/internal/mathx"
)

// ErrDegenerate indicates a shape with no area/extent (zero radius, too few
// vertices, zero-length axis). Such shapes are excluded from collision for
// the step rather than aborting it.
var ErrDegenerate = errors.New("geom: degenerate shape")

// Kind tags the shape variant.
type Kind uint8

const (
	KindCircle Kind = iota
	KindPolygon
	KindCapsule
	KindSegment
	kindCount
)

// NumKinds is the size of the closed shape-kind set.
const NumKinds = int(kindCount)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	case KindCapsule:
		return "capsule"
	case KindSegment:
		return "segment"
	}
	return "unknown"
}

// MaxPolygonVerts bounds convex polygon complexity.
const MaxPolygonVerts = 8

// polygonRadius is the thin skin around polygons that keeps clipped contact
// points numerically stable.
const polygonRadius = 2.0 * 0.005

// Shape is the tagged shape variant. Interpretation of the fields depends on
// Kind:
//
//   - Circle: Radius, Verts[0] is the local center.
//   - Polygon: Verts (CCW) and matching outward Normals; Radius is the skin.
//   - Capsule: Verts[0], Verts[1] are the axis endpoints, Radius the radius.
//   - Segment: Verts[0], Verts[1] are the endpoints.
type Shape struct {
	Kind     Kind
	Radius   float64
	Verts    []mathx.Vec2
	Normals  []mathx.Vec2
	Centroid mathx.Vec2
}

// NewCircle builds a circle centered on the local origin.
func NewCircle(radius float64) *Shape {
	return &Shape{
		Kind:   KindCircle,
		Radius: radius,
		Verts:  []mathx.Vec2{{0, 0}},
	}
}

// NewCircleAt builds a circle with a local center offset.
func NewCircleAt(center mathx.Vec2, radius float64) *Shape {
	return &Shape{
		Kind:   KindCircle,
		Radius: radius,
		Verts:  []mathx.Vec2{center},
	}
}

// NewBox builds an axis-aligned box polygon from half extents.
func NewBox(hx, hy float64) *Shape {
	return &Shape{
		Kind:   KindPolygon,
		Radius: polygonRadius,
		Verts: []mathx.Vec2{
			{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy},
		},
		Normals: []mathx.Vec2{
			{0, -1}, {1, 0}, {0, 1}, {-1, 0},
		},
	}
}

// NewPolygon builds a convex polygon from CCW vertices. Normals and centroid
// are derived; the caller is responsible for convexity and winding.
func NewPolygon(verts []mathx.Vec2) *Shape {
	s := &Shape{
		Kind:   KindPolygon,
		Radius: polygonRadius,
		Verts:  append([]mathx.Vec2(nil), verts...),
	}
	n := len(verts)
	s.Normals = make([]mathx.Vec2, n)
	for i := 0; i < n; i++ {
		edge := verts[(i+1)%n].Sub(verts[i])
		if edge.LenSqr() > 0 {
			s.Normals[i] = mathx.CrossVS(edge, 1.0).Normalize()
		}
	}
	s.Centroid = polygonCentroid(verts)
	return s
}

// NewCapsule builds a capsule between two local points.
func NewCapsule(p1, p2 mathx.Vec2, radius float64) *Shape {
	return &Shape{
		Kind:   KindCapsule,
		Radius: radius,
		Verts:  []mathx.Vec2{p1, p2},
	}
}

// NewSegment builds a zero-thickness segment, typically used for static
// boundaries.
func NewSegment(p1, p2 mathx.Vec2) *Shape {
	return &Shape{
		Kind:  KindSegment,
		Verts: []mathx.Vec2{p1, p2},
	}
}

// Validate reports ErrDegenerate for shapes the narrow phase cannot process.
func (s *Shape) Validate() error {
	switch s.Kind {
	case KindCircle:
		if s.Radius <= 0 || len(s.Verts) < 1 {
			return ErrDegenerate
		}
	case KindPolygon:
		if len(s.Verts) < 3 || len(s.Verts) > MaxPolygonVerts {
			return ErrDegenerate
		}
		if math.Abs(polygonArea(s.Verts)) < 1e-12 {
			return ErrDegenerate
		}
	case KindCapsule:
		if s.Radius <= 0 || len(s.Verts) != 2 {
			return ErrDegenerate
		}
		if s.Verts[1].Sub(s.Verts[0]).LenSqr() < 1e-12 {
			return ErrDegenerate
		}
	case KindSegment:
		if len(s.Verts) != 2 || s.Verts[1].Sub(s.Verts[0]).LenSqr() < 1e-12 {
			return ErrDegenerate
		}
	default:
		return ErrDegenerate
	}
	return nil
}

// AABB computes the world bounding box of the shape under xf.
func (s *Shape) AABB(xf mathx.Transform) AABB {
	switch s.Kind {
	case KindCircle:
		p := xf.Apply(s.Verts[0])
		r := mathx.V(s.Radius, s.Radius)
		return AABB{Lower: p.Sub(r), Upper: p.Add(r)}
	case KindCapsule:
		p1 := xf.Apply(s.Verts[0])
		p2 := xf.Apply(s.Verts[1])
		r := mathx.V(s.Radius, s.Radius)
		lower := mathx.V(min(p1.X(), p2.X()), min(p1.Y(), p2.Y())).Sub(r)
		upper := mathx.V(max(p1.X(), p2.X()), max(p1.Y(), p2.Y())).Add(r)
		return AABB{Lower: lower, Upper: upper}
	default:
		p0 := xf.Apply(s.Verts[0])
		bb := AABB{Lower: p0, Upper: p0}
		for _, v := range s.Verts[1:] {
			p := xf.Apply(v)
			bb.Lower = mathx.V(min(bb.Lower.X(), p.X()), min(bb.Lower.Y(), p.Y()))
			bb.Upper = mathx.V(max(bb.Upper.X(), p.X()), max(bb.Upper.Y(), p.Y()))
		}
		return bb.Extend(s.Radius)
	}
}

// MinExtent returns the smallest half-extent of the shape, the reference
// length for continuous-collision displacement flagging.
func (s *Shape) MinExtent() float64 {
	switch s.Kind {
	case KindCircle, KindCapsule:
		return s.Radius
	case KindPolygon:
		best := math.MaxFloat64
		c := s.Centroid
		for i, n := range s.Normals {
			d := n.Dot(s.Verts[i].Sub(c))
			if d < best {
				best = d
			}
		}
		return best
	default:
		return s.Radius
	}
}

// Support returns the local support point of the shape core (radius
// excluded) in direction d, used by GJK distance queries.
func (s *Shape) Support(d mathx.Vec2) mathx.Vec2 {
	best := 0
	bestDot := s.Verts[0].Dot(d)
	for i := 1; i < len(s.Verts); i++ {
		if dot := s.Verts[i].Dot(d); dot > bestDot {
			bestDot = dot
			best = i
		}
	}
	return s.Verts[best]
}

// MassData holds the mass properties of a shape at a given density.
type MassData struct {
	Mass   float64
	I      float64 // rotational inertia about the local origin
	Center mathx.Vec2
}

// ComputeMass derives mass, inertia and centroid from density.
func (s *Shape) ComputeMass(density float64) MassData {
	switch s.Kind {
	case KindCircle:
		c := s.Verts[0]
		mass := density * math.Pi * s.Radius * s.Radius
		return MassData{
			Mass:   mass,
			Center: c,
			I:      mass * (0.5*s.Radius*s.Radius + c.LenSqr()),
		}
	case KindPolygon:
		return polygonMass(s.Verts, density)
	case KindCapsule:
		return capsuleMass(s.Verts[0], s.Verts[1], s.Radius, density)
	default:
		// Segments carry no mass; they only anchor static geometry.
		center := s.Verts[0].Add(s.Verts[1]).Mul(0.5)
		return MassData{Center: center}
	}
}

func polygonArea(verts []mathx.Vec2) float64 {
	area := 0.0
	for i := range verts {
		j := (i + 1) % len(verts)
		area += mathx.Cross(verts[i], verts[j])
	}
	return 0.5 * area
}

func polygonCentroid(verts []mathx.Vec2) mathx.Vec2 {
	c := mathx.V(0, 0)
	area := 0.0
	ref := verts[0]
	for i := 1; i < len(verts)-1; i++ {
		e1 := verts[i].Sub(ref)
		e2 := verts[i+1].Sub(ref)
		a := 0.5 * mathx.Cross(e1, e2)
		area += a
		c = c.Add(e1.Add(e2).Mul(a / 3.0))
	}
	if area != 0 {
		c = c.Mul(1.0 / area)
	}
	return c.Add(ref)
}

func polygonMass(verts []mathx.Vec2, density float64) MassData {
	center := mathx.V(0, 0)
	area := 0.0
	inertia := 0.0
	ref := verts[0]

	for i := 1; i < len(verts)-1; i++ {
		e1 := verts[i].Sub(ref)
		e2 := verts[i+1].Sub(ref)
		d := mathx.Cross(e1, e2)
		triArea := 0.5 * d
		area += triArea
		center = center.Add(e1.Add(e2).Mul(triArea / 3.0))

		intx2 := e1.X()*e1.X() + e2.X()*e1.X() + e2.X()*e2.X()
		inty2 := e1.Y()*e1.Y() + e2.Y()*e1.Y() + e2.Y()*e2.Y()
		inertia += (0.25 / 3.0) * d * (intx2 + inty2)
	}

	mass := density * area
	if area != 0 {
		center = center.Mul(1.0 / area)
	}
	worldCenter := center.Add(ref)
	// Shift inertia from the triangulation reference to the local origin.
	i := density*inertia + mass*(worldCenter.LenSqr()-center.LenSqr())
	return MassData{Mass: mass, Center: worldCenter, I: i}
}

func capsuleMass(p1, p2 mathx.Vec2, radius, density float64) MassData {
	length := p2.Sub(p1).Len()
	center := p1.Add(p2).Mul(0.5)

	rectMass := density * length * 2.0 * radius
	capMass := density * math.Pi * radius * radius

	// Rectangle inertia about its own center plus two half-discs offset to
	// the ends, then parallel-axis shift to the local origin.
	rectI := rectMass * (length*length + 4.0*radius*radius) / 12.0
	halfLen := 0.5 * length
	discOffset := halfLen + 0.5*radius
	capI := capMass * (0.5*radius*radius + discOffset*discOffset)

	mass := rectMass + capMass
	i := rectI + capI + mass*center.LenSqr()
	return MassData{Mass: mass, Center: center, I: i}
}
