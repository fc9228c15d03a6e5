package narrowphase

import (
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
)

// closestOnSegment returns the point on segment p1-p2 closest to q.
func closestOnSegment(p1, p2, q mathx.Vec2) mathx.Vec2 {
	d := p2.Sub(p1)
	den := d.LenSqr()
	if den < 1e-12 {
		return p1
	}
	t := mathx.Clamp(q.Sub(p1).Dot(d)/den, 0, 1)
	return p1.Add(d.Mul(t))
}

// collideCapsuleCircle reduces the capsule to a circle at the core point
// nearest the circle center.
func collideCapsuleCircle(m *Manifold, capsule *geom.Shape, xfA mathx.Transform, circle *geom.Shape, xfB mathx.Transform) {
	center := xfA.ApplyT(xfB.Apply(circle.Verts[0]))
	core := closestOnSegment(capsule.Verts[0], capsule.Verts[1], center)

	virtual := geom.NewCircleAt(core, capsule.Radius)
	collideCircles(m, virtual, xfA, circle, xfB)
}

// collideCapsuleCapsule reduces both capsules to circles at the mutually
// closest core points.
func collideCapsuleCapsule(m *Manifold, a *geom.Shape, xfA mathx.Transform, b *geom.Shape, xfB mathx.Transform) {
	out := geom.Distance(geom.DistanceInput{
		ProxyA: geom.Proxy(a),
		ProxyB: geom.Proxy(b),
		XfA:    xfA,
		XfB:    xfB,
	})
	virtualA := geom.NewCircleAt(xfA.ApplyT(out.PointA), a.Radius)
	virtualB := geom.NewCircleAt(xfB.ApplyT(out.PointB), b.Radius)
	collideCircles(m, virtualA, xfA, virtualB, xfB)
}

// collidePolygonCapsule reduces the capsule to a circle at the core point
// nearest the polygon, then reuses the polygon-circle routine. One-point
// manifolds are a deliberate simplification; capsule ends are round, so a
// single deepest point is representative.
func collidePolygonCapsule(m *Manifold, poly *geom.Shape, xfA mathx.Transform, capsule *geom.Shape, xfB mathx.Transform) {
	out := geom.Distance(geom.DistanceInput{
		ProxyA: geom.Proxy(poly),
		ProxyB: geom.Proxy(capsule),
		XfA:    xfA,
		XfB:    xfB,
	})
	core := xfB.ApplyT(out.PointB)
	virtual := geom.NewCircleAt(core, capsule.Radius)
	collidePolygonCircle(m, poly, xfA, virtual, xfB)
}

// segmentAsPolygon views a segment as a two-vertex polygon so that the SAT
// clipping path can process it.
func segmentAsPolygon(s *geom.Shape) *geom.Shape {
	n := mathx.CrossVS(s.Verts[1].Sub(s.Verts[0]), 1.0).Normalize()
	return &geom.Shape{
		Kind:    geom.KindPolygon,
		Radius:  s.Radius,
		Verts:   []mathx.Vec2{s.Verts[0], s.Verts[1]},
		Normals: []mathx.Vec2{n, n.Mul(-1)},
	}
}

// collideSegmentCircle reduces the segment to its closest point.
func collideSegmentCircle(m *Manifold, seg *geom.Shape, xfA mathx.Transform, circle *geom.Shape, xfB mathx.Transform) {
	center := xfA.ApplyT(xfB.Apply(circle.Verts[0]))
	core := closestOnSegment(seg.Verts[0], seg.Verts[1], center)

	virtual := geom.NewCircleAt(core, 1e-9)
	collideCircles(m, virtual, xfA, circle, xfB)
}

// collideSegmentPolygon runs polygon SAT with the segment as a two-gon.
func collideSegmentPolygon(m *Manifold, seg *geom.Shape, xfA mathx.Transform, poly *geom.Shape, xfB mathx.Transform) {
	collidePolygons(m, segmentAsPolygon(seg), xfA, poly, xfB)
}
