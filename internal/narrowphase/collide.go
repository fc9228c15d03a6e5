package narrowphase

import (
	"math"

	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
)

const linearSlop = 0.005

// collideCircles produces the single-point manifold of two circles.
func collideCircles(m *Manifold, a *geom.Shape, xfA mathx.Transform, b *geom.Shape, xfB mathx.Transform) {
	m.Count = 0

	pA := xfA.Apply(a.Verts[0])
	pB := xfB.Apply(b.Verts[0])
	radius := a.Radius + b.Radius
	if pB.Sub(pA).LenSqr() > radius*radius {
		return
	}

	m.Type = ManifoldCircles
	m.LocalPoint = a.Verts[0]
	m.LocalNormal = mathx.V(0, 0)
	m.Count = 1
	m.Points[0] = ManifoldPoint{LocalPoint: b.Verts[0]}
}

// collidePolygonCircle clamps the circle center to the polygon's closest
// feature: deepest face when inside, edge vertices otherwise.
func collidePolygonCircle(m *Manifold, poly *geom.Shape, xfA mathx.Transform, circle *geom.Shape, xfB mathx.Transform) {
	m.Count = 0

	cLocal := xfA.ApplyT(xfB.Apply(circle.Verts[0]))
	radius := poly.Radius + circle.Radius

	normalIndex := 0
	separation := -math.MaxFloat64
	for i := range poly.Verts {
		s := poly.Normals[i].Dot(cLocal.Sub(poly.Verts[i]))
		if s > radius {
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	i1 := normalIndex
	i2 := (i1 + 1) % len(poly.Verts)
	v1 := poly.Verts[i1]
	v2 := poly.Verts[i2]

	point := func(normal, local mathx.Vec2) {
		m.Count = 1
		m.Type = ManifoldFaceA
		m.LocalNormal = normal
		m.LocalPoint = local
		m.Points[0] = ManifoldPoint{
			LocalPoint: circle.Verts[0],
			Feature:    Feature{IndexA: uint8(i1), TypeA: featureFace, TypeB: featureVertex},
		}
	}

	// Center inside the polygon: use the deepest face normal.
	if separation < 1e-12 {
		point(poly.Normals[normalIndex], v1.Add(v2).Mul(0.5))
		return
	}

	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))
	switch {
	case u1 <= 0:
		if cLocal.Sub(v1).LenSqr() > radius*radius {
			return
		}
		point(cLocal.Sub(v1).Normalize(), v1)
	case u2 <= 0:
		if cLocal.Sub(v2).LenSqr() > radius*radius {
			return
		}
		point(cLocal.Sub(v2).Normalize(), v2)
	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(poly.Normals[i1]) > radius {
			return
		}
		point(poly.Normals[i1], faceCenter)
	}
}

type clipVertex struct {
	v       mathx.Vec2
	feature Feature
}

// clipSegmentToLine is Sutherland-Hodgman clipping of one edge against a
// half-plane.
func clipSegmentToLine(vOut, vIn []clipVertex, normal mathx.Vec2, offset float64, vertexIndexA int) int {
	numOut := 0
	distance0 := normal.Dot(vIn[0].v) - offset
	distance1 := normal.Dot(vIn[1].v) - offset

	if distance0 <= 0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0 {
		vOut[numOut] = vIn[1]
		numOut++
	}
	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].v = vIn[0].v.Add(vIn[1].v.Sub(vIn[0].v).Mul(interp))
		vOut[numOut].feature = Feature{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].feature.IndexB,
			TypeA:  featureVertex,
			TypeB:  featureFace,
		}
		numOut++
	}
	return numOut
}

// findMaxSeparation searches poly1's face normals for the axis of maximum
// separation against poly2.
func findMaxSeparation(poly1 *geom.Shape, xf1 mathx.Transform, poly2 *geom.Shape, xf2 mathx.Transform) (float64, int) {
	xf := xf2.MulT(xf1)

	bestIndex := 0
	maxSeparation := -math.MaxFloat64
	for i := range poly1.Verts {
		n := xf.Q.Apply(poly1.Normals[i])
		v1 := xf.Apply(poly1.Verts[i])

		si := math.MaxFloat64
		for _, v2 := range poly2.Verts {
			if sij := n.Dot(v2.Sub(v1)); sij < si {
				si = sij
			}
		}
		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return maxSeparation, bestIndex
}

func findIncidentEdge(c []clipVertex, poly1 *geom.Shape, xf1 mathx.Transform, edge1 int, poly2 *geom.Shape, xf2 mathx.Transform) {
	// Reference normal in poly2's frame.
	normal1 := xf2.Q.ApplyT(xf1.Q.Apply(poly1.Normals[edge1]))

	index := 0
	minDot := math.MaxFloat64
	for i := range poly2.Normals {
		if dot := normal1.Dot(poly2.Normals[i]); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (i1 + 1) % len(poly2.Verts)
	c[0] = clipVertex{
		v:       xf2.Apply(poly2.Verts[i1]),
		feature: Feature{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: featureFace, TypeB: featureVertex},
	}
	c[1] = clipVertex{
		v:       xf2.Apply(poly2.Verts[i2]),
		feature: Feature{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: featureFace, TypeB: featureVertex},
	}
}

// collidePolygons is SAT plus reference-face clipping. The normal points
// from A to B.
func collidePolygons(m *Manifold, polyA *geom.Shape, xfA mathx.Transform, polyB *geom.Shape, xfB mathx.Transform) {
	m.Count = 0
	totalRadius := polyA.Radius + polyB.Radius

	separationA, edgeA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}
	separationB, edgeB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	var poly1, poly2 *geom.Shape
	var xf1, xf2 mathx.Transform
	var edge1 int
	flip := false

	if separationB > separationA+0.1*linearSlop {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = ManifoldFaceA
	}

	incidentEdge := make([]clipVertex, 2)
	findIncidentEdge(incidentEdge, poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := (edge1 + 1) % len(poly1.Verts)
	v11 := poly1.Verts[iv1]
	v12 := poly1.Verts[iv2]

	localTangent := v12.Sub(v11).Normalize()
	localNormal := mathx.CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := mathx.CrossVS(tangent, 1.0)

	w11 := xf1.Apply(v11)
	w12 := xf1.Apply(v12)

	frontOffset := normal.Dot(w11)
	sideOffset1 := -tangent.Dot(w11) + totalRadius
	sideOffset2 := tangent.Dot(w12) + totalRadius

	clipPoints1 := make([]clipVertex, 2)
	clipPoints2 := make([]clipVertex, 2)

	if clipSegmentToLine(clipPoints1, incidentEdge, tangent.Mul(-1), sideOffset1, iv1) < 2 {
		return
	}
	if clipSegmentToLine(clipPoints2, clipPoints1, tangent, sideOffset2, iv2) < 2 {
		return
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		if separation := normal.Dot(clipPoints2[i].v) - frontOffset; separation <= totalRadius {
			cp := &m.Points[pointCount]
			cp.LocalPoint = xf2.ApplyT(clipPoints2[i].v)
			cp.NormalImpulse = 0
			cp.TangentImpulse = 0
			cp.Feature = clipPoints2[i].feature
			if flip {
				cp.Feature = Feature{
					IndexA: cp.Feature.IndexB,
					IndexB: cp.Feature.IndexA,
					TypeA:  cp.Feature.TypeB,
					TypeB:  cp.Feature.TypeA,
				}
			}
			pointCount++
		}
	}
	m.Count = pointCount
}
