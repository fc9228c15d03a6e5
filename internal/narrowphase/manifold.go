// Package narrowphase generates contact manifolds for candidate collider
// pairs and persists them across steps so that impulse accumulators can be
// carried forward (warm starting).
package narrowphase

import (
	"github.com/san-kum/rigid2d/internal/mathx"
)

// MaxManifoldPoints is the 2D contact point cap per pair.
const MaxManifoldPoints = 2

// Feature identifies the shape features (vertex or face index on each side)
// that produced a contact point. Equal features across steps mean the same
// physical contact, which is what lets accumulators persist.
type Feature struct {
	IndexA, IndexB uint8
	TypeA, TypeB   uint8
}

const (
	featureVertex uint8 = 0
	featureFace   uint8 = 1
)

// Key packs the feature into a comparable 32-bit id.
func (f Feature) Key() uint32 {
	return uint32(f.IndexA) | uint32(f.IndexB)<<8 | uint32(f.TypeA)<<16 | uint32(f.TypeB)<<24
}

// ManifoldType selects how the manifold's local data maps to world space.
type ManifoldType uint8

const (
	// ManifoldCircles: LocalPoint is the local center of shape A's contact
	// circle, each point's LocalPoint the center on shape B.
	ManifoldCircles ManifoldType = iota
	// ManifoldFaceA: LocalNormal/LocalPoint describe a face on shape A,
	// point LocalPoints are clip points on shape B.
	ManifoldFaceA
	// ManifoldFaceB: as FaceA with roles reversed.
	ManifoldFaceB
)

// ManifoldPoint is one persisted contact point. Impulses accumulate across
// solver iterations and survive to the next step via feature matching.
type ManifoldPoint struct {
	LocalPoint     mathx.Vec2
	NormalImpulse  float64
	TangentImpulse float64
	Feature        Feature
}

// Manifold describes the overlap of one collider pair in local coordinates,
// so that position correction can re-derive world geometry as bodies move.
type Manifold struct {
	Type        ManifoldType
	LocalNormal mathx.Vec2
	LocalPoint  mathx.Vec2
	Points      [MaxManifoldPoints]ManifoldPoint
	Count       int
}

// CarryImpulses transfers accumulators from the previous step's manifold to
// the freshly generated one. Points match primarily by feature id; a point
// with no id match falls back to the nearest previous point within tol
// (rolling contacts churn ids while the physical contact persists).
func (m *Manifold) CarryImpulses(prev *Manifold, tol float64) {
	if prev == nil || prev.Count == 0 {
		return
	}
	tol2 := tol * tol
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		matched := false
		for j := 0; j < prev.Count; j++ {
			if prev.Points[j].Feature.Key() == p.Feature.Key() {
				p.NormalImpulse = prev.Points[j].NormalImpulse
				p.TangentImpulse = prev.Points[j].TangentImpulse
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		bestDist := tol2
		best := -1
		for j := 0; j < prev.Count; j++ {
			if d := prev.Points[j].LocalPoint.Sub(p.LocalPoint).LenSqr(); d < bestDist {
				bestDist = d
				best = j
			}
		}
		if best >= 0 {
			p.NormalImpulse = prev.Points[best].NormalImpulse
			p.TangentImpulse = prev.Points[best].TangentImpulse
		}
	}
}

// WorldManifold is the manifold evaluated at concrete body transforms.
type WorldManifold struct {
	Normal      mathx.Vec2
	Points      [MaxManifoldPoints]mathx.Vec2
	Separations [MaxManifoldPoints]float64
}

// Initialize computes world-space contact geometry from the manifold's local
// representation and the two shapes' transforms and radii.
func (wm *WorldManifold) Initialize(m *Manifold, xfA mathx.Transform, radiusA float64, xfB mathx.Transform, radiusB float64) {
	if m.Count == 0 {
		return
	}
	switch m.Type {
	case ManifoldCircles:
		wm.Normal = mathx.V(1, 0)
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if pointB.Sub(pointA).LenSqr() > 1e-12 {
			wm.Normal = pointB.Sub(pointA).Normalize()
		}
		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.Apply(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)
		for i := 0; i < m.Count; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.Apply(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)
		for i := 0; i < m.Count; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}
		// Keep the convention: normal points from A to B.
		wm.Normal = wm.Normal.Mul(-1)
	}
}
