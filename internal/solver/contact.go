// Package solver implements the per-island sequential-impulse constraint
// solver: a fixed number of velocity-correction iterations followed by a
// fixed number of position-correction iterations over all contact and
// joint constraints in the island.
package solver

import (
	"math"

	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/narrowphase"
)

const (
	linearSlop        = 0.005
	baumgarte         = 0.2
	maxCorrection     = 0.2
	velocityThreshold = 1.0

	maxTranslation = 2.0
	maxRotation    = 0.5 * math.Pi
)

// position and velocity are the island-local solver state. Constraints
// index into these arrays rather than touching bodies directly; results are
// written back once per island solve.
type position struct {
	c mathx.Vec2
	a float64
}

type velocity struct {
	v mathx.Vec2
	w float64
}

type contactPoint struct {
	rA, rB         mathx.Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

// contactConstraint is one manifold prepared for solving, with mass data
// and anchor arms resolved against the island-local body arrays.
type contactConstraint struct {
	indexA, indexB     int
	invMassA, invMassB float64
	invIA, invIB       float64
	friction           float64
	restitution        float64

	normal mathx.Vec2
	points [narrowphase.MaxManifoldPoints]contactPoint
	count  int

	// Local manifold data for the position pass, which must re-derive
	// world geometry as the correction moves bodies.
	mtype                      narrowphase.ManifoldType
	localNormal, localPoint    mathx.Vec2
	localPoints                [narrowphase.MaxManifoldPoints]mathx.Vec2
	radiusA, radiusB           float64
	localCenterA, localCenterB mathx.Vec2

	contact *narrowphase.Contact
}

// initContact builds the constraint from a manifold evaluated at the
// current body states. Accumulators seed from the manifold's persisted
// impulses: the warm-start invariant.
func (s *islandSolver) initContact(cc *contactConstraint) {
	c := cc.contact
	m := &c.Manifold

	xfA := transformOf(s.positions[cc.indexA], cc.localCenterA)
	xfB := transformOf(s.positions[cc.indexB], cc.localCenterB)

	var wm narrowphase.WorldManifold
	wm.Initialize(m, xfA, cc.radiusA, xfB, cc.radiusB)
	cc.normal = wm.Normal

	vA := s.velocities[cc.indexA]
	vB := s.velocities[cc.indexB]
	cA := s.positions[cc.indexA].c
	cB := s.positions[cc.indexB].c

	for j := 0; j < cc.count; j++ {
		mp := &m.Points[j]
		p := &cc.points[j]

		p.normalImpulse = s.dtRatio * mp.NormalImpulse
		p.tangentImpulse = s.dtRatio * mp.TangentImpulse

		p.rA = wm.Points[j].Sub(cA)
		p.rB = wm.Points[j].Sub(cB)

		rnA := mathx.Cross(p.rA, cc.normal)
		rnB := mathx.Cross(p.rB, cc.normal)
		kNormal := cc.invMassA + cc.invMassB + cc.invIA*rnA*rnA + cc.invIB*rnB*rnB
		if kNormal > 0 {
			p.normalMass = 1.0 / kNormal
		}

		tangent := mathx.CrossVS(cc.normal, 1.0)
		rtA := mathx.Cross(p.rA, tangent)
		rtB := mathx.Cross(p.rB, tangent)
		kTangent := cc.invMassA + cc.invMassB + cc.invIA*rtA*rtA + cc.invIB*rtB*rtB
		if kTangent > 0 {
			p.tangentMass = 1.0 / kTangent
		}

		// Restitution bias only above the bounce threshold, so resting
		// contacts do not jitter.
		p.velocityBias = 0
		vRel := cc.normal.Dot(relativeVelocity(vA, vB, p.rA, p.rB))
		if vRel < -velocityThreshold {
			p.velocityBias = -cc.restitution * vRel
		}
	}
}

func relativeVelocity(vA, vB velocity, rA, rB mathx.Vec2) mathx.Vec2 {
	return vB.v.Add(mathx.CrossSV(vB.w, rB)).
		Sub(vA.v).Sub(mathx.CrossSV(vA.w, rA))
}

// warmStartContact applies the carried impulses before iterating. Starting
// from the previous step's solution instead of zero is what lets few
// iterations converge.
func (s *islandSolver) warmStartContact(cc *contactConstraint) {
	vA := &s.velocities[cc.indexA]
	vB := &s.velocities[cc.indexB]
	tangent := mathx.CrossVS(cc.normal, 1.0)

	for j := 0; j < cc.count; j++ {
		p := &cc.points[j]
		imp := cc.normal.Mul(p.normalImpulse).Add(tangent.Mul(p.tangentImpulse))
		vA.w -= cc.invIA * mathx.Cross(p.rA, imp)
		vA.v = vA.v.Sub(imp.Mul(cc.invMassA))
		vB.w += cc.invIB * mathx.Cross(p.rB, imp)
		vB.v = vB.v.Add(imp.Mul(cc.invMassB))
	}
}

// solveContactVelocity is one Gauss-Seidel pass: friction first, clamped to
// the Coulomb cone of the just-updated normal impulse, then the normal
// constraint with accumulated clamping.
func (s *islandSolver) solveContactVelocity(cc *contactConstraint) {
	vA := &s.velocities[cc.indexA]
	vB := &s.velocities[cc.indexB]
	tangent := mathx.CrossVS(cc.normal, 1.0)

	for j := 0; j < cc.count; j++ {
		p := &cc.points[j]

		dv := relativeVelocity(*vA, *vB, p.rA, p.rB)
		vt := dv.Dot(tangent)
		lambda := p.tangentMass * (-vt)

		maxFriction := cc.friction * p.normalImpulse
		newImpulse := mathx.Clamp(p.tangentImpulse+lambda, -maxFriction, maxFriction)
		lambda = newImpulse - p.tangentImpulse
		p.tangentImpulse = newImpulse

		imp := tangent.Mul(lambda)
		vA.v = vA.v.Sub(imp.Mul(cc.invMassA))
		vA.w -= cc.invIA * mathx.Cross(p.rA, imp)
		vB.v = vB.v.Add(imp.Mul(cc.invMassB))
		vB.w += cc.invIB * mathx.Cross(p.rB, imp)
	}

	for j := 0; j < cc.count; j++ {
		p := &cc.points[j]

		dv := relativeVelocity(*vA, *vB, p.rA, p.rB)
		vn := dv.Dot(cc.normal)
		lambda := -p.normalMass * (vn - p.velocityBias)

		newImpulse := math.Max(p.normalImpulse+lambda, 0)
		lambda = newImpulse - p.normalImpulse
		p.normalImpulse = newImpulse

		imp := cc.normal.Mul(lambda)
		vA.v = vA.v.Sub(imp.Mul(cc.invMassA))
		vA.w -= cc.invIA * mathx.Cross(p.rA, imp)
		vB.v = vB.v.Add(imp.Mul(cc.invMassB))
		vB.w += cc.invIB * mathx.Cross(p.rB, imp)
	}
}

// storeContactImpulses writes solved accumulators back into the manifold
// so the next step warm starts from them.
func (cc *contactConstraint) storeContactImpulses() {
	for j := 0; j < cc.count; j++ {
		cc.contact.Manifold.Points[j].NormalImpulse = cc.points[j].normalImpulse
		cc.contact.Manifold.Points[j].TangentImpulse = cc.points[j].tangentImpulse
	}
}

// positionManifold evaluates one manifold point's world normal, point and
// separation at the position-pass transforms.
func (cc *contactConstraint) positionManifold(xfA, xfB mathx.Transform, j int) (normal, point mathx.Vec2, separation float64) {
	switch cc.mtype {
	case narrowphase.ManifoldCircles:
		pointA := xfA.Apply(cc.localPoint)
		pointB := xfB.Apply(cc.localPoints[0])
		normal = mathx.V(1, 0)
		if pointB.Sub(pointA).LenSqr() > 1e-18 {
			normal = pointB.Sub(pointA).Normalize()
		}
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - cc.radiusA - cc.radiusB

	case narrowphase.ManifoldFaceA:
		normal = xfA.Q.Apply(cc.localNormal)
		planePoint := xfA.Apply(cc.localPoint)
		clipPoint := xfB.Apply(cc.localPoints[j])
		separation = clipPoint.Sub(planePoint).Dot(normal) - cc.radiusA - cc.radiusB
		point = clipPoint

	case narrowphase.ManifoldFaceB:
		normal = xfB.Q.Apply(cc.localNormal)
		planePoint := xfB.Apply(cc.localPoint)
		clipPoint := xfA.Apply(cc.localPoints[j])
		separation = clipPoint.Sub(planePoint).Dot(normal) - cc.radiusA - cc.radiusB
		point = clipPoint
		normal = normal.Mul(-1)
	}
	return normal, point, separation
}

// solveContactPosition is one nonlinear Gauss-Seidel position pass,
// pushing bodies apart by a fraction of the remaining penetration.
func (s *islandSolver) solveContactPosition(cc *contactConstraint) {
	pA := &s.positions[cc.indexA]
	pB := &s.positions[cc.indexB]

	for j := 0; j < cc.count; j++ {
		xfA := transformOf(*pA, cc.localCenterA)
		xfB := transformOf(*pB, cc.localCenterB)

		normal, point, separation := cc.positionManifold(xfA, xfB, j)

		rA := point.Sub(pA.c)
		rB := point.Sub(pB.c)

		c := mathx.Clamp(baumgarte*(separation+linearSlop), -maxCorrection, 0)

		rnA := mathx.Cross(rA, normal)
		rnB := mathx.Cross(rB, normal)
		k := cc.invMassA + cc.invMassB + cc.invIA*rnA*rnA + cc.invIB*rnB*rnB

		var impulse float64
		if k > 0 {
			impulse = -c / k
		}
		imp := normal.Mul(impulse)

		pA.c = pA.c.Sub(imp.Mul(cc.invMassA))
		pA.a -= cc.invIA * mathx.Cross(rA, imp)
		pB.c = pB.c.Add(imp.Mul(cc.invMassB))
		pB.a += cc.invIB * mathx.Cross(rB, imp)
	}
}

// transformOf rebuilds a body transform from solver position state.
func transformOf(p position, localCenter mathx.Vec2) mathx.Transform {
	q := mathx.NewRot(p.a)
	return mathx.Transform{Q: q, P: p.c.Sub(q.Apply(localCenter))}
}
