package solver

import (
	"math"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/mathx"
)

// jointConstraint prepares one joint for island-local solving. The joint's
// own accumulators persist across steps and seed the warm start.
type jointConstraint struct {
	joint *body.Joint

	indexA, indexB             int
	invMassA, invMassB         float64
	invIA, invIB               float64
	localCenterA, localCenterB mathx.Vec2

	rA, rB mathx.Vec2
	k      mathx.Mat22

	// Prismatic frame.
	axis, perp mathx.Vec2
	s1, s2     float64
	a1, a2     float64
	perpMass   float64
	axialMass  float64
	angularMass float64

	dt float64
}

func (s *islandSolver) initJoint(jc *jointConstraint) {
	j := jc.joint
	pA := s.positions[jc.indexA]
	pB := s.positions[jc.indexB]
	qA := mathx.NewRot(pA.a)
	qB := mathx.NewRot(pB.a)

	jc.rA = qA.Apply(j.LocalAnchorA.Sub(jc.localCenterA))
	jc.rB = qB.Apply(j.LocalAnchorB.Sub(jc.localCenterB))

	mA, mB := jc.invMassA, jc.invMassB
	iA, iB := jc.invIA, jc.invIB

	// Point-to-point effective mass, shared by ball/fixed/revolute.
	jc.k = mathx.Mat22{
		Ex: mathx.V(
			mA+mB+iA*jc.rA.Y()*jc.rA.Y()+iB*jc.rB.Y()*jc.rB.Y(),
			-iA*jc.rA.X()*jc.rA.Y()-iB*jc.rB.X()*jc.rB.Y(),
		),
		Ey: mathx.V(
			-iA*jc.rA.X()*jc.rA.Y()-iB*jc.rB.X()*jc.rB.Y(),
			mA+mB+iA*jc.rA.X()*jc.rA.X()+iB*jc.rB.X()*jc.rB.X(),
		),
	}

	if iA+iB > 0 {
		jc.angularMass = 1.0 / (iA + iB)
	}

	if j.Type == body.JointPrismatic {
		d := pB.c.Add(jc.rB).Sub(pA.c).Sub(jc.rA)
		jc.axis = qA.Apply(j.LocalAxisA)
		jc.perp = mathx.Perp(jc.axis)

		jc.s1 = mathx.Cross(d.Add(jc.rA), jc.perp)
		jc.s2 = mathx.Cross(jc.rB, jc.perp)
		jc.a1 = mathx.Cross(d.Add(jc.rA), jc.axis)
		jc.a2 = mathx.Cross(jc.rB, jc.axis)

		if k := mA + mB + iA*jc.s1*jc.s1 + iB*jc.s2*jc.s2; k > 0 {
			jc.perpMass = 1.0 / k
		}
		if k := mA + mB + iA*jc.a1*jc.a1 + iB*jc.a2*jc.a2; k > 0 {
			jc.axialMass = 1.0 / k
		}
	}
}

func (s *islandSolver) warmStartJoint(jc *jointConstraint) {
	j := jc.joint
	vA := &s.velocities[jc.indexA]
	vB := &s.velocities[jc.indexB]

	switch j.Type {
	case body.JointBall, body.JointFixed, body.JointRevolute:
		imp := j.Impulse
		axial := j.MotorImpulse + j.AxialImpulse + j.AngleImpulse
		vA.v = vA.v.Sub(imp.Mul(jc.invMassA))
		vA.w -= jc.invIA * (mathx.Cross(jc.rA, imp) + axial)
		vB.v = vB.v.Add(imp.Mul(jc.invMassB))
		vB.w += jc.invIB * (mathx.Cross(jc.rB, imp) + axial)

	case body.JointPrismatic:
		axial := j.MotorImpulse + j.AxialImpulse
		imp := jc.perp.Mul(j.Impulse.X()).Add(jc.axis.Mul(axial))
		lA := j.Impulse.X()*jc.s1 + j.Impulse.Y() + axial*jc.a1
		lB := j.Impulse.X()*jc.s2 + j.Impulse.Y() + axial*jc.a2
		vA.v = vA.v.Sub(imp.Mul(jc.invMassA))
		vA.w -= jc.invIA * lA
		vB.v = vB.v.Add(imp.Mul(jc.invMassB))
		vB.w += jc.invIB * lB
	}
}

func (s *islandSolver) solveJointVelocity(jc *jointConstraint) {
	j := jc.joint
	vA := &s.velocities[jc.indexA]
	vB := &s.velocities[jc.indexB]

	switch j.Type {
	case body.JointBall:
		s.solvePointToPoint(jc, vA, vB)

	case body.JointFixed:
		// Angle lock first; it feeds cleaner relative velocity into the
		// point constraint.
		cdot := vB.w - vA.w
		impulse := -jc.angularMass * cdot
		j.AngleImpulse += impulse
		vA.w -= jc.invIA * impulse
		vB.w += jc.invIB * impulse
		s.solvePointToPoint(jc, vA, vB)

	case body.JointRevolute:
		if j.EnableMotor {
			cdot := vB.w - vA.w - j.MotorSpeed
			impulse := -jc.angularMass * cdot
			old := j.MotorImpulse
			maxImpulse := j.MaxMotorForce * jc.dt
			j.MotorImpulse = mathx.Clamp(old+impulse, -maxImpulse, maxImpulse)
			impulse = j.MotorImpulse - old
			vA.w -= jc.invIA * impulse
			vB.w += jc.invIB * impulse
		}
		if j.EnableLimit {
			angle := s.positions[jc.indexB].a - s.positions[jc.indexA].a - j.ReferenceAngle
			if angle <= j.LowerLimit || angle >= j.UpperLimit {
				c := angle - j.LowerLimit
				if angle >= j.UpperLimit {
					c = angle - j.UpperLimit
				}
				cdot := vB.w - vA.w
				impulse := -jc.angularMass * (cdot + c/jc.dt*baumgarte)
				old := j.AxialImpulse
				if angle <= j.LowerLimit {
					j.AxialImpulse = math.Max(old+impulse, 0)
				} else {
					j.AxialImpulse = math.Min(old+impulse, 0)
				}
				impulse = j.AxialImpulse - old
				vA.w -= jc.invIA * impulse
				vB.w += jc.invIB * impulse
			} else {
				j.AxialImpulse = 0
			}
		}
		s.solvePointToPoint(jc, vA, vB)

	case body.JointPrismatic:
		if j.EnableMotor {
			cdot := jc.axis.Dot(vB.v.Sub(vA.v)) + jc.a2*vB.w - jc.a1*vA.w
			impulse := -jc.axialMass * (cdot - j.MotorSpeed)
			old := j.MotorImpulse
			maxImpulse := j.MaxMotorForce * jc.dt
			j.MotorImpulse = mathx.Clamp(old+impulse, -maxImpulse, maxImpulse)
			impulse = j.MotorImpulse - old
			s.applyAxial(jc, vA, vB, impulse)
		}
		if j.EnableLimit {
			d := s.positions[jc.indexB].c.Add(jc.rB).Sub(s.positions[jc.indexA].c).Sub(jc.rA)
			translation := jc.axis.Dot(d)
			if translation <= j.LowerLimit || translation >= j.UpperLimit {
				c := 0.0
				if translation <= j.LowerLimit {
					c = translation - j.LowerLimit
				} else {
					c = translation - j.UpperLimit
				}
				cdot := jc.axis.Dot(vB.v.Sub(vA.v)) + jc.a2*vB.w - jc.a1*vA.w
				impulse := -jc.axialMass * (cdot + c/jc.dt*baumgarte)
				old := j.AxialImpulse
				if translation <= j.LowerLimit {
					j.AxialImpulse = math.Max(old+impulse, 0)
				} else {
					j.AxialImpulse = math.Min(old+impulse, 0)
				}
				impulse = j.AxialImpulse - old
				s.applyAxial(jc, vA, vB, impulse)
			} else {
				j.AxialImpulse = 0
			}
		}

		// Perpendicular and angular lock.
		cdotPerp := jc.perp.Dot(vB.v.Sub(vA.v)) + jc.s2*vB.w - jc.s1*vA.w
		impPerp := -jc.perpMass * cdotPerp
		cdotAng := vB.w - vA.w
		impAng := -jc.angularMass * cdotAng
		j.Impulse = j.Impulse.Add(mathx.V(impPerp, impAng))

		imp := jc.perp.Mul(impPerp)
		vA.v = vA.v.Sub(imp.Mul(jc.invMassA))
		vA.w -= jc.invIA * (impPerp*jc.s1 + impAng)
		vB.v = vB.v.Add(imp.Mul(jc.invMassB))
		vB.w += jc.invIB * (impPerp*jc.s2 + impAng)
	}
}

func (s *islandSolver) applyAxial(jc *jointConstraint, vA, vB *velocity, impulse float64) {
	imp := jc.axis.Mul(impulse)
	vA.v = vA.v.Sub(imp.Mul(jc.invMassA))
	vA.w -= jc.invIA * impulse * jc.a1
	vB.v = vB.v.Add(imp.Mul(jc.invMassB))
	vB.w += jc.invIB * impulse * jc.a2
}

func (s *islandSolver) solvePointToPoint(jc *jointConstraint, vA, vB *velocity) {
	j := jc.joint
	cdot := vB.v.Add(mathx.CrossSV(vB.w, jc.rB)).
		Sub(vA.v).Sub(mathx.CrossSV(vA.w, jc.rA))
	impulse := jc.k.Solve(cdot.Mul(-1))
	j.Impulse = j.Impulse.Add(impulse)

	vA.v = vA.v.Sub(impulse.Mul(jc.invMassA))
	vA.w -= jc.invIA * mathx.Cross(jc.rA, impulse)
	vB.v = vB.v.Add(impulse.Mul(jc.invMassB))
	vB.w += jc.invIB * mathx.Cross(jc.rB, impulse)
}

// solveJointPosition removes residual positional drift after integration.
func (s *islandSolver) solveJointPosition(jc *jointConstraint) {
	j := jc.joint
	pA := &s.positions[jc.indexA]
	pB := &s.positions[jc.indexB]

	qA := mathx.NewRot(pA.a)
	qB := mathx.NewRot(pB.a)
	rA := qA.Apply(j.LocalAnchorA.Sub(jc.localCenterA))
	rB := qB.Apply(j.LocalAnchorB.Sub(jc.localCenterB))

	switch j.Type {
	case body.JointFixed:
		c := pB.a - pA.a - j.ReferenceAngle
		impulse := -jc.angularMass * c
		pA.a -= jc.invIA * impulse
		pB.a += jc.invIB * impulse
		s.solvePointToPointPosition(jc, pA, pB, rA, rB)

	case body.JointBall, body.JointRevolute:
		if j.Type == body.JointRevolute && j.EnableLimit {
			angle := pB.a - pA.a - j.ReferenceAngle
			c := 0.0
			if angle < j.LowerLimit {
				c = angle - j.LowerLimit
			} else if angle > j.UpperLimit {
				c = angle - j.UpperLimit
			}
			if c != 0 {
				impulse := -jc.angularMass * mathx.Clamp(c, -maxCorrection, maxCorrection)
				pA.a -= jc.invIA * impulse
				pB.a += jc.invIB * impulse
			}
		}
		s.solvePointToPointPosition(jc, pA, pB, rA, rB)

	case body.JointPrismatic:
		axis := qA.Apply(j.LocalAxisA)
		perp := mathx.Perp(axis)
		d := pB.c.Add(rB).Sub(pA.c).Sub(rA)

		cPerp := perp.Dot(d)
		cAng := pB.a - pA.a - j.ReferenceAngle

		impPerp := 0.0
		if jc.perpMass > 0 {
			impPerp = -jc.perpMass * cPerp
		}
		impAng := -jc.angularMass * cAng

		imp := perp.Mul(impPerp)
		pA.c = pA.c.Sub(imp.Mul(jc.invMassA))
		pA.a -= jc.invIA * (impPerp*jc.s1 + impAng)
		pB.c = pB.c.Add(imp.Mul(jc.invMassB))
		pB.a += jc.invIB * (impPerp*jc.s2 + impAng)

		if j.EnableLimit {
			translation := axis.Dot(d)
			c := 0.0
			if translation < j.LowerLimit {
				c = mathx.Clamp(translation-j.LowerLimit, -maxCorrection, 0)
			} else if translation > j.UpperLimit {
				c = mathx.Clamp(translation-j.UpperLimit, 0, maxCorrection)
			}
			if c != 0 && jc.axialMass > 0 {
				impulse := -jc.axialMass * c
				axImp := axis.Mul(impulse)
				pA.c = pA.c.Sub(axImp.Mul(jc.invMassA))
				pA.a -= jc.invIA * impulse * jc.a1
				pB.c = pB.c.Add(axImp.Mul(jc.invMassB))
				pB.a += jc.invIB * impulse * jc.a2
			}
		}
	}
}

func (s *islandSolver) solvePointToPointPosition(jc *jointConstraint, pA, pB *position, rA, rB mathx.Vec2) {
	c := pB.c.Add(rB).Sub(pA.c).Sub(rA)

	mA, mB := jc.invMassA, jc.invMassB
	iA, iB := jc.invIA, jc.invIB
	k := mathx.Mat22{
		Ex: mathx.V(
			mA+mB+iA*rA.Y()*rA.Y()+iB*rB.Y()*rB.Y(),
			-iA*rA.X()*rA.Y()-iB*rB.X()*rB.Y(),
		),
		Ey: mathx.V(
			-iA*rA.X()*rA.Y()-iB*rB.X()*rB.Y(),
			mA+mB+iA*rA.X()*rA.X()+iB*rB.X()*rB.X(),
		),
	}
	impulse := k.Solve(c).Mul(-1)

	pA.c = pA.c.Sub(impulse.Mul(mA))
	pA.a -= iA * mathx.Cross(rA, impulse)
	pB.c = pB.c.Add(impulse.Mul(mB))
	pB.a += iB * mathx.Cross(rB, impulse)
}
