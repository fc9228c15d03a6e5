package solver

import (
	"math"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/island"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/narrowphase"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

// Config bounds the solver's per-step cost. Iteration counts are fixed, not
// residual-driven, so the cost of a step is predictable.
type Config struct {
	VelocityIterations int
	PositionIterations int

	Dt float64
	// DtRatio scales warm-start impulses when dt changes between steps.
	DtRatio float64

	WarmStarting bool
}

// islandSolver holds the island-local state for one solve. Islands share no
// bodies, so concurrent islandSolvers never alias.
type islandSolver struct {
	positions  []position
	velocities []velocity
	bodies     []*body.Body
	writeback  []bool // anchors are read-only

	contacts []contactConstraint
	joints   []jointConstraint

	dt      float64
	dtRatio float64
}

// SolveIsland runs the full velocity/position solve for one island and
// writes results back into the bodies.
func SolveIsland(w *world.World, set *narrowphase.Set, isl *island.Island, cfg Config) {
	s := &islandSolver{dt: cfg.Dt, dtRatio: cfg.DtRatio}

	index := make(map[store.Handle]int)
	add := func(h store.Handle) int {
		if i, ok := index[h]; ok {
			return i
		}
		bptr, err := w.Bodies.Get(h)
		if err != nil {
			return -1
		}
		bd := *bptr
		i := len(s.bodies)
		index[h] = i
		s.bodies = append(s.bodies, bd)
		s.positions = append(s.positions, position{c: bd.Sweep.C, a: bd.Sweep.A})
		s.velocities = append(s.velocities, velocity{v: bd.LinearVelocity, w: bd.AngularVelocity})
		s.writeback = append(s.writeback, bd.Kind == body.Dynamic)
		return i
	}

	for _, h := range isl.Bodies {
		add(h)
	}

	for _, pair := range isl.Contacts {
		c, ok := set.Lookup(pair)
		if !ok || !c.Touching || c.Manifold.Count == 0 {
			continue
		}
		ia := add(c.BodyA)
		ib := add(c.BodyB)
		if ia < 0 || ib < 0 {
			continue
		}
		colA, errA := w.Colliders.Get(c.ColliderA)
		colB, errB := w.Colliders.Get(c.ColliderB)
		if errA != nil || errB != nil {
			continue
		}
		bdA := s.bodies[ia]
		bdB := s.bodies[ib]

		cc := contactConstraint{
			indexA: ia, indexB: ib,
			invMassA: bdA.InvMass, invMassB: bdB.InvMass,
			invIA: bdA.InvI, invIB: bdB.InvI,
			friction:     c.Friction,
			restitution:  c.Restitution,
			count:        c.Manifold.Count,
			mtype:        c.Manifold.Type,
			localNormal:  c.Manifold.LocalNormal,
			localPoint:   c.Manifold.LocalPoint,
			radiusA:      (*colA).Shape.Radius,
			radiusB:      (*colB).Shape.Radius,
			localCenterA: bdA.Sweep.LocalCenter,
			localCenterB: bdB.Sweep.LocalCenter,
			contact:      c,
		}
		for j := 0; j < cc.count; j++ {
			cc.localPoints[j] = c.Manifold.Points[j].LocalPoint
		}
		s.contacts = append(s.contacts, cc)
	}

	for _, jh := range isl.Joints {
		jptr, err := w.Joints.Get(jh)
		if err != nil {
			continue
		}
		j := *jptr
		ia := add(j.BodyA)
		ib := add(j.BodyB)
		if ia < 0 || ib < 0 {
			continue
		}
		bdA := s.bodies[ia]
		bdB := s.bodies[ib]
		s.joints = append(s.joints, jointConstraint{
			joint:  j,
			indexA: ia, indexB: ib,
			invMassA: bdA.InvMass, invMassB: bdB.InvMass,
			invIA: bdA.InvI, invIB: bdB.InvI,
			localCenterA: bdA.Sweep.LocalCenter,
			localCenterB: bdB.Sweep.LocalCenter,
			dt:           cfg.Dt,
		})
	}

	for i := range s.contacts {
		s.initContact(&s.contacts[i])
	}
	for i := range s.joints {
		s.initJoint(&s.joints[i])
	}

	if cfg.WarmStarting {
		for i := range s.joints {
			s.warmStartJoint(&s.joints[i])
		}
		for i := range s.contacts {
			s.warmStartContact(&s.contacts[i])
		}
	} else {
		for i := range s.contacts {
			cc := &s.contacts[i]
			for j := 0; j < cc.count; j++ {
				cc.points[j].normalImpulse = 0
				cc.points[j].tangentImpulse = 0
			}
		}
		for i := range s.joints {
			j := s.joints[i].joint
			j.Impulse = mathx.V(0, 0)
			j.AxialImpulse = 0
			j.MotorImpulse = 0
			j.AngleImpulse = 0
		}
	}

	for iter := 0; iter < cfg.VelocityIterations; iter++ {
		for i := range s.joints {
			s.solveJointVelocity(&s.joints[i])
		}
		for i := range s.contacts {
			s.solveContactVelocity(&s.contacts[i])
		}
	}

	for i := range s.contacts {
		s.contacts[i].storeContactImpulses()
	}

	s.integratePositions(cfg.Dt)

	for iter := 0; iter < cfg.PositionIterations; iter++ {
		for i := range s.contacts {
			s.solveContactPosition(&s.contacts[i])
		}
		for i := range s.joints {
			s.solveJointPosition(&s.joints[i])
		}
	}

	s.writeBack()
}

// integratePositions advances the island's positions using the post-solve
// velocities, with translation/rotation clamping against blow-ups.
func (s *islandSolver) integratePositions(dt float64) {
	for i := range s.positions {
		if !s.writeback[i] {
			continue
		}
		v := s.velocities[i].v
		w := s.velocities[i].w

		if translation := v.Mul(dt); translation.LenSqr() > maxTranslation*maxTranslation {
			ratio := maxTranslation / translation.Len()
			v = v.Mul(ratio)
		}
		if rotation := w * dt; rotation*rotation > maxRotation*maxRotation {
			ratio := maxRotation / math.Abs(rotation)
			w *= ratio
		}
		s.velocities[i].v = v
		s.velocities[i].w = w

		s.positions[i].c = s.positions[i].c.Add(v.Mul(dt))
		s.positions[i].a += w * dt
	}
}

func (s *islandSolver) writeBack() {
	for i, bd := range s.bodies {
		if !s.writeback[i] {
			continue
		}
		bd.Sweep.C0 = bd.Sweep.C
		bd.Sweep.A0 = bd.Sweep.A
		bd.Sweep.C = s.positions[i].c
		bd.Sweep.A = s.positions[i].a
		bd.LinearVelocity = s.velocities[i].v
		bd.AngularVelocity = s.velocities[i].w
		bd.SynchronizeTransform()
	}
}
