// Package body defines rigid bodies, colliders and joints, and the
// per-body semi-implicit Euler integration they undergo each step.
package body

import (
	"math"

	"github.com/san-kum/rigid2d/internal/mathx"
)

// Kind classifies how a body participates in simulation.
type Kind uint8

const (
	// Dynamic bodies have mass and respond to forces and impulses.
	Dynamic Kind = iota
	// Static bodies never move and have infinite mass.
	Static
	// Kinematic bodies move under user-set velocity, unaffected by forces.
	Kinematic
)

func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	}
	return "unknown"
}

// Body is a rigid body. Position state lives in Xf (current transform) and
// Sweep (motion over the current step, consumed by time-of-impact queries).
type Body struct {
	Kind Kind

	Xf    mathx.Transform
	Sweep mathx.Sweep

	LinearVelocity  mathx.Vec2
	AngularVelocity float64

	Force  mathx.Vec2
	Torque float64

	Mass, InvMass float64
	I, InvI       float64 // rotational inertia about center of mass

	LinearDamping  float64
	AngularDamping float64
	GravityScale   float64

	// Bullet forces continuous collision handling regardless of the
	// swept-displacement heuristic.
	Bullet bool

	Awake      bool
	AllowSleep bool
	SleepTime  float64

	// Energy is the smoothed kinetic energy estimate feeding the sleep
	// policy.
	Energy float64

	// prev holds the last state known to be finite, restored when
	// integration produces NaN/Inf.
	prev savedState
}

type savedState struct {
	xf    mathx.Transform
	sweep mathx.Sweep
	v     mathx.Vec2
	w     float64
	valid bool
}

// New returns a body of the given kind at the given position and angle.
func New(kind Kind, position mathx.Vec2, angle float64) *Body {
	b := &Body{
		Kind:         kind,
		GravityScale: 1.0,
		Awake:        true,
		AllowSleep:   true,
	}
	b.Xf = mathx.Transform{P: position, Q: mathx.NewRot(angle)}
	b.Sweep.C0 = position
	b.Sweep.C = position
	b.Sweep.A0 = angle
	b.Sweep.A = angle
	return b
}

// SetMassData installs mass properties computed from the body's colliders.
// Static and kinematic bodies always keep infinite mass.
func (b *Body) SetMassData(mass, inertia float64, center mathx.Vec2) {
	if b.Kind != Dynamic {
		b.Mass, b.InvMass, b.I, b.InvI = 0, 0, 0, 0
		b.Sweep.LocalCenter = mathx.V(0, 0)
		b.Sweep.C0 = b.Xf.P
		b.Sweep.C = b.Xf.P
		return
	}
	if mass <= 0 {
		mass = 1.0
	}
	b.Mass = mass
	b.InvMass = 1.0 / mass

	if inertia > 0 {
		// Shift to the center of mass.
		b.I = inertia - mass*center.LenSqr()
		b.InvI = 1.0 / b.I
	} else {
		b.I, b.InvI = 0, 0
	}

	oldCenter := b.Sweep.C
	b.Sweep.LocalCenter = center
	b.Sweep.C = b.Xf.Apply(center)
	b.Sweep.C0 = b.Sweep.C

	// Velocity of the new center under the old motion.
	b.LinearVelocity = b.LinearVelocity.Add(mathx.CrossSV(b.AngularVelocity, b.Sweep.C.Sub(oldCenter)))
}

// SetTransform teleports the body, resetting its sweep.
func (b *Body) SetTransform(position mathx.Vec2, angle float64) {
	b.Xf = mathx.Transform{P: position, Q: mathx.NewRot(angle)}
	b.Sweep.C = b.Xf.Apply(b.Sweep.LocalCenter)
	b.Sweep.A = angle
	b.Sweep.C0 = b.Sweep.C
	b.Sweep.A0 = angle
}

// WorldCenter returns the world position of the center of mass.
func (b *Body) WorldCenter() mathx.Vec2 { return b.Sweep.C }

// Position returns the body origin position.
func (b *Body) Position() mathx.Vec2 { return b.Xf.P }

// Angle returns the body angle in radians.
func (b *Body) Angle() float64 { return b.Sweep.A }

// ApplyForce accumulates a force at the center of mass and wakes the body.
func (b *Body) ApplyForce(f mathx.Vec2) {
	if b.Kind != Dynamic {
		return
	}
	b.WakeUp()
	b.Force = b.Force.Add(f)
}

// ApplyForceAt accumulates a force at a world point, inducing torque.
func (b *Body) ApplyForceAt(f, point mathx.Vec2) {
	if b.Kind != Dynamic {
		return
	}
	b.WakeUp()
	b.Force = b.Force.Add(f)
	b.Torque += mathx.Cross(point.Sub(b.Sweep.C), f)
}

// ApplyTorque accumulates a torque and wakes the body.
func (b *Body) ApplyTorque(t float64) {
	if b.Kind != Dynamic {
		return
	}
	b.WakeUp()
	b.Torque += t
}

// ApplyLinearImpulse changes velocity immediately and wakes the body.
func (b *Body) ApplyLinearImpulse(imp, point mathx.Vec2) {
	if b.Kind != Dynamic {
		return
	}
	b.WakeUp()
	b.LinearVelocity = b.LinearVelocity.Add(imp.Mul(b.InvMass))
	b.AngularVelocity += b.InvI * mathx.Cross(point.Sub(b.Sweep.C), imp)
}

// WakeUp clears sleep state.
func (b *Body) WakeUp() {
	b.Awake = true
	b.SleepTime = 0
}

// Sleep puts the body to rest, zeroing velocities and forces.
func (b *Body) Sleep() {
	b.Awake = false
	b.SleepTime = 0
	b.LinearVelocity = mathx.V(0, 0)
	b.AngularVelocity = 0
	b.Force = mathx.V(0, 0)
	b.Torque = 0
}

// IntegrateVelocities applies gravity, accumulated forces and damping.
// Velocities integrate before positions; positions later use the
// solver-corrected velocities, which is what keeps stacked contacts from
// re-penetrating.
func (b *Body) IntegrateVelocities(dt float64, gravity mathx.Vec2) {
	if b.Kind != Dynamic || !b.Awake {
		return
	}
	v := b.LinearVelocity.
		Add(gravity.Mul(b.GravityScale * dt)).
		Add(b.Force.Mul(b.InvMass * dt))
	w := b.AngularVelocity + dt*b.InvI*b.Torque

	// Padé approximation of exponential decay, stable for any dt.
	v = v.Mul(1.0 / (1.0 + dt*b.LinearDamping))
	w *= 1.0 / (1.0 + dt*b.AngularDamping)

	b.LinearVelocity = v
	b.AngularVelocity = w
}

// IntegratePositions advances the sweep end state using current (post-solve)
// velocities. The orientation advances by an incremental rotation, keeping
// it exactly unit-norm since it is stored as an angle.
func (b *Body) IntegratePositions(dt float64) {
	if b.Kind == Static || !b.Awake {
		return
	}
	b.Sweep.C0 = b.Sweep.C
	b.Sweep.A0 = b.Sweep.A
	b.Sweep.C = b.Sweep.C.Add(b.LinearVelocity.Mul(dt))
	b.Sweep.A += b.AngularVelocity * dt
	b.SynchronizeTransform()
}

// SynchronizeTransform rebuilds Xf from the sweep end state.
func (b *Body) SynchronizeTransform() {
	b.Xf.Q = mathx.NewRot(b.Sweep.A)
	b.Xf.P = b.Sweep.C.Sub(b.Xf.Q.Apply(b.Sweep.LocalCenter))
}

// ClearForces zeroes accumulated force and torque after a step.
func (b *Body) ClearForces() {
	b.Force = mathx.V(0, 0)
	b.Torque = 0
}

// KineticEnergy returns the instantaneous kinetic energy.
func (b *Body) KineticEnergy() float64 {
	return 0.5 * (b.Mass*b.LinearVelocity.LenSqr() + b.I*b.AngularVelocity*b.AngularVelocity)
}

// IsFinite reports whether the body state holds only finite numbers.
func (b *Body) IsFinite() bool {
	return mathx.IsFinite(b.Sweep.C) && mathx.IsFinite(b.LinearVelocity) &&
		!math.IsNaN(b.Sweep.A) && !math.IsInf(b.Sweep.A, 0) &&
		!math.IsNaN(b.AngularVelocity) && !math.IsInf(b.AngularVelocity, 0)
}

// SaveValidState records the current state as the revert target for
// numerical divergence.
func (b *Body) SaveValidState() {
	b.prev = savedState{xf: b.Xf, sweep: b.Sweep, v: b.LinearVelocity, w: b.AngularVelocity, valid: true}
}

// RevertToValidState restores the last saved state and puts the body to
// sleep, isolating the corruption from the rest of its island. It reports
// whether a saved state existed.
func (b *Body) RevertToValidState() bool {
	if !b.prev.valid {
		return false
	}
	b.Xf = b.prev.xf
	b.Sweep = b.prev.sweep
	b.LinearVelocity = b.prev.v
	b.AngularVelocity = b.prev.w
	b.Sleep()
	return true
}
