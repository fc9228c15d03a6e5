package body

import (
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
)

// JointType enumerates the supported joint constraints.
type JointType uint8

const (
	// JointBall constrains two local anchor points to coincide.
	JointBall JointType = iota
	// JointFixed welds two bodies: anchors coincide and relative angle is
	// locked.
	JointFixed
	// JointRevolute is a ball joint with optional angular limit and motor.
	JointRevolute
	// JointPrismatic allows translation along one axis only, with optional
	// limit and motor.
	JointPrismatic
)

func (t JointType) String() string {
	switch t {
	case JointBall:
		return "ball"
	case JointFixed:
		return "fixed"
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	}
	return "unknown"
}

// Joint couples two bodies. A joint always induces an interaction-graph
// edge, so jointed bodies share an island even without contact.
//
// The impulse accumulators persist across steps: they seed the solver's
// warm start and are part of the snapshot image.
type Joint struct {
	Type JointType

	BodyA, BodyB store.Handle

	LocalAnchorA mathx.Vec2
	LocalAnchorB mathx.Vec2

	// ReferenceAngle is angleB - angleA at rest (fixed, revolute,
	// prismatic).
	ReferenceAngle float64

	// LocalAxisA is the translation axis in body A's frame (prismatic).
	LocalAxisA mathx.Vec2

	EnableLimit  bool
	LowerLimit   float64
	UpperLimit   float64
	EnableMotor  bool
	MotorSpeed   float64
	MaxMotorForce float64

	// Warm-start accumulators.
	Impulse      mathx.Vec2 // point-to-point (and prismatic perp/angle pair)
	AxialImpulse float64    // limit impulse (revolute/prismatic)
	MotorImpulse float64
	AngleImpulse float64 // angle lock (fixed)
}

// NewJoint builds a joint of the given type between two bodies with anchors
// given in each body's local frame.
func NewJoint(t JointType, bodyA, bodyB store.Handle, anchorA, anchorB mathx.Vec2) *Joint {
	return &Joint{
		Type:         t,
		BodyA:        bodyA,
		BodyB:        bodyB,
		LocalAnchorA: anchorA,
		LocalAnchorB: anchorB,
		LocalAxisA:   mathx.V(1, 0),
	}
}
