package body

import (
	"math"

	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/store"
)

// Filter controls which collider pairs may collide, with box2d-style
// category/mask bits and a group index override.
type Filter struct {
	Category uint16
	Mask     uint16
	Group    int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{Category: 0x0001, Mask: 0xFFFF}
}

// ShouldCollide applies group override first, then category/mask matching.
func (f Filter) ShouldCollide(other Filter) bool {
	if f.Group == other.Group && f.Group != 0 {
		return f.Group > 0
	}
	return f.Mask&other.Category != 0 && other.Mask&f.Category != 0
}

// Collider attaches a shape and material to exactly one owning body.
type Collider struct {
	Shape       *geom.Shape
	Density     float64
	Friction    float64
	Restitution float64
	Filter      Filter

	// Body is the owning body's handle.
	Body store.Handle

	// Proxy is the collider's broad-phase leaf, -1 while unregistered.
	Proxy int
}

// NewCollider returns a collider with default material.
func NewCollider(shape *geom.Shape) *Collider {
	return &Collider{
		Shape:    shape,
		Density:  1.0,
		Friction: 0.3,
		Filter:   DefaultFilter(),
		Proxy:    -1,
	}
}

// MixFriction combines two friction coefficients by geometric mean.
func MixFriction(a, b float64) float64 {
	return math.Sqrt(a * b)
}

// MixRestitution combines restitution by taking the bouncier of the two.
func MixRestitution(a, b float64) float64 {
	return math.Max(a, b)
}
