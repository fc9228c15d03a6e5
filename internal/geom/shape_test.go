package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/rigid2d/internal/mathx"
)

func TestCircleMass(t *testing.T) {
	s := NewCircle(2.0)
	md := s.ComputeMass(1.0)

	wantMass := math.Pi * 4.0
	if math.Abs(md.Mass-wantMass) > 1e-9 {
		t.Errorf("mass = %f, want %f", md.Mass, wantMass)
	}
	// I = m r^2 / 2 about the center.
	wantI := wantMass * 2.0
	if math.Abs(md.I-wantI) > 1e-9 {
		t.Errorf("inertia = %f, want %f", md.I, wantI)
	}
}

func TestBoxMass(t *testing.T) {
	s := NewBox(1.0, 0.5) // 2 x 1 box
	md := s.ComputeMass(2.0)

	wantMass := 2.0 * 2.0 * 1.0
	if math.Abs(md.Mass-wantMass) > 1e-9 {
		t.Errorf("mass = %f, want %f", md.Mass, wantMass)
	}
	if math.Abs(md.Center[0]) > 1e-9 || math.Abs(md.Center[1]) > 1e-9 {
		t.Errorf("centroid = %v, want origin", md.Center)
	}
	// I = m (w^2 + h^2) / 12.
	wantI := wantMass * (4.0 + 1.0) / 12.0
	if math.Abs(md.I-wantI) > 1e-6 {
		t.Errorf("inertia = %f, want %f", md.I, wantI)
	}
}

func TestShapeAABB(t *testing.T) {
	tests := []struct {
		name  string
		shape *Shape
		xf    mathx.Transform
		lower mathx.Vec2
		upper mathx.Vec2
	}{
		{
			name:  "circle at origin",
			shape: NewCircle(1.0),
			xf:    mathx.Transform{Q: mathx.NewRot(0)},
			lower: mathx.V(-1, -1),
			upper: mathx.V(1, 1),
		},
		{
			name:  "circle translated",
			shape: NewCircle(0.5),
			xf:    mathx.Transform{P: mathx.V(3, 4), Q: mathx.NewRot(0)},
			lower: mathx.V(2.5, 3.5),
			upper: mathx.V(3.5, 4.5),
		},
		{
			name:  "segment",
			shape: NewSegment(mathx.V(-2, 0), mathx.V(2, 1)),
			xf:    mathx.Transform{Q: mathx.NewRot(0)},
			lower: mathx.V(-2, 0),
			upper: mathx.V(2, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.shape.AABB(tt.xf)
			if math.Abs(got.Lower[0]-tt.lower[0]) > 1e-9 ||
				math.Abs(got.Lower[1]-tt.lower[1]) > 1e-9 ||
				math.Abs(got.Upper[0]-tt.upper[0]) > 1e-9 ||
				math.Abs(got.Upper[1]-tt.upper[1]) > 1e-9 {
				t.Errorf("bounds = %v/%v, want %v/%v", got.Lower, got.Upper, tt.lower, tt.upper)
			}
		})
	}
}

func TestValidateDegenerate(t *testing.T) {
	bad := []*Shape{
		NewCircle(0),
		NewCircle(-1),
		{Kind: KindPolygon, Verts: []mathx.Vec2{{0, 0}, {1, 0}}},
		NewCapsule(mathx.V(0, 0), mathx.V(0, 0), 0),
	}
	for i, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrDegenerate) {
			t.Errorf("shape %d: expected ErrDegenerate, got %v", i, err)
		}
	}

	good := []*Shape{
		NewCircle(1),
		NewBox(1, 1),
		NewCapsule(mathx.V(-1, 0), mathx.V(1, 0), 0.25),
		NewSegment(mathx.V(0, 0), mathx.V(1, 0)),
	}
	for i, s := range good {
		if err := s.Validate(); err != nil {
			t.Errorf("shape %d: unexpected error %v", i, err)
		}
	}
}

func TestMinExtent(t *testing.T) {
	if got := NewCircle(0.5).MinExtent(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("circle MinExtent = %f, want 0.5", got)
	}
	box := NewBox(2, 0.25)
	if got := box.MinExtent(); got > 0.3 {
		t.Errorf("thin box MinExtent = %f, want <= 0.3", got)
	}
}

func TestAABBOverlap(t *testing.T) {
	a := AABB{Lower: mathx.V(0, 0), Upper: mathx.V(2, 2)}
	b := AABB{Lower: mathx.V(1, 1), Upper: mathx.V(3, 3)}
	c := AABB{Lower: mathx.V(5, 5), Upper: mathx.V(6, 6)}

	if !a.Overlaps(b) {
		t.Error("expected a and b to overlap")
	}
	if a.Overlaps(c) {
		t.Error("expected a and c to be disjoint")
	}
	u := a.Union(b)
	if u.Lower != mathx.V(0, 0) || u.Upper != mathx.V(3, 3) {
		t.Errorf("union = %v/%v", u.Lower, u.Upper)
	}
}
