package geom

import (
	"math"
	"testing"

	"github.com/san-kum/rigid2d/internal/mathx"
)

func identityAt(x, y float64) mathx.Transform {
	xf := mathx.IdentityTransform()
	xf.P = mathx.Vec2{x, y}
	return xf
}

func TestDistanceCircles(t *testing.T) {
	a := NewCircle(1.0)
	b := NewCircle(0.5)

	out := Distance(DistanceInput{
		ProxyA:   Proxy(a),
		ProxyB:   Proxy(b),
		XfA:      identityAt(0, 0),
		XfB:      identityAt(4, 0),
		UseRadii: true,
	})
	// Center distance 4 minus both radii.
	if math.Abs(out.Distance-2.5) > 1e-9 {
		t.Errorf("distance = %f, want 2.5", out.Distance)
	}
	if math.Abs(out.PointA[0]-1.0) > 1e-9 {
		t.Errorf("pointA.x = %f, want 1", out.PointA[0])
	}
	if math.Abs(out.PointB[0]-3.5) > 1e-9 {
		t.Errorf("pointB.x = %f, want 3.5", out.PointB[0])
	}
}

func TestDistanceOverlappingClampsToZero(t *testing.T) {
	a := NewCircle(1.0)
	b := NewCircle(1.0)

	out := Distance(DistanceInput{
		ProxyA:   Proxy(a),
		ProxyB:   Proxy(b),
		XfA:      identityAt(0, 0),
		XfB:      identityAt(1, 0),
		UseRadii: true,
	})
	if out.Distance != 0 {
		t.Errorf("distance = %f, want 0 for overlapping circles", out.Distance)
	}
}

func TestDistanceBoxBox(t *testing.T) {
	a := NewBox(1.0, 1.0)
	b := NewBox(1.0, 1.0)

	out := Distance(DistanceInput{
		ProxyA: Proxy(a),
		ProxyB: Proxy(b),
		XfA:    identityAt(0, 0),
		XfB:    identityAt(5, 0),
	})
	// Faces at x=1 and x=4.
	if math.Abs(out.Distance-3.0) > 1e-6 {
		t.Errorf("distance = %f, want 3", out.Distance)
	}
}

func TestDistanceBoxCircleDiagonal(t *testing.T) {
	box := NewBox(1.0, 1.0)
	circ := NewCircle(0.5)

	out := Distance(DistanceInput{
		ProxyA:   Proxy(box),
		ProxyB:   Proxy(circ),
		XfA:      identityAt(0, 0),
		XfB:      identityAt(4, 4),
		UseRadii: true,
	})
	// Corner (1,1) to center (4,4) is 3*sqrt(2), minus circle radius.
	want := 3.0*math.Sqrt2 - 0.5
	if math.Abs(out.Distance-want) > 1e-6 {
		t.Errorf("distance = %f, want %f", out.Distance, want)
	}
}

func TestDistanceRotatedBox(t *testing.T) {
	a := NewBox(1.0, 1.0)
	b := NewCircle(0.0)

	xfA := mathx.Transform{Q: mathx.NewRot(math.Pi / 4)}
	out := Distance(DistanceInput{
		ProxyA: Proxy(a),
		ProxyB: Proxy(b),
		XfA:    xfA,
		XfB:    identityAt(5, 0),
	})
	// Rotated 45 degrees the box presents a corner at x = sqrt(2).
	want := 5.0 - math.Sqrt2
	if math.Abs(out.Distance-want) > 1e-6 {
		t.Errorf("distance = %f, want %f", out.Distance, want)
	}
}
