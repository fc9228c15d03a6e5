package mathx

import (
	"math"
	"testing"
)

const eps = 1e-12

func nearVec(a, b Vec2) bool {
	return math.Abs(a[0]-b[0]) < eps && math.Abs(a[1]-b[1]) < eps
}

func TestRotApplyInverse(t *testing.T) {
	q := NewRot(0.7)
	v := V(1.5, -2.25)

	back := q.ApplyT(q.Apply(v))
	if !nearVec(back, v) {
		t.Errorf("ApplyT(Apply(v)) = %v, want %v", back, v)
	}
}

func TestTransformMulT(t *testing.T) {
	xf := Transform{P: V(3, -1), Q: NewRot(math.Pi / 3)}
	p := V(0.5, 2)

	back := xf.ApplyT(xf.Apply(p))
	if !nearVec(back, p) {
		t.Errorf("ApplyT(Apply(p)) = %v, want %v", back, p)
	}
}

func TestTransformCompose(t *testing.T) {
	a := Transform{P: V(1, 2), Q: NewRot(0.3)}
	b := Transform{P: V(-0.5, 1), Q: NewRot(-1.1)}
	p := V(2, -3)

	// (a*b)(p) == a(b(p))
	got := a.Mul(b).Apply(p)
	want := a.Apply(b.Apply(p))
	if !nearVec(got, want) {
		t.Errorf("composed apply = %v, want %v", got, want)
	}
}

func TestSweepEndpoints(t *testing.T) {
	s := Sweep{
		C0: V(0, 0), C: V(10, 0),
		A0: 0, A: math.Pi / 2,
	}

	xf0 := s.GetTransform(0)
	if !nearVec(xf0.P, V(0, 0)) {
		t.Errorf("beta=0 position %v, want origin", xf0.P)
	}
	xf1 := s.GetTransform(1)
	if !nearVec(xf1.P, V(10, 0)) {
		t.Errorf("beta=1 position %v, want (10,0)", xf1.P)
	}
	xfHalf := s.GetTransform(0.5)
	if !nearVec(xfHalf.P, V(5, 0)) {
		t.Errorf("beta=0.5 position %v, want (5,0)", xfHalf.P)
	}
}

func TestSweepAdvance(t *testing.T) {
	s := Sweep{C0: V(0, 0), C: V(4, 0), A0: 0, A: 2}

	s.Advance(0.5)
	if !nearVec(s.C0, V(2, 0)) {
		t.Errorf("advanced C0 = %v, want (2,0)", s.C0)
	}
	if math.Abs(s.A0-1) > eps {
		t.Errorf("advanced A0 = %f, want 1", s.A0)
	}
	// End state untouched.
	if !nearVec(s.C, V(4, 0)) || s.A != 2 {
		t.Error("advance must not move the sweep end state")
	}
}

func TestMat22Solve(t *testing.T) {
	m := Mat22{Ex: V(3, 1), Ey: V(2, 4)}
	b := V(5, 6)

	x := m.Solve(b)
	got := V(m.Ex[0]*x[0]+m.Ey[0]*x[1], m.Ex[1]*x[0]+m.Ey[1]*x[1])
	if !nearVec(got, b) {
		t.Errorf("M*Solve(b) = %v, want %v", got, b)
	}
}

func TestCrossIdentities(t *testing.T) {
	a := V(2, 3)
	b := V(-1, 4)

	if got := Cross(a, b); math.Abs(got-11) > eps {
		t.Errorf("Cross = %f, want 11", got)
	}
	// s x v is perpendicular to v.
	if got := CrossSV(2, a).Dot(a); math.Abs(got) > eps {
		t.Errorf("CrossSV not perpendicular: dot = %f", got)
	}
}
