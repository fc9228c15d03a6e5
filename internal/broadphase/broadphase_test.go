package broadphase

import (
	"testing"

	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
)

func box(x0, y0, x1, y1 float64) geom.AABB {
	return geom.AABB{Lower: mathx.V(x0, y0), Upper: mathx.V(x1, y1)}
}

func handle(i uint32) store.Handle {
	return store.Handle{Index: i, Generation: 1}
}

func allowAll(a, b store.Handle) bool { return true }

func TestPairBeginOnOverlap(t *testing.T) {
	bp := New()
	a := handle(0)
	b := handle(1)
	bp.Add(a, box(0, 0, 1, 1))
	bp.Add(b, box(0.5, 0, 1.5, 1))

	current, delta := bp.UpdatePairs(allowAll)
	if len(delta.Begun) != 1 {
		t.Fatalf("begun = %d pairs, want 1", len(delta.Begun))
	}
	want := MakePair(a, b)
	if delta.Begun[0] != want {
		t.Errorf("begun pair = %v, want %v", delta.Begun[0], want)
	}
	if len(current) != 1 || current[0] != want {
		t.Errorf("current = %v, want [%v]", current, want)
	}
}

func TestPairCanonicalOrder(t *testing.T) {
	a := handle(3)
	b := handle(1)
	p := MakePair(a, b)
	if p.A != b || p.B != a {
		t.Errorf("MakePair(%v, %v) = %v, want lower index first", a, b, p)
	}
}

func TestPairEndsOnSeparation(t *testing.T) {
	bp := New()
	a := handle(0)
	b := handle(1)
	pa := bp.Add(a, box(0, 0, 1, 1))
	bp.Add(b, box(0.5, 0, 1.5, 1))
	bp.UpdatePairs(allowAll)

	// Move A far away. Displacement large enough to escape the fat bounds.
	bp.Move(pa, box(100, 0, 101, 1), mathx.V(100, 0))
	current, delta := bp.UpdatePairs(allowAll)

	if len(delta.Ended) != 1 {
		t.Fatalf("ended = %d pairs, want 1", len(delta.Ended))
	}
	if len(current) != 0 {
		t.Errorf("current after separation = %v, want empty", current)
	}
}

func TestSmallMoveWithinFatBoundsNoChurn(t *testing.T) {
	bp := New()
	a := handle(0)
	b := handle(1)
	pa := bp.Add(a, box(0, 0, 1, 1))
	bp.Add(b, box(0.5, 0, 1.5, 1))
	bp.UpdatePairs(allowAll)

	// A tiny move stays inside the inflated bounds: no re-pairing.
	bp.Move(pa, box(0.01, 0, 1.01, 1), mathx.V(0.01, 0))
	current, delta := bp.UpdatePairs(allowAll)
	if len(delta.Begun) != 0 || len(delta.Ended) != 0 {
		t.Errorf("delta = %+v, want no churn", delta)
	}
	if len(current) != 1 {
		t.Errorf("current = %d pairs, want 1", len(current))
	}
}

func TestFilterRejectsPair(t *testing.T) {
	bp := New()
	bp.Add(handle(0), box(0, 0, 1, 1))
	bp.Add(handle(1), box(0, 0, 1, 1))

	current, delta := bp.UpdatePairs(func(a, b store.Handle) bool { return false })
	if len(current) != 0 || len(delta.Begun) != 0 {
		t.Errorf("filtered pair leaked: current=%v begun=%v", current, delta.Begun)
	}
}

func TestRemoveRetiresPairs(t *testing.T) {
	bp := New()
	a := handle(0)
	pa := bp.Add(a, box(0, 0, 1, 1))
	bp.Add(handle(1), box(0, 0, 1, 1))
	bp.UpdatePairs(allowAll)

	bp.Remove(pa)
	current, delta := bp.UpdatePairs(allowAll)
	if len(current) != 0 {
		t.Errorf("current after removal = %v, want empty", current)
	}
	// The retired pair must surface as ended so contact state downstream
	// is released.
	want := MakePair(a, handle(1))
	if len(delta.Ended) != 1 || delta.Ended[0] != want {
		t.Errorf("ended after removal = %v, want [%v]", delta.Ended, want)
	}
}

func TestDropEndsPairWithoutBoundsChange(t *testing.T) {
	bp := New()
	a := handle(0)
	b := handle(1)
	bp.Add(a, box(0, 0, 1, 1))
	bp.Add(b, box(0.5, 0, 1.5, 1))
	bp.UpdatePairs(allowAll)

	// The surviving proxy never moves, so only the removal path can end
	// the pair.
	bp.Drop(a)
	_, delta := bp.UpdatePairs(allowAll)
	want := MakePair(a, b)
	if len(delta.Ended) != 1 || delta.Ended[0] != want {
		t.Errorf("ended after drop = %v, want [%v]", delta.Ended, want)
	}
}

func TestSyncAddsThenMoves(t *testing.T) {
	bp := New()
	a := handle(0)

	bp.Sync(a, box(0, 0, 1, 1), mathx.Vec2{})
	if got := bp.Indexed(); len(got) != 1 || got[0] != a {
		t.Fatalf("Indexed after first sync = %v, want [%v]", got, a)
	}

	// Second sync with the same handle must not create a second proxy.
	bp.Sync(a, box(5, 0, 6, 1), mathx.V(5, 0))
	if got := bp.Indexed(); len(got) != 1 {
		t.Errorf("Indexed after move = %d proxies, want 1", len(got))
	}
}

func TestQueryVisitsOverlapping(t *testing.T) {
	bp := New()
	a := handle(0)
	b := handle(1)
	c := handle(2)
	bp.Add(a, box(0, 0, 1, 1))
	bp.Add(b, box(10, 10, 11, 11))
	bp.Add(c, box(0.5, 0.5, 2, 2))

	var hits []store.Handle
	bp.Query(box(0, 0, 3, 3), func(h store.Handle) bool {
		hits = append(hits, h)
		return true
	})
	if len(hits) != 2 {
		t.Fatalf("query hit %d proxies, want 2", len(hits))
	}
	for _, h := range hits {
		if h == b {
			t.Error("query returned non-overlapping proxy")
		}
	}
}

func TestIndexedSortedBySlot(t *testing.T) {
	bp := New()
	bp.Add(handle(5), box(0, 0, 1, 1))
	bp.Add(handle(2), box(2, 0, 3, 1))
	bp.Add(handle(9), box(4, 0, 5, 1))

	got := bp.Indexed()
	want := []uint32{2, 5, 9}
	for i, h := range got {
		if h.Index != want[i] {
			t.Fatalf("Indexed = %v, want slots %v", got, want)
		}
	}
}
