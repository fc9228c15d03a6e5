package ccd

import (
	"math"
	"testing"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

func sweepAt(c0, c1 mathx.Vec2) mathx.Sweep {
	return mathx.Sweep{C0: c0, C: c1}
}

func TestTimeOfImpactHeadOnCircles(t *testing.T) {
	circle := geom.NewCircle(0.5)

	out := TimeOfImpact(Input{
		ProxyA: geom.Proxy(circle),
		ProxyB: geom.Proxy(circle),
		SweepA: sweepAt(mathx.V(0, 0), mathx.V(10, 0)),
		SweepB: sweepAt(mathx.V(5, 0), mathx.V(5, 0)),
		TMax:   1.0,
	})
	if out.State != StateHit {
		t.Fatalf("state = %v, want hit", out.State)
	}
	// Surfaces touch when the centers are 1 apart: 4 units of travel at
	// speed 10. The solver stops a slop distance early.
	if math.Abs(out.T-0.4) > 0.01 {
		t.Errorf("toi = %f, want ~0.4", out.T)
	}
}

func TestTimeOfImpactSeparatedPaths(t *testing.T) {
	circle := geom.NewCircle(0.5)

	out := TimeOfImpact(Input{
		ProxyA: geom.Proxy(circle),
		ProxyB: geom.Proxy(circle),
		SweepA: sweepAt(mathx.V(0, 0), mathx.V(10, 0)),
		SweepB: sweepAt(mathx.V(5, 10), mathx.V(5, 10)),
		TMax:   1.0,
	})
	if out.State != StateSeparated {
		t.Errorf("state = %v, want separated for parallel miss", out.State)
	}
}

func TestTimeOfImpactInitialOverlap(t *testing.T) {
	circle := geom.NewCircle(0.5)

	out := TimeOfImpact(Input{
		ProxyA: geom.Proxy(circle),
		ProxyB: geom.Proxy(circle),
		SweepA: sweepAt(mathx.V(0, 0), mathx.V(1, 0)),
		SweepB: sweepAt(mathx.V(0.3, 0), mathx.V(0.3, 0)),
		TMax:   1.0,
	})
	if out.State != StateOverlapped || out.T != 0 {
		t.Errorf("got %+v, want overlapped at t=0", out)
	}
}

func TestTimeOfImpactRespectsTMax(t *testing.T) {
	circle := geom.NewCircle(0.5)

	// Impact would happen near t=0.4; cap the query below it.
	out := TimeOfImpact(Input{
		ProxyA: geom.Proxy(circle),
		ProxyB: geom.Proxy(circle),
		SweepA: sweepAt(mathx.V(0, 0), mathx.V(10, 0)),
		SweepB: sweepAt(mathx.V(5, 0), mathx.V(5, 0)),
		TMax:   0.2,
	})
	if out.State != StateSeparated {
		t.Errorf("state = %v, want separated when impact is past TMax", out.State)
	}
}

// wallFixture builds a thin static wall at x=10 and a bullet circle whose
// sweep crosses it entirely within one step.
func wallFixture(t *testing.T, bullet bool) (*world.World, *broadphase.BroadPhase, store.Handle) {
	t.Helper()
	w := world.New()

	wb, err := w.InsertBody(body.New(body.Static, mathx.V(10, 0), 0))
	if err != nil {
		t.Fatalf("insert wall: %v", err)
	}
	wc, err := w.InsertCollider(body.NewCollider(geom.NewBox(0.01, 5)), wb)
	if err != nil {
		t.Fatalf("insert wall collider: %v", err)
	}

	bb, err := w.InsertBody(body.New(body.Dynamic, mathx.V(0, 0), 0))
	if err != nil {
		t.Fatalf("insert bullet: %v", err)
	}
	bd, _ := w.Body(bb)
	bd.Bullet = bullet
	bd.LinearVelocity = mathx.V(50, 0)
	if _, err := w.InsertCollider(body.NewCollider(geom.NewCircle(0.05)), bb); err != nil {
		t.Fatalf("insert bullet collider: %v", err)
	}

	// The step already happened: the sweep spans from x=0 to x=50, well
	// past the wall.
	bd.Sweep.C0 = mathx.V(0, 0)
	bd.Sweep.C = mathx.V(50, 0)
	bd.SynchronizeTransform()

	bp := broadphase.New()
	wallBody, _ := w.Body(wb)
	wallCol, _ := w.Collider(wc)
	bp.Sync(wc, wallCol.Shape.AABB(wallBody.Xf), mathx.Vec2{})

	return w, bp, bb
}

func TestResolveStopsBulletAtWall(t *testing.T) {
	w, bp, bh := wallFixture(t, true)

	advanced := Resolve(w, bp)
	if len(advanced) != 1 || advanced[0] != bh {
		t.Fatalf("advanced = %v, want the bullet", advanced)
	}

	bd, _ := w.Body(bh)
	if bd.Sweep.C[0] >= 10.0 {
		t.Errorf("bullet center x = %f, tunneled past the wall", bd.Sweep.C[0])
	}
	if bd.Sweep.C[0] < 9.0 {
		t.Errorf("bullet center x = %f, stopped far short of the wall", bd.Sweep.C[0])
	}
	// The freeze keeps velocity for next step's contact solve.
	if bd.LinearVelocity[0] != 50 {
		t.Errorf("velocity = %v, freeze must not alter velocity", bd.LinearVelocity)
	}
	if bd.Sweep.C != bd.Sweep.C0 || bd.Sweep.Alpha0 != 0 {
		t.Errorf("sweep not collapsed to the impact pose: %+v", bd.Sweep)
	}
}

func TestFastNonBulletAlsoStops(t *testing.T) {
	// 0.1-diameter circle moving 50 units: far beyond the fast threshold
	// even without the bullet flag.
	w, bp, bh := wallFixture(t, false)

	advanced := Resolve(w, bp)
	if len(advanced) != 1 || advanced[0] != bh {
		t.Fatalf("advanced = %v, want the fast body", advanced)
	}
	bd, _ := w.Body(bh)
	if bd.Sweep.C[0] >= 10.0 {
		t.Errorf("fast body center x = %f, tunneled past the wall", bd.Sweep.C[0])
	}
}

func TestSlowBodyIgnored(t *testing.T) {
	w := world.New()
	bh, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(0, 0), 0))
	if _, err := w.InsertCollider(body.NewCollider(geom.NewCircle(0.5)), bh); err != nil {
		t.Fatalf("insert collider: %v", err)
	}
	bd, _ := w.Body(bh)
	bd.Sweep.C0 = mathx.V(0, 0)
	bd.Sweep.C = mathx.V(0.01, 0) // far below half the min extent

	if advanced := Resolve(w, broadphase.New()); len(advanced) != 0 {
		t.Errorf("advanced = %v, slow body must be skipped", advanced)
	}
}

func TestBulletIgnoresDynamicBullets(t *testing.T) {
	w := world.New()
	bp := broadphase.New()

	mk := func(x float64) store.Handle {
		bh, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(x, 0), 0))
		bd, _ := w.Body(bh)
		bd.Bullet = true
		ch, _ := w.InsertCollider(body.NewCollider(geom.NewCircle(0.05)), bh)
		col, _ := w.Collider(ch)
		bp.Sync(ch, col.Shape.AABB(bd.Xf), mathx.Vec2{})
		return bh
	}

	a := mk(0)
	mk(5)
	bd, _ := w.Body(a)
	bd.Sweep.C = mathx.V(20, 0)
	bd.SynchronizeTransform()

	// Bullet-vs-bullet pairs are excluded: no impact to resolve.
	if advanced := Resolve(w, bp); len(advanced) != 0 {
		t.Errorf("advanced = %v, bullet pair should be skipped", advanced)
	}
}

func TestBulletStopsOnFreshlyStoppedBody(t *testing.T) {
	w := world.New()
	bp := broadphase.New()

	sync := func(ch store.Handle) {
		col, _ := w.Collider(ch)
		bd, _ := w.Body(col.Body)
		b0 := col.Shape.AABB(bd.Sweep.GetTransform(0))
		b1 := col.Shape.AABB(bd.Sweep.GetTransform(1))
		bp.Sync(ch, b0.Union(b1), mathx.Vec2{})
	}

	// The bullet crosses first in slot order, so only a later resolution
	// pass can see the dropper frozen in its path.
	bullet, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(0, 0.55), 0))
	bulletBody, _ := w.Body(bullet)
	bulletBody.Bullet = true
	bulletBody.LinearVelocity = mathx.V(40, 0)
	bulletCol, _ := w.InsertCollider(body.NewCollider(geom.NewCircle(0.05)), bullet)
	bulletBody.Sweep.C0 = mathx.V(0, 0.55)
	bulletBody.Sweep.C = mathx.V(20, 0.55)
	bulletBody.SynchronizeTransform()

	pillar, _ := w.InsertBody(body.New(body.Static, mathx.V(10, -0.2), 0))
	pillarCol, _ := w.InsertCollider(body.NewCollider(geom.NewBox(0.2, 0.2)), pillar)

	// A fast non-bullet dropping onto the pillar; its unfrozen sweep has
	// left the bullet's lane long before the bullet arrives.
	dropper, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(10, 0.9), 0))
	dropperBody, _ := w.Body(dropper)
	dropperBody.LinearVelocity = mathx.V(0, -594)
	dropperCol, _ := w.InsertCollider(body.NewCollider(geom.NewCircle(0.3)), dropper)
	dropperBody.Sweep.C0 = mathx.V(10, 0.9)
	dropperBody.Sweep.C = mathx.V(10, -9)
	dropperBody.SynchronizeTransform()

	sync(bulletCol)
	sync(pillarCol)
	sync(dropperCol)

	advanced := Resolve(w, bp)
	if len(advanced) != 2 {
		t.Fatalf("advanced = %v, want dropper then bullet", advanced)
	}
	if advanced[0] != dropper || advanced[1] != bullet {
		t.Errorf("resolution order = %v, want dropper before bullet", advanced)
	}

	if dropperBody.Sweep.C[1] < 0.2 || dropperBody.Sweep.C[1] > 0.5 {
		t.Errorf("dropper center y = %f, want frozen on the pillar", dropperBody.Sweep.C[1])
	}
	if bulletBody.Sweep.C[0] >= 10.0 {
		t.Errorf("bullet center x = %f, passed through the frozen body", bulletBody.Sweep.C[0])
	}
	if bulletBody.Sweep.C[0] < 5.0 {
		t.Errorf("bullet center x = %f, stopped far short", bulletBody.Sweep.C[0])
	}
	if bulletBody.Sweep.C != bulletBody.Sweep.C0 {
		t.Errorf("bullet sweep not collapsed: %+v", bulletBody.Sweep)
	}
}

func TestProxyReach(t *testing.T) {
	box := geom.NewBox(3, 4)
	got := proxyReach(geom.Proxy(box), mathx.Vec2{})
	want := 5.0 + box.Radius
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("reach = %f, want %f", got, want)
	}
}
