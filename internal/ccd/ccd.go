// Package ccd catches tunneling: bodies that sweep further in one step than
// their own thickness are tested against nearby colliders along the swept
// path and stopped at the earliest time of impact instead of passing through.
package ccd

import (
	"math"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

const (
	linearSlop  = 0.005
	toiMaxIters = 20

	// A body is "fast" when its step displacement exceeds this fraction of
	// its smallest shape extent.
	fastFraction = 0.5

	// MaxSubSteps bounds the impact-resolution passes per step, so a
	// cascade of fast bodies cannot stall the pipeline.
	MaxSubSteps = 4
)

// State classifies a time-of-impact query result.
type State uint8

const (
	StateUnknown State = iota
	StateOverlapped
	StateHit
	StateSeparated
)

// Input is a time-of-impact query between two swept proxies. Sweeps
// parameterize the step in [0, 1].
type Input struct {
	ProxyA, ProxyB geom.DistanceProxy
	SweepA, SweepB mathx.Sweep
	TMax           float64
}

// Output reports the query state and, for StateHit, the impact time.
type Output struct {
	State State
	T     float64
}

// TimeOfImpact finds the earliest time in [0, TMax] at which the two proxies
// come within a slop distance of touching, by conservative advancement: each
// iteration advances time by the current separation divided by an upper
// bound on the approach speed, so an impact can never be stepped over.
func TimeOfImpact(in Input) Output {
	sweepA := in.SweepA
	sweepB := in.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	target := linearSlop
	tol := 0.25 * linearSlop

	rMaxA := proxyReach(in.ProxyA, sweepA.LocalCenter)
	rMaxB := proxyReach(in.ProxyB, sweepB.LocalCenter)

	// Per-unit-time motion bounds.
	dC := sweepB.C.Sub(sweepB.C0).Sub(sweepA.C.Sub(sweepA.C0))
	angular := math.Abs(sweepA.A-sweepA.A0)*rMaxA + math.Abs(sweepB.A-sweepB.A0)*rMaxB
	bound := dC.Len() + angular

	t := 0.0
	for iter := 0; iter < toiMaxIters; iter++ {
		out := geom.Distance(geom.DistanceInput{
			ProxyA:   in.ProxyA,
			ProxyB:   in.ProxyB,
			XfA:      sweepA.GetTransform(t),
			XfB:      sweepB.GetTransform(t),
			UseRadii: true,
		})

		if out.Distance <= 0 {
			if t == 0 {
				return Output{State: StateOverlapped, T: 0}
			}
			return Output{State: StateHit, T: t}
		}
		if out.Distance < target+tol {
			return Output{State: StateHit, T: t}
		}
		if bound <= 0 {
			return Output{State: StateSeparated, T: in.TMax}
		}

		t += (out.Distance - target) / bound
		if t >= in.TMax {
			return Output{State: StateSeparated, T: in.TMax}
		}
	}
	// Ran out of iterations while still approaching; treat the current time
	// as the impact rather than risk a miss.
	return Output{State: StateHit, T: t}
}

// proxyReach is the largest distance from the body center to any point of
// the proxy, the lever arm for the angular term of the speed bound.
func proxyReach(p geom.DistanceProxy, center mathx.Vec2) float64 {
	reach := 0.0
	for _, v := range p.Verts {
		if d := v.Sub(center).Len(); d > reach {
			reach = d
		}
	}
	return reach + p.Radius
}

// Resolve runs the post-integration continuous pass: flags fast movers and
// freezes each at its earliest impact pose so the next step's discrete
// solve picks up the contact. Freezing one body can expose a new impact for
// another fast body sweeping toward it, so unresolved movers are re-queued
// for further passes, bounded by MaxSubSteps. Returns the handles of bodies
// that were stopped early.
func Resolve(w *world.World, bp *broadphase.BroadPhase) []store.Handle {
	var fast []store.Handle
	w.Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		b := *bptr
		if b.Kind == body.Dynamic && b.Awake && isFast(w, h, b) {
			fast = append(fast, h)
		}
	})

	var advanced []store.Handle
	frozen := make(map[store.Handle]bool)
	for sub := 0; sub < MaxSubSteps; sub++ {
		hitAny := false
		for _, h := range fast {
			if frozen[h] {
				continue
			}
			bptr, err := w.Bodies.Get(h)
			if err != nil {
				continue
			}
			b := *bptr
			alpha, ok := earliestImpact(w, bp, h, b)
			if !ok {
				continue
			}
			// Freeze at the impact pose. The remaining motion this step
			// is discarded; velocities are kept for the next contact
			// solve.
			b.Sweep.Advance(alpha)
			b.Sweep.C = b.Sweep.C0
			b.Sweep.A = b.Sweep.A0
			b.Sweep.Alpha0 = 0
			b.SynchronizeTransform()
			frozen[h] = true
			advanced = append(advanced, h)
			hitAny = true
		}
		if !hitAny {
			break
		}
	}

	return advanced
}

// isFast reports whether the body's swept displacement this step risks
// tunneling through geometry thinner than its own smallest extent.
func isFast(w *world.World, h store.Handle, b *body.Body) bool {
	if b.Bullet {
		return true
	}
	minExtent := math.Inf(1)
	for _, ch := range w.CollidersOf(h) {
		col, err := w.Colliders.Get(ch)
		if err != nil {
			continue
		}
		if e := (*col).Shape.MinExtent(); e < minExtent {
			minExtent = e
		}
	}
	if math.IsInf(minExtent, 1) {
		return false
	}
	disp := b.Sweep.C.Sub(b.Sweep.C0)
	return disp.Len() > fastFraction*minExtent
}

// earliestImpact scans broad-phase candidates along the body's swept bounds
// and returns the smallest time of impact, if any impact occurs before the
// end of the step.
func earliestImpact(w *world.World, bp *broadphase.BroadPhase, h store.Handle, b *body.Body) (float64, bool) {
	minAlpha := 1.0
	hit := false

	for _, ch := range w.CollidersOf(h) {
		col, err := w.Colliders.Get(ch)
		if err != nil {
			continue
		}
		c := *col

		xf0 := b.Sweep.GetTransform(0)
		xf1 := b.Sweep.GetTransform(1)
		swept := c.Shape.AABB(xf0).Union(c.Shape.AABB(xf1))

		bp.Query(swept, func(oh store.Handle) bool {
			ocol, err := w.Colliders.Get(oh)
			if err != nil {
				return true
			}
			oc := *ocol
			if oc.Body == c.Body {
				return true
			}
			if !c.Filter.ShouldCollide(oc.Filter) {
				return true
			}
			obptr, err := w.Bodies.Get(oc.Body)
			if err != nil {
				return true
			}
			ob := *obptr
			// Fast non-bullets only sweep against non-dynamic geometry;
			// bullets additionally sweep against dynamic non-bullets.
			if ob.Kind == body.Dynamic && (!b.Bullet || ob.Bullet) {
				return true
			}

			out := TimeOfImpact(Input{
				ProxyA: geom.Proxy(c.Shape),
				ProxyB: geom.Proxy(oc.Shape),
				SweepA: b.Sweep,
				SweepB: ob.Sweep,
				TMax:   minAlpha,
			})
			if out.State == StateHit && out.T < minAlpha {
				minAlpha = out.T
				hit = true
			}
			return true
		})
	}

	return minAlpha, hit
}
