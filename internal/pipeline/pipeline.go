package pipeline

import (
	"math"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/ccd"
	"github.com/san-kum/rigid2d/internal/island"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/narrowphase"
	"github.com/san-kum/rigid2d/internal/solver"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

// Engine owns the per-step machinery that persists across steps: the
// broad-phase index, the contact set with its warm-start accumulators, and
// the island builder's sleep bookkeeping.
type Engine struct {
	world    *world.World
	broad    *broadphase.BroadPhase
	contacts *narrowphase.Set
	islands  *island.Builder

	step   int
	prevDt float64
}

// New wraps a world in a fresh engine with empty step state.
func New(w *world.World) *Engine {
	return &Engine{
		world:    w,
		broad:    broadphase.New(),
		contacts: narrowphase.NewSet(),
		islands:  island.NewBuilder(island.DefaultSleepConfig()),
	}
}

func (e *Engine) World() *world.World { return e.world }

// Contacts exposes the persistent contact set for checkpointing.
func (e *Engine) Contacts() *narrowphase.Set { return e.contacts }

// RestoreContacts installs a contact set decoded from a snapshot, replacing
// the engine's empty one so warm-start accumulators survive the restore.
func (e *Engine) RestoreContacts(s *narrowphase.Set) { e.contacts = s }

// PrevDt returns the previous step's timestep, 0 before the first step. It
// feeds the warm-start dt ratio and must survive checkpoints for continuation
// to be bit-identical under a changing dt.
func (e *Engine) PrevDt() float64 { return e.prevDt }

// RestorePrevDt reinstates the previous timestep from a snapshot.
func (e *Engine) RestorePrevDt(dt float64) { e.prevDt = dt }

// Step advances the world by dt. Terminal state of one step is the initial
// state of the next; recoverable failures land in Result.Errors and the
// step still completes.
func (e *Engine) Step(dt float64, gravity mathx.Vec2, cfg Config) (*Result, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, ErrInvalidTimestep
	}
	if cfg.VelocityIterations <= 0 {
		cfg.VelocityIterations = 8
	}
	if cfg.PositionIterations <= 0 {
		cfg.PositionIterations = 3
	}
	if cfg.WarmStartTolerance > 0 {
		e.contacts.WarmStartTolerance = cfg.WarmStartTolerance
	}
	e.islands.Sleep = cfg.Sleep

	res := &Result{}

	// External forces and gravity. The saved state is the revert point for
	// the non-finite check after integration.
	e.world.Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		b := *bptr
		if b.Kind == body.Dynamic && b.Awake {
			b.SaveValidState()
			b.IntegrateVelocities(dt, gravity)
		}
	})

	e.syncProxies()

	current, delta := e.broad.UpdatePairs(e.shouldCollide)

	e.updateContacts(current, res)
	for _, ev := range e.contacts.Retire(delta.Ended) {
		res.Events = append(res.Events, Event{Kind: ContactEnd, Pair: ev.Pair})
	}

	islands, woken := e.islands.Build(e.world, e.contactEdges(current), e.jointEdges())
	for _, h := range woken {
		res.Events = append(res.Events, Event{Kind: BodyWake, Body: h})
	}

	e.solveIslands(islands, dt, cfg)

	// Kinematic bodies move by their own velocities, outside any island.
	e.world.Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		if b := *bptr; b.Kind == body.Kinematic && b.Awake {
			b.IntegratePositions(dt)
		}
	})

	e.healNonFinite(res)

	if cfg.CCD {
		ccd.Resolve(e.world, e.broad)
	}

	// Sleep evaluation in island order keeps the event stream and sleep
	// decisions independent of solver scheduling.
	for _, isl := range islands {
		for _, h := range e.islands.EvaluateSleep(e.world, isl, dt) {
			res.Events = append(res.Events, Event{Kind: BodySleep, Body: h})
		}
	}

	e.world.Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		(*bptr).ClearForces()
	})

	res.Islands = len(islands)
	res.Contacts = len(current)
	e.step++
	e.prevDt = dt
	return res, nil
}

// syncProxies reconciles the broad-phase index with the collider pool:
// removed colliders lose their proxies, live ones are (re)indexed at their
// current bounds with a displacement hint for the fat margins.
func (e *Engine) syncProxies() {
	for _, h := range e.broad.Indexed() {
		if !e.world.Colliders.Contains(h) {
			e.broad.Drop(h)
		}
	}
	e.world.Colliders.ForEach(func(h store.Handle, cptr **body.Collider) {
		c := *cptr
		b, err := e.world.Body(c.Body)
		if err != nil {
			e.broad.Drop(h)
			return
		}
		bounds := c.Shape.AABB(b.Xf)
		e.broad.Sync(h, bounds, b.Sweep.C.Sub(b.Sweep.C0))
	})
}

// shouldCollide is the broad-phase pair filter: same-body pairs, filter
// mismatches and pairs without any dynamic body never become candidates.
func (e *Engine) shouldCollide(a, b store.Handle) bool {
	ca, err := e.world.Collider(a)
	if err != nil {
		return false
	}
	cb, err := e.world.Collider(b)
	if err != nil {
		return false
	}
	if ca.Body == cb.Body {
		return false
	}
	if !ca.Filter.ShouldCollide(cb.Filter) {
		return false
	}
	ba, err := e.world.Body(ca.Body)
	if err != nil {
		return false
	}
	bb, err := e.world.Body(cb.Body)
	if err != nil {
		return false
	}
	return ba.Kind == body.Dynamic || bb.Kind == body.Dynamic
}

// updateContacts runs the narrow phase over the candidate pairs. Fully
// dormant pairs are skipped without touching their manifolds; per-pair
// failures are collected and the pair excluded from this step.
func (e *Engine) updateContacts(current []broadphase.Pair, res *Result) {
	for _, p := range current {
		if e.dormantPair(p) {
			continue
		}
		ev, err := e.contacts.Update(p, e.world)
		if err != nil {
			res.Errors = append(res.Errors, &StepError{Step: e.step, Wrapped: err})
			continue
		}
		if ev != nil {
			kind := ContactEnd
			if ev.Begun {
				kind = ContactBegin
			}
			res.Events = append(res.Events, Event{Kind: kind, Pair: ev.Pair})
		}
	}
}

func (e *Engine) dormantPair(p broadphase.Pair) bool {
	active := func(ch store.Handle) bool {
		c, err := e.world.Collider(ch)
		if err != nil {
			return false
		}
		b, err := e.world.Body(c.Body)
		if err != nil {
			return false
		}
		return b.Awake && b.Kind == body.Dynamic
	}
	return !active(p.A) && !active(p.B)
}

func (e *Engine) contactEdges(current []broadphase.Pair) []island.ContactEdge {
	var edges []island.ContactEdge
	e.contacts.ForEach(current, func(p narrowphase.PairKey, c *narrowphase.Contact) {
		if c.Touching {
			edges = append(edges, island.ContactEdge{Pair: p, BodyA: c.BodyA, BodyB: c.BodyB})
		}
	})
	return edges
}

func (e *Engine) jointEdges() []island.JointEdge {
	var edges []island.JointEdge
	e.world.Joints.ForEach(func(h store.Handle, jptr **body.Joint) {
		j := *jptr
		edges = append(edges, island.JointEdge{Joint: h, BodyA: j.BodyA, BodyB: j.BodyB})
	})
	return edges
}

// useParallel selects the solve strategy: islands fan out across the
// worker pool only when parallel solving is on and deterministic mode is
// off. Deterministic mode pins the fixed sequential island order so
// trajectories are bit-reproducible regardless of worker scheduling.
func useParallel(cfg Config, islands int) bool {
	return cfg.Parallel && !cfg.Deterministic && islands > 1
}

// solveIslands runs the constraint solver over all islands, in parallel
// when configured. Islands share no bodies, so per-island solves are
// race-free.
func (e *Engine) solveIslands(islands []*island.Island, dt float64, cfg Config) {
	dtRatio := 1.0
	if e.prevDt > 0 {
		dtRatio = dt / e.prevDt
	}
	scfg := solver.Config{
		VelocityIterations: cfg.VelocityIterations,
		PositionIterations: cfg.PositionIterations,
		Dt:                 dt,
		DtRatio:            dtRatio,
		WarmStarting:       cfg.WarmStarting,
	}

	if useParallel(cfg, len(islands)) {
		parallelFor(len(islands), 1, cfg.Workers, func(start, end int) {
			for i := start; i < end; i++ {
				solver.SolveIsland(e.world, e.contacts, islands[i], scfg)
			}
		})
		return
	}
	for _, isl := range islands {
		solver.SolveIsland(e.world, e.contacts, isl, scfg)
	}
}

// healNonFinite reverts diverged bodies to their pre-step state and puts
// them to sleep, isolating the corruption from the rest of the island.
func (e *Engine) healNonFinite(res *Result) {
	e.world.Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		b := *bptr
		if b.Kind != body.Dynamic || !b.Awake || b.IsFinite() {
			return
		}
		b.RevertToValidState()
		b.Sleep()
		res.Errors = append(res.Errors, &StepError{Step: e.step, Body: h, Wrapped: ErrNonFinite})
		res.Events = append(res.Events, Event{Kind: BodySleep, Body: h})
	})
}
