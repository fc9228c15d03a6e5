// Package island partitions awake dynamic bodies into maximal sets coupled
// by touching contacts and joints. Islands are the unit of independent
// solving: no body belongs to two islands, so islands can be solved
// concurrently without locks. The package also owns the sleep/wake policy.
package island

import (
	"sort"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

// SleepConfig tunes the activation policy.
type SleepConfig struct {
	// LinearTolerance and AngularTolerance bound the velocity a sleep
	// candidate may have.
	LinearTolerance  float64
	AngularTolerance float64
	// TimeToSleep is how long every island member must remain below
	// tolerance before the island sleeps.
	TimeToSleep float64
}

// DefaultSleepConfig mirrors common engine defaults.
func DefaultSleepConfig() SleepConfig {
	return SleepConfig{
		LinearTolerance:  0.01,
		AngularTolerance: 2.0 / 180.0 * 3.14159265358979,
		TimeToSleep:      0.5,
	}
}

// ContactEdge couples two bodies through a touching manifold.
type ContactEdge struct {
	Pair   broadphase.Pair
	BodyA  store.Handle
	BodyB  store.Handle
}

// JointEdge couples two bodies through a joint.
type JointEdge struct {
	Joint store.Handle
	BodyA store.Handle
	BodyB store.Handle
}

// Island is one connected component of awake dynamic bodies plus the
// constraints acting inside it. Static/kinematic bodies referenced by the
// constraints are anchors, not members.
type Island struct {
	ID       int
	Bodies   []store.Handle
	Contacts []broadphase.Pair
	Joints   []store.Handle
}

// Builder computes islands with a union-find maintained across steps. New
// edges merge components in place; only components that lost an edge or a
// member are torn down and re-unioned, so steady scenes do little work.
type Builder struct {
	Sleep SleepConfig

	parent map[uint32]uint32
	rank   map[uint32]int

	// prevEdges is last step's union edge set, for the added/removed
	// delta that drives the incremental rebuild.
	prevEdges map[edgeKey]struct{}
}

// edgeKey is an unordered dynamic-body slot pair.
type edgeKey struct{ lo, hi uint32 }

func makeEdgeKey(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// NewBuilder returns a builder with the given sleep policy.
func NewBuilder(cfg SleepConfig) *Builder {
	return &Builder{
		Sleep:     cfg,
		parent:    make(map[uint32]uint32),
		rank:      make(map[uint32]int),
		prevEdges: make(map[edgeKey]struct{}),
	}
}

func (b *Builder) find(x uint32) uint32 {
	root := x
	for b.parent[root] != root {
		root = b.parent[root]
	}
	// Path compression.
	for b.parent[x] != root {
		b.parent[x], x = root, b.parent[x]
	}
	return root
}

func (b *Builder) union(x, y uint32) {
	rx, ry := b.find(x), b.find(y)
	if rx == ry {
		return
	}
	if b.rank[rx] < b.rank[ry] {
		rx, ry = ry, rx
	}
	b.parent[ry] = rx
	if b.rank[rx] == b.rank[ry] {
		b.rank[rx]++
	}
}

// dynamicPair reports whether an edge unions (both dynamic) or anchors.
func dynamic(w *world.World, h store.Handle) (*body.Body, bool) {
	bptr, err := w.Bodies.Get(h)
	if err != nil {
		return nil, false
	}
	return *bptr, (*bptr).Kind == body.Dynamic
}

// Build wakes bodies reachable from awake ones through the edge set, then
// extracts the islands of the awake dynamic bodies. Returned handles are
// the bodies that woke this step.
func (b *Builder) Build(w *world.World, contacts []ContactEdge, joints []JointEdge) ([]*Island, []store.Handle) {
	dyn := make(map[uint32]bool)
	w.Bodies.ForEach(func(h store.Handle, bb **body.Body) {
		if (*bb).Kind == body.Dynamic {
			dyn[h.Index] = true
		}
	})

	type edge struct{ a, b store.Handle }
	edges := make([]edge, 0, len(contacts)+len(joints))
	for _, c := range contacts {
		edges = append(edges, edge{c.BodyA, c.BodyB})
	}
	for _, j := range joints {
		edges = append(edges, edge{j.BodyA, j.BodyB})
	}

	cur := make(map[edgeKey]struct{}, len(edges))
	for _, e := range edges {
		if dyn[e.a.Index] && dyn[e.b.Index] {
			cur[makeEdgeKey(e.a.Index, e.b.Index)] = struct{}{}
		}
	}

	// A removed edge or a vanished member may have split its component;
	// mark those roots while the old forest is still intact.
	dirty := make(map[uint32]bool)
	for slot := range b.parent {
		if !dyn[slot] {
			dirty[b.find(slot)] = true
		}
	}
	for k := range b.prevEdges {
		if _, ok := cur[k]; ok {
			continue
		}
		if _, ok := b.parent[k.lo]; ok {
			dirty[b.find(k.lo)] = true
		}
		if _, ok := b.parent[k.hi]; ok {
			dirty[b.find(k.hi)] = true
		}
	}

	// Tear down only the dirty components. Everything else keeps its
	// parent chain from the previous step.
	reset := make(map[uint32]bool)
	if len(dirty) > 0 {
		for slot := range b.parent {
			if dirty[b.find(slot)] {
				reset[slot] = true
			}
		}
		for slot := range reset {
			delete(b.rank, slot)
			if dyn[slot] {
				b.parent[slot] = slot
			} else {
				delete(b.parent, slot)
			}
		}
	}

	// New dynamic bodies join as singletons.
	for slot := range dyn {
		if _, ok := b.parent[slot]; !ok {
			b.parent[slot] = slot
		}
	}

	// Union added edges, plus surviving edges inside torn-down components.
	for k := range cur {
		_, survived := b.prevEdges[k]
		if !survived || reset[k.lo] || reset[k.hi] {
			b.union(k.lo, k.hi)
		}
	}
	b.prevEdges = cur

	// Waking propagates through components: one awake member (or a moving
	// kinematic anchor) keeps or wakes the whole component.
	awakeRoot := make(map[uint32]bool)
	for _, e := range edges {
		ba, dynA := dynamic(w, e.a)
		bb, dynB := dynamic(w, e.b)
		switch {
		case dynA && dynB:
			if ba.Awake || bb.Awake {
				awakeRoot[b.find(e.a.Index)] = true
			}
		case dynA && bb != nil:
			// Anchor side: a moving kinematic body disturbs the island.
			if ba.Awake || isMoving(bb) {
				awakeRoot[b.find(e.a.Index)] = true
			}
		case dynB && ba != nil:
			if bb.Awake || isMoving(ba) {
				awakeRoot[b.find(e.b.Index)] = true
			}
		}
	}
	w.Bodies.ForEach(func(h store.Handle, bb **body.Body) {
		if (*bb).Kind == body.Dynamic && (*bb).Awake {
			awakeRoot[b.find(h.Index)] = true
		}
	})

	var woken []store.Handle
	w.Bodies.ForEach(func(h store.Handle, bb **body.Body) {
		bd := *bb
		if bd.Kind != body.Dynamic {
			return
		}
		if awakeRoot[b.find(h.Index)] && !bd.Awake {
			bd.WakeUp()
			woken = append(woken, h)
		}
	})

	// Extract islands of awake bodies, keyed and ordered by the minimum
	// slot index of the component for determinism.
	groups := make(map[uint32]*Island)
	w.Bodies.ForEach(func(h store.Handle, bb **body.Body) {
		bd := *bb
		if bd.Kind != body.Dynamic || !bd.Awake {
			return
		}
		root := b.find(h.Index)
		isl, ok := groups[root]
		if !ok {
			isl = &Island{}
			groups[root] = isl
		}
		isl.Bodies = append(isl.Bodies, h)
	})

	attach := func(root uint32) *Island { return groups[root] }
	for _, c := range contacts {
		if isl := b.islandOf(w, attach, c.BodyA, c.BodyB); isl != nil {
			isl.Contacts = append(isl.Contacts, c.Pair)
		}
	}
	for _, j := range joints {
		if isl := b.islandOf(w, attach, j.BodyA, j.BodyB); isl != nil {
			isl.Joints = append(isl.Joints, j.Joint)
		}
	}

	islands := make([]*Island, 0, len(groups))
	for _, isl := range groups {
		islands = append(islands, isl)
	}
	sort.Slice(islands, func(i, j int) bool {
		return islands[i].Bodies[0].Index < islands[j].Bodies[0].Index
	})
	for i, isl := range islands {
		isl.ID = i
	}
	return islands, woken
}

// islandOf returns the island owning the dynamic side of an edge, nil when
// both sides are asleep or non-dynamic.
func (b *Builder) islandOf(w *world.World, attach func(uint32) *Island, ha, hb store.Handle) *Island {
	if ba, dyn := dynamic(w, ha); dyn && ba.Awake {
		return attach(b.find(ha.Index))
	}
	if bb, dyn := dynamic(w, hb); dyn && bb.Awake {
		return attach(b.find(hb.Index))
	}
	return nil
}

func isMoving(bd *body.Body) bool {
	return bd.LinearVelocity.LenSqr() > 1e-12 || bd.AngularVelocity*bd.AngularVelocity > 1e-12
}

// EvaluateSleep runs the post-integration sleep pass for one island and
// reports the bodies it put to sleep. The policy is conservative: one
// member above tolerance keeps the entire island awake.
func (b *Builder) EvaluateSleep(w *world.World, isl *Island, dt float64) []store.Handle {
	cfg := b.Sleep
	minSleepTime := dt * 1e9

	linTol2 := cfg.LinearTolerance * cfg.LinearTolerance
	angTol2 := cfg.AngularTolerance * cfg.AngularTolerance

	for _, h := range isl.Bodies {
		bptr, err := w.Bodies.Get(h)
		if err != nil {
			continue
		}
		bd := *bptr

		// Running kinetic-energy estimate, exponentially smoothed so that
		// one quiet frame does not immediately qualify the body.
		bd.Energy = 0.25*bd.KineticEnergy() + 0.75*bd.Energy

		threshold := 0.5 * (bd.Mass*linTol2 + bd.I*angTol2)
		if !bd.AllowSleep ||
			bd.AngularVelocity*bd.AngularVelocity > angTol2 ||
			bd.LinearVelocity.LenSqr() > linTol2 ||
			bd.Energy > threshold {
			bd.SleepTime = 0
			minSleepTime = 0
		} else {
			bd.SleepTime += dt
			if bd.SleepTime < minSleepTime {
				minSleepTime = bd.SleepTime
			}
		}
	}

	var slept []store.Handle
	if minSleepTime >= cfg.TimeToSleep {
		for _, h := range isl.Bodies {
			if bptr, err := w.Bodies.Get(h); err == nil {
				(*bptr).Sleep()
				slept = append(slept, h)
			}
		}
	}
	return slept
}
