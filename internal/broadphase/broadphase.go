package broadphase

import (
	"sort"

	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
)

// Pair is a candidate collision pair of collider handles, ordered so that
// A < B by slot index.
type Pair struct {
	A, B store.Handle
}

// MakePair orders two collider handles canonically.
func MakePair(a, b store.Handle) Pair {
	if a.Index > b.Index {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// BroadPhase pairs the dynamic tree with a moved-proxy buffer and produces
// the step's candidate pairs plus begin/end pair deltas.
type BroadPhase struct {
	tree  *Tree
	moved []int

	// proxyCollider maps a proxy id back to its collider handle and
	// colliderProxy the reverse.
	proxyCollider map[int]store.Handle
	colliderProxy map[store.Handle]int

	// pairs is the current overlap set, carried across steps so that
	// begin/end deltas can be derived.
	pairs map[Pair]struct{}

	// pendingEnded holds pairs retired by proxy removal; they surface in
	// the next UpdatePairs delta so downstream contact state is released.
	pendingEnded []Pair
}

// New returns an empty broad phase.
func New() *BroadPhase {
	return &BroadPhase{
		tree:          NewTree(),
		proxyCollider: make(map[int]store.Handle),
		colliderProxy: make(map[store.Handle]int),
		pairs:         make(map[Pair]struct{}),
	}
}

// Add registers a collider's bounds and returns its proxy id.
func (bp *BroadPhase) Add(h store.Handle, bounds geom.AABB) int {
	proxy := bp.tree.CreateProxy(bounds, int(h.Index))
	bp.proxyCollider[proxy] = h
	bp.colliderProxy[h] = proxy
	bp.moved = append(bp.moved, proxy)
	return proxy
}

// Remove unregisters a proxy and retires any pairs involving it.
func (bp *BroadPhase) Remove(proxy int) {
	h := bp.proxyCollider[proxy]
	delete(bp.proxyCollider, proxy)
	delete(bp.colliderProxy, h)
	bp.tree.DestroyProxy(proxy)
	for i, m := range bp.moved {
		if m == proxy {
			bp.moved = append(bp.moved[:i], bp.moved[i+1:]...)
			break
		}
	}
	for p := range bp.pairs {
		if p.A == h || p.B == h {
			delete(bp.pairs, p)
			bp.pendingEnded = append(bp.pendingEnded, p)
		}
	}
}

// Move updates a proxy's bounds; only proxies whose fat bounds no longer
// cover the tight bounds are reindexed and re-paired.
func (bp *BroadPhase) Move(proxy int, bounds geom.AABB, displacement mathx.Vec2) {
	if bp.tree.MoveProxy(proxy, bounds, displacement) {
		bp.moved = append(bp.moved, proxy)
	}
}

// PairDelta describes candidate-pair churn for one step.
type PairDelta struct {
	Begun []Pair
	Ended []Pair
}

// UpdatePairs queries the tree around every moved proxy, refreshes the
// overlap set and returns this step's pair deltas plus the full current
// pair list in canonical order. filter rejects incompatible pairs before
// they are ever recorded.
func (bp *BroadPhase) UpdatePairs(filter func(a, b store.Handle) bool) (current []Pair, delta PairDelta) {
	found := make(map[Pair]struct{})

	for _, proxy := range bp.moved {
		if _, live := bp.proxyCollider[proxy]; !live {
			continue
		}
		fat := bp.tree.Bounds(proxy)
		bp.tree.Query(fat, func(other int) bool {
			if other == proxy {
				return true
			}
			// Both proxies moved: visit the pair only once, from the
			// lower proxy id.
			if bp.tree.nodes[other].moved && other < proxy {
				return true
			}
			a := bp.proxyCollider[proxy]
			b := bp.proxyCollider[other]
			p := MakePair(a, b)
			if _, seen := found[p]; seen {
				return true
			}
			if !filter(p.A, p.B) {
				return true
			}
			found[p] = struct{}{}
			return true
		})
	}

	for _, proxy := range bp.moved {
		if _, live := bp.proxyCollider[proxy]; live {
			bp.tree.nodes[proxy].moved = false
		}
	}
	bp.moved = bp.moved[:0]

	// Pairs whose proxy was removed since the last update ended.
	delta.Ended = append(delta.Ended, bp.pendingEnded...)
	bp.pendingEnded = bp.pendingEnded[:0]

	// Newly found overlaps begin; existing overlaps whose fat bounds have
	// separated end.
	for p := range found {
		if _, ok := bp.pairs[p]; !ok {
			bp.pairs[p] = struct{}{}
			delta.Begun = append(delta.Begun, p)
		}
	}
	for p := range bp.pairs {
		pa, okA := bp.proxyOf(p.A)
		pb, okB := bp.proxyOf(p.B)
		if !okA || !okB || !bp.tree.Bounds(pa).Overlaps(bp.tree.Bounds(pb)) {
			delete(bp.pairs, p)
			delta.Ended = append(delta.Ended, p)
		}
	}

	current = make([]Pair, 0, len(bp.pairs))
	for p := range bp.pairs {
		current = append(current, p)
	}
	sortPairs(current)
	sortPairs(delta.Begun)
	sortPairs(delta.Ended)
	return current, delta
}

func (bp *BroadPhase) proxyOf(h store.Handle) (int, bool) {
	proxy, ok := bp.colliderProxy[h]
	return proxy, ok
}

// Sync indexes the collider at the given bounds, creating its proxy on
// first sight and moving it otherwise.
func (bp *BroadPhase) Sync(h store.Handle, bounds geom.AABB, displacement mathx.Vec2) {
	if proxy, ok := bp.colliderProxy[h]; ok {
		bp.Move(proxy, bounds, displacement)
		return
	}
	bp.Add(h, bounds)
}

// Drop removes the collider's proxy if it is indexed.
func (bp *BroadPhase) Drop(h store.Handle) {
	if proxy, ok := bp.colliderProxy[h]; ok {
		bp.Remove(proxy)
	}
}

// Indexed returns the handles of all indexed colliders in slot order.
func (bp *BroadPhase) Indexed() []store.Handle {
	hs := make([]store.Handle, 0, len(bp.colliderProxy))
	for h := range bp.colliderProxy {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].Index < hs[j].Index })
	return hs
}

// Query reports every collider whose fat bounds overlap the given box.
// Return false from the callback to stop early.
func (bp *BroadPhase) Query(bounds geom.AABB, cb func(h store.Handle) bool) {
	bp.tree.Query(bounds, func(proxy int) bool {
		return cb(bp.proxyCollider[proxy])
	})
}

// sortPairs orders pairs by slot indices so downstream iteration is
// deterministic regardless of map ordering.
func sortPairs(ps []Pair) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].A.Index != ps[j].A.Index {
			return ps[i].A.Index < ps[j].A.Index
		}
		return ps[i].B.Index < ps[j].B.Index
	})
}
