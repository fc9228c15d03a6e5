package narrowphase

import (
	"errors"
	"sort"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/broadphase"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
)

// Domain errors. Both exclude the offending pair from the step's manifold
// set; neither aborts the step.
var (
	// ErrUnsupportedShapePair indicates a shape-kind combination with no
	// dispatch entry.
	ErrUnsupportedShapePair = errors.New("narrowphase: unsupported shape pair")

	// ErrDegenerateShape wraps geom.ErrDegenerate for a collider seen
	// during dispatch.
	ErrDegenerateShape = errors.New("narrowphase: degenerate shape")
)

type collideFunc func(m *Manifold, a *geom.Shape, xfA mathx.Transform, b *geom.Shape, xfB mathx.Transform)

type dispatchEntry struct {
	fn   collideFunc
	swap bool // evaluate with colliders exchanged
}

// dispatch is the closed table over unordered shape-kind pairs. A nil entry
// means the combination is unsupported.
var dispatch [geom.NumKinds][geom.NumKinds]dispatchEntry

func init() {
	set := func(a, b geom.Kind, fn collideFunc) {
		dispatch[a][b] = dispatchEntry{fn: fn}
		if a != b {
			dispatch[b][a] = dispatchEntry{fn: fn, swap: true}
		}
	}
	set(geom.KindCircle, geom.KindCircle, collideCircles)
	set(geom.KindPolygon, geom.KindCircle, collidePolygonCircle)
	set(geom.KindPolygon, geom.KindPolygon, collidePolygons)
	set(geom.KindCapsule, geom.KindCircle, collideCapsuleCircle)
	set(geom.KindCapsule, geom.KindCapsule, collideCapsuleCapsule)
	set(geom.KindPolygon, geom.KindCapsule, collidePolygonCapsule)
	set(geom.KindSegment, geom.KindCircle, collideSegmentCircle)
	set(geom.KindSegment, geom.KindPolygon, collideSegmentPolygon)
	// segment-segment and segment-capsule have no routine; those pairs
	// surface ErrUnsupportedShapePair and are skipped.
}

// Contact is the persistent narrow-phase state of one collider pair.
// ColliderA/ColliderB are ordered to match the dispatch table's canonical
// shape order, which may be the reverse of the broad-phase pair.
type Contact struct {
	ColliderA, ColliderB store.Handle
	BodyA, BodyB         store.Handle

	Manifold Manifold
	Friction    float64
	Restitution float64
	Touching    bool
}

// PairKey identifies a contact by its broad-phase pair.
type PairKey = broadphase.Pair

// Event flags a touch transition for one pair.
type Event struct {
	Pair  PairKey
	Begun bool
}

// PairError records a recoverable narrow-phase failure for one pair.
type PairError struct {
	Pair PairKey
	Err  error
}

func (e *PairError) Error() string { return e.Err.Error() }
func (e *PairError) Unwrap() error { return e.Err }

// Set persists contacts across steps, keyed by broad-phase pair.
type Set struct {
	contacts map[PairKey]*Contact

	// WarmStartTolerance is the positional fallback radius for carrying
	// impulses when feature ids churn.
	WarmStartTolerance float64
}

// NewSet returns an empty contact set.
func NewSet() *Set {
	return &Set{
		contacts:           make(map[PairKey]*Contact),
		WarmStartTolerance: 0.02,
	}
}

// Lookup is used by tests and the snapshot codec.
func (s *Set) Lookup(p PairKey) (*Contact, bool) {
	c, ok := s.contacts[p]
	return c, ok
}

// ForEach visits contacts in deterministic pair order via the provided
// ordered pair list.
func (s *Set) ForEach(pairs []PairKey, f func(PairKey, *Contact)) {
	for _, p := range pairs {
		if c, ok := s.contacts[p]; ok {
			f(p, c)
		}
	}
}

// Pairs returns all contact keys ordered by slot indices, for checkpoint
// writes and ordered inspection.
func (s *Set) Pairs() []PairKey {
	ps := make([]PairKey, 0, len(s.contacts))
	for p := range s.contacts {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].A.Index != ps[j].A.Index {
			return ps[i].A.Index < ps[j].A.Index
		}
		return ps[i].B.Index < ps[j].B.Index
	})
	return ps
}

// Install places a restored contact, overwriting any existing entry.
func (s *Set) Install(p PairKey, c *Contact) {
	s.contacts[p] = c
}

// Retire drops contacts for pairs whose bounds separated, emitting end
// events for those that were touching.
func (s *Set) Retire(ended []PairKey) []Event {
	var events []Event
	for _, p := range ended {
		if c, ok := s.contacts[p]; ok {
			if c.Touching {
				events = append(events, Event{Pair: p, Begun: false})
			}
			delete(s.contacts, p)
		}
	}
	return events
}

// Update regenerates the manifold for one candidate pair, carrying impulse
// accumulators from the previous step. It returns a touch-transition event
// if the pair began or stopped touching.
func (s *Set) Update(p PairKey, w colliderSource) (*Event, error) {
	ca, err := w.Collider(p.A)
	if err != nil {
		return nil, &PairError{Pair: p, Err: err}
	}
	cb, err := w.Collider(p.B)
	if err != nil {
		return nil, &PairError{Pair: p, Err: err}
	}

	if err := ca.Shape.Validate(); err != nil {
		s.drop(p)
		return nil, &PairError{Pair: p, Err: errors.Join(ErrDegenerateShape, err)}
	}
	if err := cb.Shape.Validate(); err != nil {
		s.drop(p)
		return nil, &PairError{Pair: p, Err: errors.Join(ErrDegenerateShape, err)}
	}

	entry := dispatch[ca.Shape.Kind][cb.Shape.Kind]
	if entry.fn == nil {
		s.drop(p)
		return nil, &PairError{Pair: p, Err: ErrUnsupportedShapePair}
	}

	first, second := p.A, p.B
	colA, colB := ca, cb
	if entry.swap {
		first, second = second, first
		colA, colB = colB, colA
	}

	bodyA, errA := w.Body(colA.Body)
	bodyB, errB := w.Body(colB.Body)
	if errA != nil {
		return nil, &PairError{Pair: p, Err: errA}
	}
	if errB != nil {
		return nil, &PairError{Pair: p, Err: errB}
	}

	c, existed := s.contacts[p]
	if !existed {
		c = &Contact{
			ColliderA: first,
			ColliderB: second,
			BodyA:     colA.Body,
			BodyB:     colB.Body,
			Friction:    body.MixFriction(colA.Friction, colB.Friction),
			Restitution: body.MixRestitution(colA.Restitution, colB.Restitution),
		}
		s.contacts[p] = c
	}

	old := c.Manifold
	c.Manifold = Manifold{}
	entry.fn(&c.Manifold, colA.Shape, bodyA.Xf, colB.Shape, bodyB.Xf)
	c.Manifold.CarryImpulses(&old, s.WarmStartTolerance)

	wasTouching := c.Touching
	c.Touching = c.Manifold.Count > 0

	if c.Touching != wasTouching {
		return &Event{Pair: p, Begun: c.Touching}, nil
	}
	return nil, nil
}

func (s *Set) drop(p PairKey) {
	delete(s.contacts, p)
}

// colliderSource decouples the contact set from the concrete object store.
type colliderSource interface {
	Collider(store.Handle) (*body.Collider, error)
	Body(store.Handle) (*body.Body, error)
}
