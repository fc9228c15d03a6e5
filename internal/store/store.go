// Package store implements generational-handle arenas. A Handle is an
// (index, generation) pair; removing a slot bumps its generation so every
// outstanding handle to it becomes detectably stale instead of silently
// aliasing a reused slot.
package store

import "errors"

// Domain errors for handle-indexed access.
var (
	// ErrStaleHandle indicates a handle whose slot has been emptied or
	// reused since the handle was issued.
	ErrStaleHandle = errors.New("store: stale handle (generation mismatch)")

	// ErrNotFound indicates a handle whose index is out of range or whose
	// slot is empty.
	ErrNotFound = errors.New("store: handle not found")

	// ErrCapacity indicates the pool's configured capacity bound is
	// exhausted. This is not recoverable: the engine cannot proceed
	// without object storage.
	ErrCapacity = errors.New("store: pool capacity exhausted")
)

// Handle references a pool slot. The zero Handle is never issued and acts
// as a nil reference.
type Handle struct {
	Index      uint32
	Generation uint32
}

// Nil is the invalid handle.
var Nil = Handle{}

// IsNil reports whether h is the invalid handle.
func (h Handle) IsNil() bool { return h.Generation == 0 }

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Pool is a generational arena of T. Slot indices are reused through a
// free list; generations disambiguate reuse.
type Pool[T any] struct {
	slots    []slot[T]
	free     []uint32
	count    int
	capacity int // 0 means unbounded
}

// NewPool returns an unbounded pool.
func NewPool[T any]() *Pool[T] { return &Pool[T]{} }

// NewBoundedPool returns a pool that fails with ErrCapacity once capacity
// live elements are stored.
func NewBoundedPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{capacity: capacity}
}

// Len returns the number of live elements.
func (p *Pool[T]) Len() int { return p.count }

// Insert stores v and returns its handle.
func (p *Pool[T]) Insert(v T) (Handle, error) {
	if p.capacity > 0 && p.count >= p.capacity {
		return Nil, ErrCapacity
	}
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slot[T]{})
	}
	s := &p.slots[idx]
	s.value = v
	s.generation++
	s.occupied = true
	p.count++
	return Handle{Index: idx, Generation: s.generation}, nil
}

// Remove deletes the element at h, invalidating h and every copy of it.
func (p *Pool[T]) Remove(h Handle) (T, error) {
	var zero T
	s, err := p.lookup(h)
	if err != nil {
		return zero, err
	}
	out := s.value
	s.value = zero
	s.occupied = false
	// Bumping here, not on reuse, makes outstanding handles stale the
	// moment the slot empties.
	s.generation++
	p.free = append(p.free, h.Index)
	p.count--
	return out, nil
}

// Get returns a pointer to the element at h. The pointer is valid until the
// next Insert or Remove.
func (p *Pool[T]) Get(h Handle) (*T, error) {
	s, err := p.lookup(h)
	if err != nil {
		return nil, err
	}
	return &s.value, nil
}

// Contains reports whether h currently refers to a live element.
func (p *Pool[T]) Contains(h Handle) bool {
	_, err := p.lookup(h)
	return err == nil
}

// At returns the live element at slot index i, if any, along with its
// current handle. It bypasses generation checks and exists for ordered
// iteration.
func (p *Pool[T]) At(i int) (*T, Handle, bool) {
	if i < 0 || i >= len(p.slots) {
		return nil, Nil, false
	}
	s := &p.slots[i]
	if !s.occupied {
		return nil, Nil, false
	}
	return &s.value, Handle{Index: uint32(i), Generation: s.generation}, true
}

// SlotCount returns the number of allocated slots, live or free.
func (p *Pool[T]) SlotCount() int { return len(p.slots) }

// ForEach visits live elements in ascending slot order. The fixed order is
// what keeps iteration deterministic across runs.
func (p *Pool[T]) ForEach(f func(Handle, *T)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.occupied {
			f(Handle{Index: uint32(i), Generation: s.generation}, &s.value)
		}
	}
}

// Capacity returns the configured bound, 0 when unbounded.
func (p *Pool[T]) Capacity() int { return p.capacity }

// GenerationAt returns slot i's generation counter, live or vacant.
func (p *Pool[T]) GenerationAt(i int) uint32 {
	if i < 0 || i >= len(p.slots) {
		return 0
	}
	return p.slots[i].generation
}

// FreeList returns the vacant slot indices in reuse order; the last entry
// is reused first.
func (p *Pool[T]) FreeList() []uint32 { return p.free }

// Restore rebuilds the exact arena layout from checkpoint data: slot
// generations, occupancy flags and the free-list reuse order. Values of
// occupied slots are installed afterwards with RestoreValue. The layout
// must round-trip exactly so that outstanding handles, iteration order
// and future slot reuse all behave as in the original pool.
func (p *Pool[T]) Restore(capacity int, generations []uint32, occupied []bool, free []uint32) {
	p.capacity = capacity
	p.slots = make([]slot[T], len(generations))
	p.count = 0
	for i := range generations {
		p.slots[i].generation = generations[i]
		p.slots[i].occupied = occupied[i]
		if occupied[i] {
			p.count++
		}
	}
	p.free = append([]uint32(nil), free...)
}

// RestoreValue sets the value of an occupied slot after Restore.
func (p *Pool[T]) RestoreValue(i int, v T) {
	p.slots[i].value = v
}

func (p *Pool[T]) lookup(h Handle) (*slot[T], error) {
	if h.IsNil() || int(h.Index) >= len(p.slots) {
		return nil, ErrNotFound
	}
	s := &p.slots[h.Index]
	if s.generation != h.Generation {
		return nil, ErrStaleHandle
	}
	if !s.occupied {
		return nil, ErrNotFound
	}
	return s, nil
}
