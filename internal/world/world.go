// Package world aggregates the body, collider and joint pools behind
// generational handles, and enforces the cross-pool lifetime rules:
// removing a body removes its colliders and detaches its joints.
package world

import (
	"fmt"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/store"
)

// World is the object store the pipeline mutates in place.
type World struct {
	Bodies    *store.Pool[*body.Body]
	Colliders *store.Pool[*body.Collider]
	Joints    *store.Pool[*body.Joint]

	// bodyColliders maps a body slot index to the colliders it owns.
	bodyColliders map[uint32][]store.Handle
}

// New returns an empty, unbounded world.
func New() *World {
	return &World{
		Bodies:        store.NewPool[*body.Body](),
		Colliders:     store.NewPool[*body.Collider](),
		Joints:        store.NewPool[*body.Joint](),
		bodyColliders: make(map[uint32][]store.Handle),
	}
}

// NewBounded returns a world whose body pool fails with store.ErrCapacity
// beyond maxBodies.
func NewBounded(maxBodies int) *World {
	w := New()
	w.Bodies = store.NewBoundedPool[*body.Body](maxBodies)
	return w
}

// Body resolves a body handle, failing on stale or unknown handles.
func (w *World) Body(h store.Handle) (*body.Body, error) {
	b, err := w.Bodies.Get(h)
	if err != nil {
		return nil, err
	}
	return *b, nil
}

// Collider resolves a collider handle.
func (w *World) Collider(h store.Handle) (*body.Collider, error) {
	c, err := w.Colliders.Get(h)
	if err != nil {
		return nil, err
	}
	return *c, nil
}

// Joint resolves a joint handle.
func (w *World) Joint(h store.Handle) (*body.Joint, error) {
	j, err := w.Joints.Get(h)
	if err != nil {
		return nil, err
	}
	return *j, nil
}

// InsertBody adds a body and returns its handle.
func (w *World) InsertBody(b *body.Body) (store.Handle, error) {
	return w.Bodies.Insert(b)
}

// InsertCollider attaches a collider to owner. The owner's mass data is
// recomputed from all of its colliders.
func (w *World) InsertCollider(c *body.Collider, owner store.Handle) (store.Handle, error) {
	b, err := w.Bodies.Get(owner)
	if err != nil {
		return store.Nil, fmt.Errorf("insert collider: %w", err)
	}
	c.Body = owner
	h, err := w.Colliders.Insert(c)
	if err != nil {
		return store.Nil, err
	}
	w.bodyColliders[owner.Index] = append(w.bodyColliders[owner.Index], h)
	w.recomputeMass(owner, *b)
	return h, nil
}

// InsertJoint connects two live bodies and wakes them.
func (w *World) InsertJoint(j *body.Joint) (store.Handle, error) {
	ba, err := w.Bodies.Get(j.BodyA)
	if err != nil {
		return store.Nil, fmt.Errorf("insert joint: body A: %w", err)
	}
	bb, err := w.Bodies.Get(j.BodyB)
	if err != nil {
		return store.Nil, fmt.Errorf("insert joint: body B: %w", err)
	}
	h, err := w.Joints.Insert(j)
	if err != nil {
		return store.Nil, err
	}
	(*ba).WakeUp()
	(*bb).WakeUp()
	return h, nil
}

// RemoveBody removes a body, its colliders, and every joint referencing it.
func (w *World) RemoveBody(h store.Handle) error {
	if _, err := w.Bodies.Get(h); err != nil {
		return err
	}
	for _, ch := range w.bodyColliders[h.Index] {
		w.Colliders.Remove(ch)
	}
	delete(w.bodyColliders, h.Index)

	var dead []store.Handle
	w.Joints.ForEach(func(jh store.Handle, j **body.Joint) {
		if (*j).BodyA == h || (*j).BodyB == h {
			dead = append(dead, jh)
		}
	})
	for _, jh := range dead {
		w.Joints.Remove(jh)
	}

	_, err := w.Bodies.Remove(h)
	return err
}

// RemoveCollider detaches a collider from its owner and recomputes the
// owner's mass data.
func (w *World) RemoveCollider(h store.Handle) error {
	c, err := w.Colliders.Remove(h)
	if err != nil {
		return err
	}
	owned := w.bodyColliders[c.Body.Index]
	for i, ch := range owned {
		if ch == h {
			w.bodyColliders[c.Body.Index] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if b, err := w.Bodies.Get(c.Body); err == nil {
		w.recomputeMass(c.Body, *b)
	}
	return nil
}

// RemoveJoint removes a joint and wakes the bodies it connected.
func (w *World) RemoveJoint(h store.Handle) error {
	j, err := w.Joints.Remove(h)
	if err != nil {
		return err
	}
	if b, err := w.Bodies.Get(j.BodyA); err == nil {
		(*b).WakeUp()
	}
	if b, err := w.Bodies.Get(j.BodyB); err == nil {
		(*b).WakeUp()
	}
	return nil
}

// CollidersOf returns the handles of the colliders owned by a body.
func (w *World) CollidersOf(h store.Handle) []store.Handle {
	return w.bodyColliders[h.Index]
}

// RebuildIndex reconstructs the body-to-collider ownership index after the
// pools were bulk-restored from a checkpoint.
func (w *World) RebuildIndex() {
	w.bodyColliders = make(map[uint32][]store.Handle)
	w.Colliders.ForEach(func(h store.Handle, c **body.Collider) {
		owner := (*c).Body
		w.bodyColliders[owner.Index] = append(w.bodyColliders[owner.Index], h)
	})
}

func (w *World) recomputeMass(owner store.Handle, b *body.Body) {
	if b.Kind != body.Dynamic {
		b.SetMassData(0, 0, b.Sweep.LocalCenter)
		return
	}
	var mass, inertia float64
	center := mathx.V(0, 0)
	for _, ch := range w.bodyColliders[owner.Index] {
		c, err := w.Colliders.Get(ch)
		if err != nil {
			continue
		}
		md := (*c).Shape.ComputeMass((*c).Density)
		mass += md.Mass
		inertia += md.I
		center = center.Add(md.Center.Mul(md.Mass))
	}
	if mass > 0 {
		center = center.Mul(1.0 / mass)
	}
	b.SetMassData(mass, inertia, center)
}
