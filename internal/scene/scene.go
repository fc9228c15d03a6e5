// Package scene builds the example worlds driven by the CLI. Random scenes
// take an explicit seed so runs are reproducible.
package scene

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/world"
)

var ErrUnknownScene = errors.New("scene: unknown scene")

// Build constructs the named scene into w.
func Build(name string, seed int64, w *world.World) error {
	switch name {
	case "stack":
		return Stack(w, 10)
	case "projectile":
		return Projectile(w)
	case "mixer":
		return Mixer(w, seed, 40)
	}
	return fmt.Errorf("%w: %q", ErrUnknownScene, name)
}

// Stack is n unit boxes resting on static ground, the standard solver
// stress test: it exercises warm starting, stacking stability and sleep.
func Stack(w *world.World, n int) error {
	ground := body.New(body.Static, mathx.V(0, -0.5), 0)
	gh, err := w.InsertBody(ground)
	if err != nil {
		return err
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewBox(20, 0.5)), gh); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		b := body.New(body.Dynamic, mathx.V(0, 0.5+float64(i)*1.01), 0)
		bh, err := w.InsertBody(b)
		if err != nil {
			return err
		}
		col := body.NewCollider(geom.NewBox(0.5, 0.5))
		col.Friction = 0.5
		if _, err := w.InsertCollider(col, bh); err != nil {
			return err
		}
	}
	return nil
}

// Projectile is a small fast bullet aimed at a thin static wall. With the
// continuous pass enabled the bullet stops at the wall; without it the
// bullet tunnels straight through in one step.
func Projectile(w *world.World) error {
	wall := body.New(body.Static, mathx.V(10, 0), 0)
	wh, err := w.InsertBody(wall)
	if err != nil {
		return err
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewBox(0.005, 5)), wh); err != nil {
		return err
	}

	bullet := body.New(body.Dynamic, mathx.V(0, 0), 0)
	bullet.Bullet = true
	bullet.LinearVelocity = mathx.V(3000, 0)
	bullet.GravityScale = 0
	bh, err := w.InsertBody(bullet)
	if err != nil {
		return err
	}
	col := body.NewCollider(geom.NewCircle(0.05))
	col.Density = 10
	_, err = w.InsertCollider(col, bh)
	return err
}

// Mixer drops n random shapes into a container stirred by a kinematic
// paddle. The seed fixes every sampled size, position and shape kind.
func Mixer(w *world.World, seed int64, n int) error {
	rng := rand.New(rand.NewSource(seed))

	container := body.New(body.Static, mathx.V(0, 0), 0)
	ch, err := w.InsertBody(container)
	if err != nil {
		return err
	}
	walls := []*geom.Shape{
		geom.NewSegment(mathx.V(-8, 0), mathx.V(8, 0)),
		geom.NewSegment(mathx.V(-8, 0), mathx.V(-8, 12)),
		geom.NewSegment(mathx.V(8, 0), mathx.V(8, 12)),
	}
	for _, s := range walls {
		if _, err := w.InsertCollider(body.NewCollider(s), ch); err != nil {
			return err
		}
	}

	paddle := body.New(body.Kinematic, mathx.V(0, 3), 0)
	paddle.AngularVelocity = 1.5
	ph, err := w.InsertBody(paddle)
	if err != nil {
		return err
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewBox(3, 0.2)), ph); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		pos := mathx.V(-6+12*rng.Float64(), 5+6*rng.Float64())
		b := body.New(body.Dynamic, pos, rng.Float64()*6.28)
		bh, err := w.InsertBody(b)
		if err != nil {
			return err
		}

		var shape *geom.Shape
		switch rng.Intn(3) {
		case 0:
			shape = geom.NewCircle(0.2 + 0.3*rng.Float64())
		case 1:
			h := 0.2 + 0.3*rng.Float64()
			shape = geom.NewBox(h, h)
		default:
			r := 0.1 + 0.15*rng.Float64()
			shape = geom.NewCapsule(mathx.V(-0.3, 0), mathx.V(0.3, 0), r)
		}
		col := body.NewCollider(shape)
		col.Friction = 0.4
		col.Restitution = 0.1 + 0.2*rng.Float64()
		if _, err := w.InsertCollider(col, bh); err != nil {
			return err
		}
	}
	return nil
}
