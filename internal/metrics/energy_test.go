package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/world"
)

func TestEnergyObserve(t *testing.T) {
	w := world.New()
	b := body.New(body.Dynamic, mathx.V(0, 0), 0)
	b.Mass = 2.0
	b.InvMass = 0.5
	b.LinearVelocity = mathx.V(3, 4)
	if _, err := w.InsertBody(b); err != nil {
		t.Fatal(err)
	}

	m := NewEnergy()
	m.Observe(w, &pipeline.Result{}, 0)

	// 0.5 * 2 * 25 = 25
	expected := 25.0
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestActivityRatio(t *testing.T) {
	w := world.New()
	awake := body.New(body.Dynamic, mathx.V(0, 0), 0)
	asleep := body.New(body.Dynamic, mathx.V(1, 0), 0)
	asleep.Sleep()
	for _, b := range []*body.Body{awake, asleep} {
		if _, err := w.InsertBody(b); err != nil {
			t.Fatal(err)
		}
	}

	m := NewActivity()
	m.Observe(w, &pipeline.Result{}, 0)

	if m.Value() != 0.5 {
		t.Errorf("expected activity 0.5, got %f", m.Value())
	}
}

func TestStabilityViolations(t *testing.T) {
	w := world.New()
	m := NewStability()

	m.Observe(w, &pipeline.Result{}, 0)
	m.Observe(w, &pipeline.Result{Errors: []error{pipeline.ErrNonFinite}}, 0)

	if m.Value() != 0.5 {
		t.Errorf("expected stability 0.5, got %f", m.Value())
	}
}
