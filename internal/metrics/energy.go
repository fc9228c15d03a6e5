package metrics

import (
	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

type Energy struct {
	name        string
	samples     int
	totalEnergy float64
	last        float64
}

func NewEnergy() *Energy {
	return &Energy{name: "kinetic_energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(w *world.World, res *pipeline.Result, t float64) {
	total := 0.0
	w.Bodies.ForEach(func(_ store.Handle, b **body.Body) {
		if (*b).Kind == body.Dynamic {
			total += (*b).KineticEnergy()
		}
	})
	e.last = total
	e.totalEnergy += total
	e.samples++
}

// Value returns the mean total kinetic energy over the observed steps.
func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

// Last returns the most recent sample, used for time-series plots.
func (e *Energy) Last() float64 { return e.last }

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
	e.last = 0
}
