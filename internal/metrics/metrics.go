// Package metrics provides per-step observers over the simulation state,
// sampled by the CLI after each pipeline step.
package metrics

import (
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/world"
)

// Metric observes the world after each step and reduces to one value.
type Metric interface {
	Name() string
	Observe(w *world.World, res *pipeline.Result, t float64)
	Value() float64
	Reset()
}
