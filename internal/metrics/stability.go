package metrics

import (
	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

// Stability counts steps that reported recoverable errors (diverged
// bodies, failed pairs); 1.0 means every observed step was clean.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(w *world.World, res *pipeline.Result, t float64) {
	s.samples++
	if len(res.Errors) > 0 {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Activity tracks the mean fraction of dynamic bodies awake; sleeping
// scenes trend toward 0.
type Activity struct {
	name    string
	sum     float64
	samples int
	last    float64
}

func NewActivity() *Activity {
	return &Activity{name: "activity"}
}

func (a *Activity) Name() string {
	return a.name
}

func (a *Activity) Observe(w *world.World, res *pipeline.Result, t float64) {
	dynamic, awake := 0, 0
	w.Bodies.ForEach(func(_ store.Handle, b **body.Body) {
		if (*b).Kind != body.Dynamic {
			return
		}
		dynamic++
		if (*b).Awake {
			awake++
		}
	})
	ratio := 1.0
	if dynamic > 0 {
		ratio = float64(awake) / float64(dynamic)
	}
	a.last = ratio
	a.sum += ratio
	a.samples++
}

func (a *Activity) Value() float64 {
	if a.samples == 0 {
		return 1.0
	}
	return a.sum / float64(a.samples)
}

func (a *Activity) Last() float64 { return a.last }

func (a *Activity) Reset() {
	a.sum = 0
	a.samples = 0
	a.last = 0
}
