package metrics

import (
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/world"
)

// Contacts tracks the mean number of candidate contacts per step, a proxy
// for broad-phase load.
type Contacts struct {
	name    string
	sum     float64
	samples int
	last    float64
}

func NewContacts() *Contacts {
	return &Contacts{name: "contacts"}
}

func (c *Contacts) Name() string {
	return c.name
}

func (c *Contacts) Observe(w *world.World, res *pipeline.Result, t float64) {
	c.last = float64(res.Contacts)
	c.sum += c.last
	c.samples++
}

func (c *Contacts) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *Contacts) Last() float64 { return c.last }

func (c *Contacts) Reset() {
	c.sum = 0
	c.samples = 0
	c.last = 0
}
