package metrics

import (
	"github.com/san-kum/clusterflow/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Containment is the fraction of frames in which every free particle lay
// inside rect, inset by its radius plus padding.
type Containment struct {
	name       string
	rect       r2.Box
	padding    float64
	violations int
	samples    int
}

func NewContainment(rect r2.Box, padding float64) *Containment {
	return &Containment{
		name:    "containment",
		rect:    rect,
		padding: padding,
	}
}

func (c *Containment) Name() string {
	return c.name
}

// tolerance absorbs rounding in the clamp.
const tolerance = 1e-9

func (c *Containment) Observe(f sim.Frame) {
	c.samples++
	for _, p := range f.Particles {
		if p.IsAnchor() {
			continue
		}
		r := p.Radius + c.padding
		if p.Pos.X < c.rect.Min.X+r-tolerance || p.Pos.X > c.rect.Max.X-r+tolerance ||
			p.Pos.Y < c.rect.Min.Y+r-tolerance || p.Pos.Y > c.rect.Max.Y-r+tolerance {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
