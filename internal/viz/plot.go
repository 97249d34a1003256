package viz

import (
	"math"

	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/stage"
	"gonum.org/v1/gonum/spatial/r2"
)

// MovingSpeed is the speed above which a particle is drawn over resting ones.
const MovingSpeed = 0.1

// Projection maps a stage rectangle onto canvas dots with one scale for
// both axes, centred.
type Projection struct {
	rect       r2.Box
	scale      float64
	offX, offY float64
}

func NewProjection(rect r2.Box, c *Canvas) Projection {
	size := r2.Sub(rect.Max, rect.Min)
	sw, sh := float64(c.SubWidth()), float64(c.SubHeight())
	scale := math.Min(sw/size.X, sh/size.Y)
	return Projection{
		rect:  rect,
		scale: scale,
		offX:  (sw - size.X*scale) / 2,
		offY:  (sh - size.Y*scale) / 2,
	}
}

func (p Projection) Point(v r2.Vec) (int, int) {
	x := (v.X-p.rect.Min.X)*p.scale + p.offX
	y := (v.Y-p.rect.Min.Y)*p.scale + p.offY
	return int(math.Floor(x)), int(math.Floor(y))
}

// DrawLayout plots every free particle of layout on c.
func DrawLayout(c *Canvas, rect r2.Box, layout []sim.ParticleView, colorized bool) {
	proj := NewProjection(rect, c)
	var moving []sim.ParticleView
	for _, p := range layout {
		if p.IsAnchor() {
			continue
		}
		if p.Speed() > MovingSpeed {
			moving = append(moving, p)
			continue
		}
		x, y := proj.Point(p.Pos)
		c.SetColor(x, y, stage.Color(p.Category, colorized))
	}
	for _, p := range moving {
		x, y := proj.Point(p.Pos)
		c.SetColor(x, y, stage.Color(p.Category, colorized))
	}
}
