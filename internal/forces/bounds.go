package forces

import (
	"math"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Bounds clamps every free particle into Rect, inset by its radius plus
// Padding.
type Bounds struct {
	Rect    r2.Box
	Padding float64
}

func NewBounds(rect r2.Box) *Bounds { return &Bounds{Rect: rect} }

func (b *Bounds) Resolve(env *Env) {
	for _, p := range env.Particles {
		b.clamp(p)
	}
}

func (b *Bounds) clamp(p *dynamo.Particle) {
	if p.IsAnchor() {
		return
	}
	r := p.Radius + b.Padding
	p.Pos.X = clampAxis(p.Pos.X, b.Rect.Min.X, b.Rect.Max.X, r)
	p.Pos.Y = clampAxis(p.Pos.Y, b.Rect.Min.Y, b.Rect.Max.Y, r)
}

// Contains reports whether p lies inside the inset rectangle.
func (b *Bounds) Contains(p *dynamo.Particle) bool {
	r := p.Radius + b.Padding
	return inAxis(p.Pos.X, b.Rect.Min.X, b.Rect.Max.X, r) &&
		inAxis(p.Pos.Y, b.Rect.Min.Y, b.Rect.Max.Y, r)
}

func inAxis(v, lo, hi, r float64) bool {
	lo, hi = lo+r, hi-r
	if lo > hi {
		return v == (lo+hi)/2
	}
	return v >= lo && v <= hi
}

func clampAxis(v, lo, hi, r float64) float64 {
	lo, hi = lo+r, hi-r
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
