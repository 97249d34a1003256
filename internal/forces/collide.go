package forces

import (
	"math"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Collide separates overlapping particles by moving them apart along the
// line between their centres. Each pass rebuilds a uniform grid of cell size
// twice the largest collision radius, so only neighbouring cells are tested.
//
// Iterations passes always run. Further passes, up to MaxIterations in
// total, run while two particles still overlap by more than Tolerance with
// their bare radii.
type Collide struct {
	Padding       float64 // added to each particle's Radius
	Strength      float64 // fraction of the overlap removed per pass
	Iterations    int
	MaxIterations int
	Tolerance     float64

	// Bounds, when set, keeps every separated particle inside the box so a
	// later clamp does not push pairs back together.
	Bounds *Bounds
}

func NewCollide(padding float64, iterations int) *Collide {
	return &Collide{
		Padding:       padding,
		Strength:      1,
		Iterations:    iterations,
		MaxIterations: iterations,
	}
}

type cell struct{ x, y int }

func (c *Collide) radius(p *dynamo.Particle) float64 { return p.Radius + c.Padding }

func (c *Collide) Resolve(env *Env) {
	ps := env.Particles
	if len(ps) < 2 {
		return
	}
	maxR := 0.0
	for _, p := range ps {
		maxR = math.Max(maxR, c.radius(p))
	}
	if maxR <= 0 {
		return
	}
	size := 2 * maxR

	grid := make(map[cell][]int, len(ps))
	for pass := 0; ; pass++ {
		if pass >= c.Iterations {
			if pass >= c.MaxIterations || c.worst(ps, grid, size) <= c.Tolerance {
				return
			}
		}
		c.index(ps, grid, size)
		c.eachPair(ps, grid, size, c.separate)
	}
}

// Worst returns the largest overlap between the bare radii of any two
// particles that are not both anchors.
func (c *Collide) Worst(ps []*dynamo.Particle) float64 {
	maxR := 0.0
	for _, p := range ps {
		maxR = math.Max(maxR, c.radius(p))
	}
	if maxR <= 0 || len(ps) < 2 {
		return 0
	}
	return c.worst(ps, make(map[cell][]int, len(ps)), 2*maxR)
}

func (c *Collide) worst(ps []*dynamo.Particle, grid map[cell][]int, size float64) float64 {
	c.index(ps, grid, size)
	worst := 0.0
	c.eachPair(ps, grid, size, func(a, b *dynamo.Particle) {
		if a.IsAnchor() && b.IsAnchor() {
			return
		}
		o := a.Radius + b.Radius - r2.Norm(r2.Sub(b.Pos, a.Pos))
		worst = math.Max(worst, o)
	})
	return worst
}

func (c *Collide) index(ps []*dynamo.Particle, grid map[cell][]int, size float64) {
	clear(grid)
	for i, p := range ps {
		k := cellOf(p.Pos, size)
		grid[k] = append(grid[k], i)
	}
}

// eachPair calls fn once for every pair in neighbouring cells. Positions
// may change inside fn; the grid is not rebuilt until the next call.
func (c *Collide) eachPair(ps []*dynamo.Particle, grid map[cell][]int, size float64, fn func(a, b *dynamo.Particle)) {
	for i, a := range ps {
		k := cellOf(a.Pos, size)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, j := range grid[cell{k.x + dx, k.y + dy}] {
					if j <= i {
						continue
					}
					fn(a, ps[j])
				}
			}
		}
	}
}

func cellOf(v r2.Vec, size float64) cell {
	return cell{int(math.Floor(v.X / size)), int(math.Floor(v.Y / size))}
}

func (c *Collide) separate(a, b *dynamo.Particle) {
	if a.IsAnchor() && b.IsAnchor() {
		return
	}
	ra, rb := c.radius(a), c.radius(b)
	minDist := ra + rb
	d := r2.Sub(b.Pos, a.Pos)
	l := r2.Norm(d)
	if l >= minDist {
		return
	}

	var dir r2.Vec
	if l == 0 {
		dir = jiggle(a.ID(), b.ID())
	} else {
		dir = r2.Scale(1/l, d)
	}
	overlap := (minDist - l) * c.Strength

	// Share of the overlap taken by a; the larger particle moves less.
	wa := rb * rb / (ra*ra + rb*rb)
	switch {
	case a.IsAnchor():
		wa = 0
	case b.IsAnchor():
		wa = 1
	}
	a.Pos = r2.Sub(a.Pos, r2.Scale(overlap*wa, dir))
	b.Pos = r2.Add(b.Pos, r2.Scale(overlap*(1-wa), dir))
	if c.Bounds != nil {
		c.Bounds.clamp(a)
		c.Bounds.clamp(b)
	}
}

// jiggle returns a unit vector derived from the pair's ids.
func jiggle(a, b dynamo.ParticleID) r2.Vec {
	ang := float64((int(a)*7919+int(b)*104729)%360) * math.Pi / 180
	return r2.Vec{X: math.Cos(ang), Y: math.Sin(ang)}
}
