package metrics

import (
	"math"

	"github.com/san-kum/clusterflow/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Overlap reports the deepest interpenetration between two particles in the
// latest frame, using radius plus padding as the collision radius.
type Overlap struct {
	name    string
	padding float64
	max     float64
}

func NewOverlap(padding float64) *Overlap {
	return &Overlap{name: "max_overlap", padding: padding}
}

func (o *Overlap) Name() string {
	return o.name
}

type cell struct{ x, y int }

func (o *Overlap) Observe(f sim.Frame) {
	o.max = 0
	ps := f.Particles
	maxR := 0.0
	for _, p := range ps {
		maxR = math.Max(maxR, p.Radius+o.padding)
	}
	if maxR <= 0 {
		return
	}
	size := 2 * maxR
	key := func(v r2.Vec) cell {
		return cell{int(math.Floor(v.X / size)), int(math.Floor(v.Y / size))}
	}

	grid := make(map[cell][]int, len(ps))
	for i, p := range ps {
		k := key(p.Pos)
		grid[k] = append(grid[k], i)
	}
	for i, a := range ps {
		k := key(a.Pos)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, j := range grid[cell{k.x + dx, k.y + dy}] {
					b := ps[j]
					if j <= i || (a.IsAnchor() && b.IsAnchor()) {
						continue
					}
					d := r2.Norm(r2.Sub(a.Pos, b.Pos))
					o.max = math.Max(o.max, a.Radius+b.Radius+2*o.padding-d)
				}
			}
		}
	}
}

func (o *Overlap) Value() float64 {
	return o.max
}

func (o *Overlap) Reset() {
	o.max = 0
}
