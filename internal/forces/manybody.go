package forces

import (
	"math"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
)

// ManyBody pushes free particles apart with an inverse-distance force.
// Only free particles act as sources.
type ManyBody struct {
	Strength    float64 // negative repels
	DistanceMin float64
	DistanceMax float64 // zero means unbounded
	Theta       float64 // zero computes every pair

	plane barneshut.Plane
	theta float64
	alpha float64
}

func NewManyBody(strength, distanceMax float64) *ManyBody {
	return &ManyBody{
		Strength:    strength,
		DistanceMin: 1,
		DistanceMax: distanceMax,
		Theta:       0.9,
	}
}

func (m *ManyBody) Prepare(env *Env) {
	var sources []barneshut.Particle2
	for _, p := range env.Particles {
		if !p.IsAnchor() {
			sources = append(sources, p)
		}
	}
	m.alpha = env.Alpha
	m.theta = m.Theta
	m.plane = barneshut.Plane{Particles: sources}
	if m.theta <= 0 {
		return
	}
	if err := m.plane.Reset(); err != nil {
		// Coincident sources cannot be split into a tree.
		m.plane = barneshut.Plane{Particles: sources}
		m.theta = 0
	}
}

func (m *ManyBody) Accel(p *dynamo.Particle, _ *Env) r2.Vec {
	return m.plane.ForceOn(p, m.theta, m.pair)
}

// pair follows barneshut.Force2; v points from the target toward the source.
func (m *ManyBody) pair(_, _ barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
	d2 := r2.Norm2(v)
	if d2 == 0 {
		return r2.Vec{}
	}
	if m.DistanceMax > 0 && d2 >= m.DistanceMax*m.DistanceMax {
		return r2.Vec{}
	}
	if min2 := m.DistanceMin * m.DistanceMin; d2 < min2 {
		d2 = m.DistanceMin * math.Sqrt(d2)
	}
	return r2.Scale(m.Strength*m.alpha*m2/d2, v)
}
