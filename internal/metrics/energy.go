package metrics

import (
	"math"

	"github.com/san-kum/clusterflow/internal/sim"
)

// KineticEnergy is the total kinetic energy of the free particles in the
// latest frame, with unit mass.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	e.value = kinetic(f)
}

func (e *KineticEnergy) Value() float64 { return e.value }

func (e *KineticEnergy) Reset() { e.value = 0 }

// PeakEnergy tracks the largest kinetic energy seen since Reset.
type PeakEnergy struct {
	name string
	peak float64
}

func NewPeakEnergy() *PeakEnergy {
	return &PeakEnergy{name: "peak_energy"}
}

func (e *PeakEnergy) Name() string { return e.name }

func (e *PeakEnergy) Observe(f sim.Frame) {
	e.peak = math.Max(e.peak, kinetic(f))
}

func (e *PeakEnergy) Value() float64 { return e.peak }

func (e *PeakEnergy) Reset() { e.peak = 0 }

func kinetic(f sim.Frame) float64 {
	total := 0.0
	for _, p := range f.Particles {
		if p.IsAnchor() {
			continue
		}
		total += 0.5 * (p.Vel.X*p.Vel.X + p.Vel.Y*p.Vel.Y)
	}
	return total
}

// Moving counts the free particles faster than a threshold in the latest
// frame.
type Moving struct {
	name      string
	threshold float64
	count     int
}

func NewMoving(threshold float64) *Moving {
	return &Moving{name: "moving", threshold: threshold}
}

func (m *Moving) Name() string { return m.name }

func (m *Moving) Observe(f sim.Frame) {
	m.count = 0
	for _, p := range f.Particles {
		if !p.IsAnchor() && p.Speed() > m.threshold {
			m.count++
		}
	}
}

func (m *Moving) Value() float64 { return float64(m.count) }

func (m *Moving) Reset() { m.count = 0 }
