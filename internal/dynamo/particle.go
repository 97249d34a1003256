package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type ParticleID int

type Kind int

const (
	KindFree Kind = iota
	KindAnchor
)

func (k Kind) String() string {
	switch k {
	case KindAnchor:
		return "anchor"
	case KindFree:
		return "free"
	default:
		return "unknown"
	}
}

// Particle is either a fixed anchor or a free particle. Identity and labels
// are set by the Store and never change; Pos and Vel of free particles are
// written only by the integrator.
type Particle struct {
	id       ParticleID
	kind     Kind
	key      string
	category string
	country  string

	Pos    r2.Vec
	Vel    r2.Vec
	Radius float64
}

func (p *Particle) ID() ParticleID   { return p.id }
func (p *Particle) Kind() Kind       { return p.kind }
func (p *Particle) Key() string      { return p.key }
func (p *Particle) Category() string { return p.category }
func (p *Particle) Country() string  { return p.country }
func (p *Particle) IsAnchor() bool   { return p.kind == KindAnchor }

// Coord2 and Mass make a Particle usable as a barneshut.Particle2.
func (p *Particle) Coord2() r2.Vec { return p.Pos }
func (p *Particle) Mass() float64  { return 1 }

// Speed returns the magnitude of the velocity.
func (p *Particle) Speed() float64 { return r2.Norm(p.Vel) }

// IsFinite reports whether position and velocity hold no NaN or Inf.
func (p *Particle) IsFinite() bool {
	return IsFinite(p.Pos) && IsFinite(p.Vel)
}

func IsFinite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
