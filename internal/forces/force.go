package forces

import (
	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Env is the snapshot a step is computed from.
type Env struct {
	Particles []*dynamo.Particle
	Alpha     float64
	Step      int
}

type Force interface {
	Accel(p *dynamo.Particle, env *Env) r2.Vec
}

// Preparer is implemented by forces that build per-step state once before
// Accel is called for every particle. Accel may then run concurrently.
type Preparer interface {
	Prepare(env *Env)
}

type Constraint interface {
	Resolve(env *Env)
}

type ForceFunc func(p *dynamo.Particle, env *Env) r2.Vec

func (f ForceFunc) Accel(p *dynamo.Particle, env *Env) r2.Vec { return f(p, env) }

type ConstraintFunc func(env *Env)

func (f ConstraintFunc) Resolve(env *Env) { f(env) }
