package forces

import (
	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Position is a weak spring toward Target along one axis.
type Position struct {
	Axis     Axis
	Target   float64
	Strength float64
}

func PositionX(strength float64) *Position { return &Position{Axis: AxisX, Strength: strength} }
func PositionY(strength float64) *Position { return &Position{Axis: AxisY, Strength: strength} }

func (f *Position) Accel(p *dynamo.Particle, env *Env) r2.Vec {
	k := f.Strength * env.Alpha
	if f.Axis == AxisX {
		return r2.Vec{X: (f.Target - p.Pos.X) * k}
	}
	return r2.Vec{Y: (f.Target - p.Pos.Y) * k}
}
