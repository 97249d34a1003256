package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrNoRest is returned by Settle when alpha stays above the rest threshold.
var ErrNoRest = errors.New("sim: no rest within step limit")

type Config struct {
	AlphaDecay    float64       // alpha multiplier per step, in (0,1)
	AlphaMin      float64       // rest threshold
	VelocityDecay float64       // fraction of velocity removed per step
	FrameInterval time.Duration // one step per interval when running on a loop

	// ParallelThreshold is the particle count from which accelerations are
	// computed on all cores.
	ParallelThreshold int
}

func DefaultConfig() Config {
	return Config{
		AlphaDecay:        0.9772,
		AlphaMin:          0.1,
		VelocityDecay:     0.6,
		FrameInterval:     16 * time.Millisecond,
		ParallelThreshold: 512,
	}
}

func (c Config) Validate() error {
	if c.AlphaDecay <= 0 || c.AlphaDecay >= 1 {
		return fmt.Errorf("alpha decay must be in (0,1), got %f", c.AlphaDecay)
	}
	if c.AlphaMin <= 0 || c.AlphaMin >= 1 {
		return fmt.Errorf("alpha min must be in (0,1), got %f", c.AlphaMin)
	}
	if c.VelocityDecay < 0 || c.VelocityDecay > 1 {
		return fmt.Errorf("velocity decay must be in [0,1], got %f", c.VelocityDecay)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %s", c.FrameInterval)
	}
	return nil
}

// ParticleView is a read-only copy of one particle.
type ParticleView struct {
	ID       dynamo.ParticleID
	Kind     dynamo.Kind
	Key      string
	Category string
	Country  string
	Pos      r2.Vec
	Vel      r2.Vec
	Radius   float64
}

func (v ParticleView) IsAnchor() bool { return v.Kind == dynamo.KindAnchor }
func (v ParticleView) Speed() float64 { return r2.Norm(v.Vel) }

// Frame is the state handed to observers after each step. Observers own it.
type Frame struct {
	Step      int
	Alpha     float64
	Particles []ParticleView
}

type Observer interface {
	OnTick(f Frame)
}

type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnTick(f Frame) { fn(f) }

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

func viewOf(p *dynamo.Particle) ParticleView {
	return ParticleView{
		ID:       p.ID(),
		Kind:     p.Kind(),
		Key:      p.Key(),
		Category: p.Category(),
		Country:  p.Country(),
		Pos:      p.Pos,
		Vel:      p.Vel,
		Radius:   p.Radius,
	}
}
