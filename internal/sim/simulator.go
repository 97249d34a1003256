package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/forces"
	"github.com/san-kum/clusterflow/internal/loop"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulator integrates the particle store under the composed forces with a
// decaying alpha. It is driven either synchronously through Step and Settle
// or by a frame timer on a loop.Loop; it is not safe for use from more than
// one goroutine.
type Simulator struct {
	cfg    Config
	store  *dynamo.Store
	forces *forces.Composer
	logger *slog.Logger

	alpha float64
	step  int

	particles []*dynamo.Particle
	accel     []r2.Vec
	prev      []r2.Vec

	timer *loop.Timer
	rest  *loop.Future

	observers []Observer
	metrics   []Metric

	instabilities int
}

func New(st *dynamo.Store, fc *forces.Composer, cfg Config, logger *slog.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		cfg:    cfg,
		store:  st,
		forces: fc,
		logger: logger,
		alpha:  1,
	}, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config     { return s.cfg }
func (s *Simulator) Alpha() float64     { return s.alpha }
func (s *Simulator) Steps() int         { return s.step }
func (s *Simulator) Instabilities() int { return s.instabilities }

func (s *Simulator) Forces() *forces.Composer { return s.forces }

// AtRest reports whether alpha has fallen below the rest threshold.
func (s *Simulator) AtRest() bool { return s.alpha < s.cfg.AlphaMin }

// Running reports whether a frame timer is active.
func (s *Simulator) Running() bool { return s.timer != nil && !s.timer.Stopped() }

func (s *Simulator) SetVelocityDecay(vd float64) error {
	if vd < 0 || vd > 1 {
		return fmt.Errorf("velocity decay must be in [0,1], got %f", vd)
	}
	s.cfg.VelocityDecay = vd
	return nil
}

// Reheat restores alpha to 1. Positions and velocities are untouched.
func (s *Simulator) Reheat() { s.alpha = 1 }

// Metrics returns the current value of every registered metric.
func (s *Simulator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Step advances the simulation by one tick and returns the resulting frame.
func (s *Simulator) Step() Frame {
	ps := s.snapshot()
	env := &forces.Env{Particles: ps, Alpha: s.alpha, Step: s.step}

	s.forces.Prepare(env)
	accel := func(start, end int) {
		for i := start; i < end; i++ {
			s.accel[i] = s.forces.Accel(ps[i], env)
		}
	}
	if len(ps) >= s.cfg.ParallelThreshold && s.cfg.ParallelThreshold > 0 {
		dynamo.ParallelFor(len(ps), 64, accel)
	} else {
		accel(0, len(ps))
	}

	keep := 1 - s.cfg.VelocityDecay
	for i, p := range ps {
		s.prev[i] = p.Pos
		if p.IsAnchor() {
			continue
		}
		p.Vel = r2.Scale(keep, r2.Add(p.Vel, s.accel[i]))
		p.Pos = r2.Add(p.Pos, p.Vel)
	}
	s.guard(ps)
	s.forces.Constrain(env)
	s.guard(ps)

	s.alpha *= s.cfg.AlphaDecay
	s.step++

	frame := s.Snapshot()
	for _, m := range s.metrics {
		m.Observe(frame)
	}
	for _, o := range s.observers {
		o.OnTick(frame)
	}
	return frame
}

// guard rolls back any particle whose update produced NaN or Inf.
func (s *Simulator) guard(ps []*dynamo.Particle) {
	for i, p := range ps {
		if p.IsAnchor() || p.IsFinite() {
			continue
		}
		p.Pos = s.prev[i]
		p.Vel = r2.Vec{}
		s.instabilities++
		err := &dynamo.InstabilityError{Step: s.step, Particle: p.ID(), Wrapped: dynamo.ErrNonFinite}
		s.logger.Warn("rejected particle update", "step", s.step, "particle", int(p.ID()), "err", err)
	}
}

func (s *Simulator) snapshot() []*dynamo.Particle {
	if len(s.particles) != s.store.Len() {
		s.particles = s.store.All()
		s.accel = make([]r2.Vec, len(s.particles))
		s.prev = make([]r2.Vec, len(s.particles))
	}
	return s.particles
}

// Snapshot copies the current particle state into a frame.
func (s *Simulator) Snapshot() Frame {
	ps := s.snapshot()
	views := make([]ParticleView, len(ps))
	for i, p := range ps {
		views[i] = viewOf(p)
	}
	return Frame{Step: s.step, Alpha: s.alpha, Particles: views}
}

// Start makes sure a frame timer is stepping the simulation on l. The timer
// stops itself once the simulation comes to rest.
func (s *Simulator) Start(l *loop.Loop) error {
	if s.Running() {
		return nil
	}
	if s.AtRest() {
		s.resolveRest()
		return nil
	}
	t, err := l.Every(s.cfg.FrameInterval, s.tick)
	if err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}
	s.timer = t
	s.logger.Debug("simulation started", "step", s.step, "alpha", s.alpha)
	return nil
}

// Stop halts the frame timer without touching alpha.
func (s *Simulator) Stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Simulator) tick() {
	s.Step()
	if s.AtRest() {
		s.Stop()
		s.logger.Debug("simulation at rest", "step", s.step, "alpha", s.alpha)
		s.resolveRest()
	}
}

// WhenRest returns a future resolved at the next rest. It is already
// resolved when the simulation is idle and at rest.
func (s *Simulator) WhenRest() *loop.Future {
	if !s.Running() && s.AtRest() {
		return loop.Resolved(nil)
	}
	if s.rest == nil {
		s.rest = loop.NewFuture()
	}
	return s.rest
}

func (s *Simulator) resolveRest() {
	if s.rest != nil {
		f := s.rest
		s.rest = nil
		f.Resolve(nil)
	}
}

// Settle steps synchronously until rest and returns the number of steps.
func (s *Simulator) Settle(maxSteps int) (int, error) {
	if s.Running() {
		return 0, fmt.Errorf("settle: simulation is running on a loop")
	}
	n := 0
	for !s.AtRest() {
		if n >= maxSteps {
			return n, fmt.Errorf("settle after %d steps (alpha %.4f): %w", n, s.alpha, ErrNoRest)
		}
		s.Step()
		n++
	}
	s.resolveRest()
	return n, nil
}
