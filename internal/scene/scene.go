// Package scene turns a configuration and a dataset into a ready-to-run
// layout: particle store, link table, forces, simulator and transition
// controller, all bound to one loop.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/san-kum/clusterflow/internal/config"
	"github.com/san-kum/clusterflow/internal/dataset"
	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/forces"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/stage"
	"github.com/san-kum/clusterflow/internal/storage"
	"github.com/san-kum/clusterflow/internal/transition"
)

// MovingSpeed is the speed above which a particle counts as moving.
const MovingSpeed = 0.1

// Force names in the composer.
const (
	ForceLinks   = "links"
	ForceCharge  = "charge"
	ForceX       = "x"
	ForceY       = "y"
	ForceCollide = "collide"
	ForceBounds  = "bounds"
)

var ErrStalled = errors.New("scene: loop went idle before the transition finished")

type Scene struct {
	Config     *config.Config
	Viewport   stage.Viewport
	Loop       *loop.Loop
	Store      *dynamo.Store
	Links      *dynamo.LinkTable
	Forces     *forces.Composer
	Sim        *sim.Simulator
	Controller *transition.Controller
	Trace      *TraceRecorder

	logger    *slog.Logger
	start     time.Time
	colorized atomic.Bool
	complete  atomic.Bool
}

// Build wires recs into a scene on l using the default registry.
func Build(cfg *config.Config, recs []dataset.Record, l *loop.Loop, logger *slog.Logger) (*Scene, error) {
	return NewRegistry().Build(cfg, recs, l, logger)
}

func (r *Registry) Build(cfg *config.Config, recs []dataset.Record, l *loop.Loop, logger *slog.Logger) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scene{
		Config:   cfg,
		Viewport: stage.Viewport{Width: cfg.Stage.Width, Height: cfg.Stage.Height},
		Loop:     l,
		Store:    dynamo.NewStore(),
		logger:   logger,
		start:    l.Now(),
	}

	if err := s.Viewport.Place(s.Store, dataset.Categories(recs), dataset.Countries(recs)); err != nil {
		return nil, err
	}
	for _, a := range s.Store.Anchors() {
		a.Radius = cfg.Forces.Radius
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	for _, rec := range recs {
		p := s.Store.CreateFree(rec.Category, rec.Country, s.Viewport.Spawn(rng))
		p.Radius = cfg.Forces.Radius
	}

	var err error
	s.Links, err = dynamo.NewLinkTable(s.Store, stage.InitKey, cfg.Forces.LinkStrength, cfg.Forces.LinkDistance)
	if err != nil {
		return nil, err
	}

	s.Forces, err = s.composeForces()
	if err != nil {
		return nil, err
	}

	simCfg := sim.DefaultConfig()
	simCfg.AlphaDecay = cfg.Simulation.AlphaDecay
	simCfg.AlphaMin = cfg.Simulation.AlphaMin
	simCfg.VelocityDecay = cfg.Simulation.VelocityDecay
	simCfg.FrameInterval = cfg.Simulation.FrameInterval()
	s.Sim, err = sim.New(s.Store, s.Forces, simCfg, logger)
	if err != nil {
		return nil, err
	}
	for _, m := range r.DefaultMetrics(cfg) {
		s.Sim.AddMetric(m)
	}

	s.Trace = NewTraceRecorder(l)
	s.Sim.AddObserver(s.Trace)

	phases, err := r.phases(s)
	if err != nil {
		return nil, err
	}
	s.Controller = transition.New(l, s.Sim, s.Store, s.Links, phases, transition.Options{
		Settle: cfg.Settle,
		Logger: logger,
	})
	s.Controller.OnEvent(func(ev transition.Event) {
		if ev.Kind == transition.EventComplete {
			s.complete.Store(true)
		}
	})

	logger.Info("scene built",
		"particles", len(s.Store.Free()),
		"anchors", len(s.Store.Anchors()),
		"phases", len(phases),
		"seed", cfg.Seed)
	return s, nil
}

func (s *Scene) composeForces() (*forces.Composer, error) {
	f := s.Config.Forces
	fc := forces.NewComposer()
	steps := []struct {
		name  string
		force forces.Force
	}{
		{ForceLinks, forces.NewLink(s.Store, s.Links)},
		{ForceCharge, s.charge(f.DistanceMaxFraction)},
		{ForceX, forces.PositionX(f.Center)},
		{ForceY, forces.PositionY(f.Center)},
	}
	for _, st := range steps {
		if err := fc.Register(st.name, st.force); err != nil {
			return nil, err
		}
	}
	bounds := forces.NewBounds(s.Viewport.Rect())
	bounds.Padding = f.BoundsPadding
	collide := forces.NewCollide(f.CollidePadding, f.CollideIterations)
	collide.MaxIterations = f.CollideMaxPasses
	collide.Tolerance = f.CollideTolerance
	collide.Bounds = bounds
	if err := fc.RegisterConstraint(ForceCollide, collide); err != nil {
		return nil, err
	}
	if err := fc.RegisterConstraint(ForceBounds, bounds); err != nil {
		return nil, err
	}
	return fc, nil
}

// charge is the repulsion with a range of fraction times the stage width.
func (s *Scene) charge(fraction float64) *forces.ManyBody {
	mb := forces.NewManyBody(s.Config.Forces.Charge, s.Viewport.Width*fraction)
	mb.Theta = s.Config.Forces.Theta
	return mb
}

func (r *Registry) phases(s *Scene) ([]transition.Phase, error) {
	out := make([]transition.Phase, 0, len(s.Config.Phases))
	for _, pc := range s.Config.Phases {
		resolve, err := r.Resolver(pc.Resolver)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", pc.Name, err)
		}
		out = append(out, transition.Phase{
			Name:          pc.Name,
			Resolver:      resolve,
			BatchSize:     pc.BatchSize,
			BatchInterval: pc.BatchInterval(),
			Enter:         s.enter(pc),
		})
	}
	return out, nil
}

// enter applies the tuning of a phase when it starts.
func (s *Scene) enter(pc config.PhaseConfig) func() error {
	return func() error {
		if pc.VelocityDecay != nil {
			if err := s.Sim.SetVelocityDecay(*pc.VelocityDecay); err != nil {
				return err
			}
		}
		if pc.DistanceMaxFraction != nil {
			if err := s.Forces.Replace(ForceCharge, s.charge(*pc.DistanceMaxFraction)); err != nil {
				return err
			}
		}
		if pc.Colorize {
			s.colorized.Store(true)
		}
		return nil
	}
}

// Colorized reports whether particles are drawn in category colours yet.
func (s *Scene) Colorized() bool { return s.colorized.Load() }

// Complete reports whether the last phase came to rest.
func (s *Scene) Complete() bool { return s.complete.Load() }

func (s *Scene) Elapsed() time.Duration { return s.Loop.Now().Sub(s.start) }

type Result struct {
	Meta   storage.RunMetadata
	Layout []sim.ParticleView
	Trace  []storage.TracePoint
}

// RunHeadless plays the whole transition on a virtual loop as fast as
// possible. A run cut short by ctx or limit still returns its partial
// result alongside the error.
func (s *Scene) RunHeadless(ctx context.Context, limit time.Duration) (*Result, error) {
	if !s.Loop.Virtual() {
		return nil, fmt.Errorf("headless run needs a virtual loop")
	}
	done, err := s.Controller.Start(ctx)
	if err != nil {
		return nil, err
	}

	ffErr := s.Loop.FastForward(ctx, limit)
	if !done.IsResolved() {
		if ffErr == nil {
			ffErr = ErrStalled
		}
		s.Controller.Cancel(ffErr)
	}
	s.Sim.Stop()

	runErr := done.Err()
	return s.Result(runErr), runErr
}

// Result snapshots the scene as a storable run.
func (s *Scene) Result(runErr error) *Result {
	names := make([]string, len(s.Config.Phases))
	for i, p := range s.Config.Phases {
		names[i] = p.Name
	}
	meta := storage.RunMetadata{
		Seed:      s.Config.Seed,
		Width:     s.Viewport.Width,
		Height:    s.Viewport.Height,
		Particles: len(s.Store.Free()),
		Anchors:   len(s.Store.Anchors()),
		Phases:    names,
		Steps:     s.Sim.Steps(),
		Elapsed:   s.Elapsed(),
		Completed: runErr == nil && s.Complete(),
		Colorized: s.Colorized(),
		Metrics:   s.Sim.Metrics(),
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	return &Result{
		Meta:   meta,
		Layout: s.Sim.Snapshot().Particles,
		Trace:  s.Trace.Points(),
	}
}
