package transition_test

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/forces"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/transition"
	"gonum.org/v1/gonum/spatial/r2"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var quiet = slog.New(slog.DiscardHandler)

type specimen struct {
	category string
	country  string
}

type fixture struct {
	loop   *loop.Loop
	store  *dynamo.Store
	links  *dynamo.LinkTable
	sim    *sim.Simulator
	bounds *forces.Bounds
	frames []sim.Frame
	events []transition.Event
}

// newFixture builds a 400x400 stage with the given anchors and one free
// particle per specimen clustered around the init anchor.
func newFixture(anchors map[string]r2.Vec, specimens []specimen) *fixture {
	f := &fixture{loop: loop.NewVirtual(epoch), store: dynamo.NewStore()}

	if _, err := f.store.CreateAnchor("init", r2.Vec{X: 0, Y: -100}); err != nil {
		panic(err)
	}
	for _, key := range slices.Sorted(maps.Keys(anchors)) {
		if _, err := f.store.CreateAnchor(key, anchors[key]); err != nil {
			panic(err)
		}
	}
	for i, s := range specimens {
		f.store.CreateFree(s.category, s.country, r2.Vec{X: float64(i)*3 - 4, Y: -90})
	}

	var err error
	f.links, err = dynamo.NewLinkTable(f.store, "init", 1, 0)
	if err != nil {
		panic(err)
	}

	f.bounds = forces.NewBounds(r2.Box{Min: r2.Vec{X: -200, Y: -200}, Max: r2.Vec{X: 200, Y: 200}})
	fc := forces.NewComposer()
	must(fc.Register("charge", forces.NewManyBody(-15, 400.0/3)))
	must(fc.Register("link", forces.NewLink(f.store, f.links)))
	must(fc.Register("x", forces.PositionX(0.1)))
	must(fc.Register("y", forces.PositionY(0.1)))
	must(fc.RegisterConstraint("collide", forces.NewCollide(2, 4)))
	must(fc.RegisterConstraint("bounds", f.bounds))

	f.sim, err = sim.New(f.store, fc, sim.DefaultConfig(), quiet)
	if err != nil {
		panic(err)
	}
	f.sim.AddObserver(sim.ObserverFunc(func(fr sim.Frame) { f.frames = append(f.frames, fr) }))
	return f
}

func (f *fixture) controller(phases []transition.Phase, opts transition.Options) *transition.Controller {
	opts.Logger = quiet
	c := transition.New(f.loop, f.sim, f.store, f.links, phases, opts)
	c.OnEvent(func(ev transition.Event) { f.events = append(f.events, ev) })
	return c
}

func (f *fixture) eventsOf(kind transition.EventKind) []transition.Event {
	var out []transition.Event
	for _, ev := range f.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func byCategory(p *dynamo.Particle) string { return "category:" + p.Category() }
func byCountry(p *dynamo.Particle) string  { return "country:" + p.Country() }

func phase(name string, resolver func(*dynamo.Particle) string, size int) transition.Phase {
	return transition.Phase{
		Name:          name,
		Resolver:      resolver,
		BatchSize:     size,
		BatchInterval: 30 * time.Millisecond,
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
