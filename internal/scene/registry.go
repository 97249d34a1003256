package scene

import (
	"fmt"
	"sort"

	"github.com/san-kum/clusterflow/internal/config"
	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/metrics"
	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/stage"
)

// Resolver names the anchor a free particle should be linked to.
type Resolver func(p *dynamo.Particle) string

type Registry struct {
	resolvers map[string]Resolver
}

func NewRegistry() *Registry {
	r := &Registry{resolvers: make(map[string]Resolver)}

	r.resolvers[config.ResolverInit] = func(*dynamo.Particle) string { return stage.InitKey }
	r.resolvers[config.ResolverCategory] = func(p *dynamo.Particle) string { return stage.CategoryKey(p.Category()) }
	r.resolvers[config.ResolverCountry] = func(p *dynamo.Particle) string { return stage.CountryKey(p.Country()) }

	return r
}

// Register adds or overrides a resolver.
func (r *Registry) Register(name string, fn Resolver) {
	r.resolvers[name] = fn
}

func (r *Registry) Resolver(name string) (Resolver, error) {
	fn, ok := r.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown resolver: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListResolvers() []string {
	names := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	vp := stage.Viewport{Width: cfg.Stage.Width, Height: cfg.Stage.Height}
	return []sim.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewPeakEnergy(),
		metrics.NewMoving(MovingSpeed),
		metrics.NewOverlap(cfg.Forces.CollidePadding),
		metrics.NewContainment(vp.Rect(), cfg.Forces.BoundsPadding),
	}
}
