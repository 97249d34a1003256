package forces

import (
	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Link pulls each free particle toward the anchor its link currently
// targets. The table is read once per step in Prepare.
type Link struct {
	table *dynamo.LinkTable
	store *dynamo.Store

	pulls map[dynamo.ParticleID]pull
	alpha float64
}

type pull struct {
	target   r2.Vec
	strength float64
	rest     float64
}

func NewLink(st *dynamo.Store, table *dynamo.LinkTable) *Link {
	return &Link{table: table, store: st}
}

func (l *Link) Prepare(env *Env) {
	links := l.table.Links()
	if l.pulls == nil {
		l.pulls = make(map[dynamo.ParticleID]pull, len(links))
	}
	for _, ln := range links {
		anchor, ok := l.store.Anchor(ln.Target)
		if !ok {
			delete(l.pulls, ln.Source)
			continue
		}
		l.pulls[ln.Source] = pull{
			target:   r2.Add(anchor.Pos, anchor.Vel),
			strength: ln.Strength,
			rest:     ln.RestDistance,
		}
	}
	l.alpha = env.Alpha
}

func (l *Link) Accel(p *dynamo.Particle, _ *Env) r2.Vec {
	pl, ok := l.pulls[p.ID()]
	if !ok {
		return r2.Vec{}
	}
	delta := r2.Sub(pl.target, r2.Add(p.Pos, p.Vel))
	d := r2.Norm(delta)
	if d == 0 {
		return r2.Vec{}
	}
	k := (d - pl.rest) / d * l.alpha * pl.strength
	return r2.Scale(k, delta)
}
