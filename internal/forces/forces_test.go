package forces

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestComposerRegistry(t *testing.T) {
	g := NewWithT(t)
	c := NewComposer()

	g.Expect(c.Register("charge", NewManyBody(-15, 0))).To(Succeed())
	g.Expect(c.Register("x", PositionX(0.1))).To(Succeed())
	g.Expect(c.RegisterConstraint("collide", NewCollide(2, 4))).To(Succeed())
	g.Expect(c.Register("charge", PositionY(0.1))).NotTo(Succeed())
	g.Expect(c.RegisterConstraint("x", NewCollide(0, 1))).NotTo(Succeed())
	g.Expect(c.Replace("missing", PositionY(0.1))).NotTo(Succeed())
	g.Expect(c.ReplaceConstraint("missing", NewCollide(0, 1))).NotTo(Succeed())

	g.Expect(c.Names()).To(Equal([]string{"charge", "x", "collide"}))

	g.Expect(c.Replace("charge", NewManyBody(-30, 0))).To(Succeed())
	f, ok := c.Force("charge")
	g.Expect(ok).To(BeTrue())
	g.Expect(f.(*ManyBody).Strength).To(Equal(-30.0))
	g.Expect(c.Names()).To(Equal([]string{"charge", "x", "collide"}))

	g.Expect(c.Remove("x")).To(BeTrue())
	g.Expect(c.Remove("x")).To(BeFalse())
	g.Expect(c.Names()).To(Equal([]string{"charge", "collide"}))
}

func TestComposerSumsAndSkipsAnchors(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	anchor, _ := st.CreateAnchor("init", r2.Vec{X: 5})
	p := st.CreateFree("bee", "France", r2.Vec{X: 10, Y: -4})

	c := NewComposer()
	_ = c.Register("x", PositionX(0.1))
	_ = c.Register("y", PositionY(0.1))
	_ = c.Register("const", ForceFunc(func(*dynamo.Particle, *Env) r2.Vec { return r2.Vec{X: 1, Y: 1} }))

	env := &Env{Particles: st.All(), Alpha: 1}
	c.Prepare(env)

	a := c.Accel(p, env)
	g.Expect(a.X).To(BeNumerically("~", 0, 1e-12))
	g.Expect(a.Y).To(BeNumerically("~", 1.4, 1e-12))
	g.Expect(c.Accel(anchor, env)).To(Equal(r2.Vec{}))
}

func TestManyBodyRepels(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
	}{
		{"exact", 0},
		{"barnes-hut", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			st := dynamo.NewStore()
			a := st.CreateFree("bee", "", r2.Vec{})
			b := st.CreateFree("bee", "", r2.Vec{X: 10})

			m := NewManyBody(-15, 0)
			m.Theta = tt.theta
			env := &Env{Particles: st.All(), Alpha: 1}
			m.Prepare(env)

			fa := m.Accel(a, env)
			fb := m.Accel(b, env)
			g.Expect(fa.X).To(BeNumerically("~", -1.5, 1e-9))
			g.Expect(fa.Y).To(BeNumerically("~", 0, 1e-9))
			g.Expect(fb.X).To(BeNumerically("~", 1.5, 1e-9))
		})
	}
}

func TestManyBodyRangeAndSources(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	_, _ = st.CreateAnchor("init", r2.Vec{X: 1})
	a := st.CreateFree("bee", "", r2.Vec{})
	_ = st.CreateFree("bee", "", r2.Vec{X: 50})

	m := NewManyBody(-15, 40)
	env := &Env{Particles: st.All(), Alpha: 1}
	m.Prepare(env)

	// The anchor at distance 1 is not a source and the other particle is
	// out of range.
	g.Expect(m.Accel(a, env)).To(Equal(r2.Vec{}))
}

func TestManyBodySoftensCloseRange(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	a := st.CreateFree("bee", "", r2.Vec{})
	_ = st.CreateFree("bee", "", r2.Vec{X: 0.25})

	m := NewManyBody(-1, 0)
	m.Theta = 0
	env := &Env{Particles: st.All(), Alpha: 1}
	m.Prepare(env)

	// d2 = 0.0625 is softened to 1*sqrt(0.0625) = 0.25.
	g.Expect(m.Accel(a, env).X).To(BeNumerically("~", -1, 1e-9))
}

func TestLinkPullsTowardTarget(t *testing.T) {
	tests := []struct {
		name  string
		alpha float64
		rest  float64
		want  float64
	}{
		{"full", 1, 0, 100},
		{"half alpha", 0.5, 0, 50},
		{"rest distance", 1, 40, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			st := dynamo.NewStore()
			_, _ = st.CreateAnchor("target", r2.Vec{X: 100})
			p := st.CreateFree("bee", "", r2.Vec{})
			table, err := dynamo.NewLinkTable(st, "target", 1, tt.rest)
			g.Expect(err).NotTo(HaveOccurred())

			l := NewLink(st, table)
			env := &Env{Particles: st.All(), Alpha: tt.alpha}
			l.Prepare(env)
			a := l.Accel(p, env)
			g.Expect(a.X).To(BeNumerically("~", tt.want, 1e-9))
			g.Expect(a.Y).To(BeNumerically("~", 0, 1e-9))
		})
	}
}

func TestLinkFollowsRetarget(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	_, _ = st.CreateAnchor("left", r2.Vec{X: -10})
	_, _ = st.CreateAnchor("right", r2.Vec{X: 10})
	p := st.CreateFree("bee", "", r2.Vec{})
	table, _ := dynamo.NewLinkTable(st, "left", 1, 0)

	l := NewLink(st, table)
	env := &Env{Particles: st.All(), Alpha: 1}
	l.Prepare(env)
	g.Expect(l.Accel(p, env).X).To(BeNumerically("<", 0))

	g.Expect(table.SetTargets(map[dynamo.LinkID]string{0: "right"})).To(Succeed())
	l.Prepare(env)
	g.Expect(l.Accel(p, env).X).To(BeNumerically(">", 0))
}

func TestCollideSeparatesPairs(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	a := st.CreateFree("bee", "", r2.Vec{})
	b := st.CreateFree("bee", "", r2.Vec{X: 4})

	NewCollide(2, 1).Resolve(&Env{Particles: st.All()})

	// Equal radii share the overlap of 5 evenly.
	g.Expect(a.Pos.X).To(BeNumerically("~", -2.5, 1e-9))
	g.Expect(b.Pos.X).To(BeNumerically("~", 6.5, 1e-9))
}

func TestCollideAnchorsAreImmovable(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	anchor, _ := st.CreateAnchor("init", r2.Vec{})
	p := st.CreateFree("bee", "", r2.Vec{X: 1})

	NewCollide(2, 1).Resolve(&Env{Particles: st.All()})

	g.Expect(anchor.Pos).To(Equal(r2.Vec{}))
	g.Expect(p.Pos.X).To(BeNumerically("~", 9, 1e-9))
}

func TestCollideCoincident(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	a := st.CreateFree("bee", "", r2.Vec{X: 3, Y: 3})
	b := st.CreateFree("bee", "", r2.Vec{X: 3, Y: 3})

	NewCollide(2, 1).Resolve(&Env{Particles: st.All()})

	g.Expect(r2.Norm(r2.Sub(a.Pos, b.Pos))).To(BeNumerically("~", 9, 1e-9))
}

func TestCollideCrowd(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			st.CreateFree("bee", "", r2.Vec{X: float64(i) * 8, Y: float64(j) * 8})
		}
	}
	// Already spaced further than the minimum distance: nothing moves.
	before := make([]r2.Vec, 0, st.Len())
	for _, p := range st.All() {
		before = append(before, p.Pos)
	}
	NewCollide(0, 4).Resolve(&Env{Particles: st.All()})
	for i, p := range st.All() {
		g.Expect(p.Pos).To(Equal(before[i]))
	}
}

func TestCollideRunsUntilTolerance(t *testing.T) {
	g := NewWithT(t)
	pile := func() *dynamo.Store {
		st := dynamo.NewStore()
		for i := 0; i < 4; i++ {
			for j := 0; j < 5; j++ {
				st.CreateFree("bee", "", r2.Vec{X: float64(i) * 0.5, Y: float64(j) * 0.5})
			}
		}
		return st
	}

	once := pile()
	NewCollide(2, 1).Resolve(&Env{Particles: once.All()})
	g.Expect(NewCollide(2, 1).Worst(once.All())).To(BeNumerically(">", 0.01))

	settled := pile()
	c := NewCollide(2, 1)
	c.MaxIterations = 500
	c.Tolerance = 0.01
	c.Resolve(&Env{Particles: settled.All()})
	g.Expect(c.Worst(settled.All())).To(BeNumerically("<=", 0.01))
}

func TestCollideStaysInBounds(t *testing.T) {
	g := NewWithT(t)
	st := dynamo.NewStore()
	a := st.CreateFree("bee", "", r2.Vec{X: 45})
	b := st.CreateFree("bee", "", r2.Vec{X: 47})

	c := NewCollide(0, 1)
	c.MaxIterations = 50
	c.Tolerance = 0.01
	c.Bounds = NewBounds(r2.Box{Min: r2.Vec{X: -50, Y: -50}, Max: r2.Vec{X: 50, Y: 50}})
	c.Resolve(&Env{Particles: st.All()})

	// b is pinned at the wall, so a takes the rest of the overlap.
	g.Expect(b.Pos.X).To(BeNumerically("~", 47.5, 1e-12))
	g.Expect(a.Pos.X).To(BeNumerically("<=", 42.5+0.01))
	g.Expect(c.Bounds.Contains(a)).To(BeTrue())
	g.Expect(c.Bounds.Contains(b)).To(BeTrue())
}

func TestBoundsClamp(t *testing.T) {
	tests := []struct {
		name string
		rect r2.Box
		in   r2.Vec
		want r2.Vec
	}{
		{"inside", r2.Box{Min: r2.Vec{X: -50, Y: -50}, Max: r2.Vec{X: 50, Y: 50}}, r2.Vec{X: 10, Y: -10}, r2.Vec{X: 10, Y: -10}},
		{"outside", r2.Box{Min: r2.Vec{X: -50, Y: -50}, Max: r2.Vec{X: 50, Y: 50}}, r2.Vec{X: 80, Y: -90}, r2.Vec{X: 47.5, Y: -47.5}},
		{"too small", r2.Box{Min: r2.Vec{X: 0, Y: 0}, Max: r2.Vec{X: 2, Y: 2}}, r2.Vec{X: 7, Y: -3}, r2.Vec{X: 1, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			st := dynamo.NewStore()
			anchor, _ := st.CreateAnchor("far", r2.Vec{X: 1000})
			p := st.CreateFree("bee", "", tt.in)

			b := NewBounds(tt.rect)
			b.Resolve(&Env{Particles: st.All()})

			g.Expect(p.Pos.X).To(BeNumerically("~", tt.want.X, 1e-12))
			g.Expect(p.Pos.Y).To(BeNumerically("~", tt.want.Y, 1e-12))
			g.Expect(b.Contains(p)).To(BeTrue())
			g.Expect(anchor.Pos.X).To(Equal(1000.0))
		})
	}
}

func TestJiggleIsUnit(t *testing.T) {
	for a := dynamo.ParticleID(0); a < 20; a++ {
		v := jiggle(a, a+1)
		if math.Abs(r2.Norm(v)-1) > 1e-12 {
			t.Fatalf("jiggle(%d) has norm %v", a, r2.Norm(v))
		}
	}
}
