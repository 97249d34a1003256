package transition_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/transition"
	"gonum.org/v1/gonum/spatial/r2"
)

func inside(v sim.ParticleView, half float64) bool {
	lim := half - v.Radius
	return v.Pos.X >= -lim && v.Pos.X <= lim && v.Pos.Y >= -lim && v.Pos.Y <= lim
}

var _ = Describe("Controller", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("grouping four particles into two categories", func() {
		var f *fixture

		BeforeEach(func() {
			f = newFixture(map[string]r2.Vec{
				"category:A": {X: -100, Y: 100},
				"category:B": {X: 100, Y: 100},
			}, []specimen{{"A", ""}, {"B", ""}, {"A", ""}, {"B", ""}})
		})

		It("settles every particle near its category anchor", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())

			Expect(done.IsResolved()).To(BeTrue())
			Expect(done.Err()).NotTo(HaveOccurred())
			Expect(c.State()).To(Equal(transition.StateIdle))
			Expect(len(f.frames)).To(BeNumerically("<=", 200))

			for _, fr := range f.frames {
				for _, v := range fr.Particles {
					if !v.IsAnchor() {
						Expect(inside(v, 200)).To(BeTrue(), "particle %d at step %d", v.ID, fr.Step)
					}
				}
			}
			for _, p := range f.store.Free() {
				own, _ := f.store.Anchor("category:" + p.Category())
				Expect(r2.Norm(r2.Sub(p.Pos, own.Pos))).To(BeNumerically("<", 50))
			}
		})

		It("dispatches one batch per interval in index order", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			_, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())

			retargets := f.eventsOf(transition.EventRetarget)
			Expect(retargets).To(HaveLen(4))
			for i, ev := range retargets {
				Expect(ev.Link).To(Equal(dynamo.LinkID(i)))
				Expect(ev.Time.Sub(epoch)).To(Equal(time.Duration(i+1) * 30 * time.Millisecond))
			}
			Expect(retargets[1].Target).To(Equal("category:B"))
		})

		It("stops dispatching when canceled", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			c.OnEvent(func(ev transition.Event) {
				if ev.Kind == transition.EventRetarget && ev.Link == 1 {
					c.Cancel(errors.New("user abort"))
				}
			})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())

			Expect(done.Err()).To(MatchError(transition.ErrCanceled))
			Expect(done.Err().Error()).To(ContainSubstring("user abort"))
			Expect(f.eventsOf(transition.EventRetarget)).To(HaveLen(2))
			Expect(f.eventsOf(transition.EventCanceled)).To(HaveLen(1))
			Expect(f.eventsOf(transition.EventComplete)).To(BeEmpty())

			links := f.links.Links()
			Expect(links[0].Target).To(Equal("category:A"))
			Expect(links[1].Target).To(Equal("category:B"))
			Expect(links[2].Target).To(Equal("init"))
			Expect(links[3].Target).To(Equal("init"))
			Expect(c.State()).To(Equal(transition.StateIdle))
		})

		It("rejects the future when the loop closes", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())

			f.loop.Advance(45 * time.Millisecond)
			f.loop.Close()

			Expect(done.IsResolved()).To(BeTrue())
			Expect(done.Err()).To(MatchError(transition.ErrCanceled))
			Expect(done.Err()).To(MatchError(loop.ErrClosed))
		})

		It("cancels without touching links when started on a closed loop", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			f.loop.Close()

			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.IsResolved()).To(BeTrue())
			Expect(done.Err()).To(MatchError(transition.ErrCanceled))
			Expect(done.Err()).To(MatchError(loop.ErrClosed))
			Expect(c.State()).To(Equal(transition.StateIdle))
			for _, ln := range f.links.Links() {
				Expect(ln.Target).To(Equal("init"))
			}
		})

		It("cancels when the loop closes while a phase is entered", func() {
			p := phase("category", byCategory, 1)
			p.Enter = func() error {
				f.loop.Close()
				return nil
			}
			c := f.controller([]transition.Phase{p}, transition.Options{})

			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.IsResolved()).To(BeTrue())
			Expect(done.Err()).To(MatchError(transition.ErrCanceled))
			Expect(done.Err()).To(MatchError(loop.ErrClosed))
			Expect(f.eventsOf(transition.EventRetarget)).To(BeEmpty())
		})

		It("rejects the future when the context is canceled", func() {
			l := loop.New()
			f.loop = l
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})

			runCtx, stopRun := context.WithCancel(context.Background())
			defer stopRun()
			go func() { _ = l.Run(runCtx) }()
			defer l.Close()

			startCtx, cancel := context.WithCancel(context.Background())
			type started struct {
				done *loop.Future
				err  error
			}
			ch := make(chan started, 1)
			Expect(l.Post(func() {
				done, err := c.Start(startCtx)
				ch <- started{done, err}
			})).To(Succeed())

			var s started
			Eventually(ch, time.Second).Should(Receive(&s))
			Expect(s.err).NotTo(HaveOccurred())

			cancel()
			Eventually(s.done.Done(), 2*time.Second).Should(BeClosed())
			Expect(s.done.Err()).To(MatchError(transition.ErrCanceled))
			Expect(s.done.Err()).To(MatchError(context.Canceled))
		})

		It("refuses a second start while running", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 1)}, transition.Options{})
			_, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Start(ctx)
			Expect(err).To(MatchError(transition.ErrBusy))
		})

		It("waits for the initial layout to settle when asked", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 2)}, transition.Options{Settle: true})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.State()).To(Equal(transition.StateSettling))
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())
			Expect(done.Err()).NotTo(HaveOccurred())

			Expect(f.events[0].Kind).To(Equal(transition.EventSettled))
			settledAt := f.events[0].Time
			Expect(settledAt.Sub(epoch)).To(BeNumerically(">=", 90*16*time.Millisecond))
			for _, ev := range f.eventsOf(transition.EventRetarget) {
				Expect(ev.Time.After(settledAt)).To(BeTrue())
			}
		})
	})

	Describe("two phases", func() {
		var f *fixture

		BeforeEach(func() {
			f = newFixture(map[string]r2.Vec{
				"category:bee":   {X: -100, Y: 0},
				"category:moth":  {X: 100, Y: 0},
				"country:France": {X: -100, Y: 120},
				"country:Peru":   {X: 100, Y: 120},
			}, []specimen{
				{"bee", "France"},
				{"moth", "Peru"},
				{"bee", "Peru"},
				{"moth", "France"},
				{"bee", "France"},
			})
		})

		It("runs phases strictly in order with every link retargeted once per phase", func() {
			c := f.controller([]transition.Phase{
				phase("category", byCategory, 2),
				phase("country", byCountry, 2),
			}, transition.Options{})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())
			Expect(done.Err()).NotTo(HaveOccurred())

			var kinds []transition.EventKind
			for i, ev := range f.events {
				Expect(ev.Seq).To(Equal(uint64(i + 1)))
				kinds = append(kinds, ev.Kind)
			}
			r := transition.EventRetarget
			Expect(kinds).To(Equal([]transition.EventKind{
				transition.EventPhaseStart, r, r, r, r, r, transition.EventPhaseRest,
				transition.EventPhaseStart, r, r, r, r, r, transition.EventPhaseRest,
				transition.EventComplete,
			}))

			perPhase := map[string][]dynamo.LinkID{}
			for _, ev := range f.eventsOf(transition.EventRetarget) {
				perPhase[ev.Phase] = append(perPhase[ev.Phase], ev.Link)
			}
			all := []dynamo.LinkID{0, 1, 2, 3, 4}
			Expect(perPhase["category"]).To(Equal(all))
			Expect(perPhase["country"]).To(Equal(all))

			for _, ln := range f.links.Links() {
				p, _ := f.store.Get(ln.Source)
				Expect(ln.Target).To(Equal("country:" + p.Country()))
			}
		})

		It("runs phase enter hooks before the phase starts", func() {
			var entered []string
			category := phase("category", byCategory, 5)
			category.Enter = func() error {
				entered = append(entered, "category")
				return f.sim.SetVelocityDecay(0.5)
			}
			country := phase("country", byCountry, 5)
			country.Enter = func() error {
				entered = append(entered, "country")
				return nil
			}
			c := f.controller([]transition.Phase{category, country}, transition.Options{})
			_, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entered).To(Equal([]string{"category"}))

			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())
			Expect(entered).To(Equal([]string{"category", "country"}))
			Expect(f.sim.Config().VelocityDecay).To(Equal(0.5))
		})

		It("fails the transition when an enter hook fails", func() {
			country := phase("country", byCountry, 5)
			country.Enter = func() error { return errors.New("no map") }
			c := f.controller([]transition.Phase{phase("category", byCategory, 5), country}, transition.Options{})
			done, err := c.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.loop.FastForward(ctx, time.Minute)).To(Succeed())

			Expect(done.Err()).To(MatchError(ContainSubstring("no map")))
			Expect(f.eventsOf(transition.EventPhaseStart)).To(HaveLen(1))
		})

		It("fails fast on an unknown anchor key", func() {
			bad := phase("country", func(p *dynamo.Particle) string {
				if p.Country() == "Peru" {
					return "country:Atlantis"
				}
				return byCountry(p)
			}, 2)
			c := f.controller([]transition.Phase{phase("category", byCategory, 2), bad}, transition.Options{})

			done, err := c.Start(ctx)
			Expect(done).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrUnknownAnchor))

			var cfgErr *transition.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Phase).To(Equal("country"))
			Expect(cfgErr.Link).To(Equal(dynamo.LinkID(1)))
			Expect(cfgErr.Key).To(Equal("country:Atlantis"))

			Expect(c.State()).To(Equal(transition.StateIdle))
			Expect(f.loop.Idle()).To(BeTrue())
			for _, ln := range f.links.Links() {
				Expect(ln.Target).To(Equal("init"))
			}
		})

		It("rejects phases without a usable batch size", func() {
			c := f.controller([]transition.Phase{phase("category", byCategory, 0)}, transition.Options{})
			_, err := c.Start(ctx)
			Expect(err).To(MatchError(transition.ErrInvalidPhase))
		})
	})
})
