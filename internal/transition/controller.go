package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/sim"
)

type Options struct {
	// Settle waits for the simulation to come to rest before the first
	// phase starts.
	Settle bool
	Logger *slog.Logger
}

type Controller struct {
	loop   *loop.Loop
	sim    *sim.Simulator
	store  *dynamo.Store
	links  *dynamo.LinkTable
	phases []Phase
	opts   Options
	logger *slog.Logger
	hooks  []func(Event)

	state  State
	plans  []plan
	phase  int
	cursor *BatchCursor
	timer  *loop.Timer
	done   *loop.Future

	// gen changes whenever a run ends so stale rest callbacks are ignored.
	gen     uint64
	seq     uint64
	cleanup []func()
}

func New(l *loop.Loop, s *sim.Simulator, st *dynamo.Store, links *dynamo.LinkTable, phases []Phase, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		loop:   l,
		sim:    s,
		store:  st,
		links:  links,
		phases: append([]Phase(nil), phases...),
		opts:   opts,
		logger: logger,
		phase:  -1,
	}
}

// OnEvent registers fn to receive every transition event on the loop
// goroutine.
func (c *Controller) OnEvent(fn func(Event)) { c.hooks = append(c.hooks, fn) }

func (c *Controller) State() State { return c.state }

// Phase returns the index of the current phase, -1 before the first.
func (c *Controller) Phase() int { return c.phase }

func (c *Controller) Phases() []Phase { return append([]Phase(nil), c.phases...) }

// Start plans every phase and begins the transition. The returned future
// resolves with nil once the last phase is at rest, or with the error that
// stopped it. Planning errors are returned directly as *ConfigError and
// leave the link table untouched.
func (c *Controller) Start(ctx context.Context) (*loop.Future, error) {
	if c.done != nil && !c.done.IsResolved() {
		return nil, ErrBusy
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if c.loop.Closed() {
		return loop.Resolved(fmt.Errorf("%w: %w", ErrCanceled, loop.ErrClosed)), nil
	}

	links := c.links.Links()
	plans := make([]plan, 0, len(c.phases))
	for _, p := range c.phases {
		pl, err := buildPlan(p, c.store, links)
		if err != nil {
			return nil, err
		}
		plans = append(plans, pl)
	}

	c.plans = plans
	c.phase = -1
	c.done = loop.NewFuture()
	gen := c.gen

	stop := context.AfterFunc(ctx, func() {
		_ = c.loop.Post(func() {
			if c.gen == gen {
				c.Cancel(context.Cause(ctx))
			}
		})
	})
	done := c.done
	unregister := c.loop.OnClose(func() {
		done.Resolve(fmt.Errorf("%w: %w", ErrCanceled, loop.ErrClosed))
	})
	c.cleanup = []func(){func() { stop() }, unregister}

	c.logger.Info("transition started", "phases", len(plans), "links", c.links.Len())

	if c.opts.Settle {
		c.state = StateSettling
		if err := c.sim.Start(c.loop); err != nil {
			c.finish(scheduleError(err), EventCanceled)
			return c.done, nil
		}
		c.awaitRest()
		return c.done, nil
	}
	c.enterPhase(0)
	return c.done, nil
}

// Cancel stops a running transition. The completion future resolves with
// an error wrapping ErrCanceled and cause.
func (c *Controller) Cancel(cause error) {
	if c.done == nil || c.done.IsResolved() {
		return
	}
	err := ErrCanceled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCanceled, cause)
	}
	c.finish(err, EventCanceled)
}

func (c *Controller) enterPhase(i int) {
	c.phase = i
	c.state = StateRunningPhase
	pl := c.plans[i]
	name := pl.phase.Name

	if pl.phase.Enter != nil {
		if err := pl.phase.Enter(); err != nil {
			c.finish(fmt.Errorf("transition: enter phase %q: %w", name, err), EventCanceled)
			return
		}
	}
	c.emit(Event{Kind: EventPhaseStart, Phase: name})
	if c.stopped() {
		return
	}
	c.logger.Info("phase started", "phase", name, "batches", len(pl.batches), "interval", pl.phase.BatchInterval)

	c.sim.Reheat()
	if err := c.sim.Start(c.loop); err != nil {
		c.finish(scheduleError(err), EventCanceled)
		return
	}

	c.cursor = NewBatchCursor(pl.batches)
	if c.cursor.Len() == 0 {
		c.awaitRest()
		return
	}
	t, err := c.loop.Every(pl.phase.BatchInterval, c.dispatch)
	if err != nil {
		c.finish(scheduleError(fmt.Errorf("transition: schedule phase %q: %w", name, err)), EventCanceled)
		return
	}
	c.timer = t
}

// dispatch applies the next batch. It runs on the batch timer.
func (c *Controller) dispatch() {
	batch, ok := c.cursor.Next()
	if !ok {
		c.stopTimer()
		c.awaitRest()
		return
	}
	name := c.plans[c.phase].phase.Name

	targets := make(map[dynamo.LinkID]string, len(batch))
	for _, a := range batch {
		targets[a.Link] = a.Target
	}
	if err := c.links.SetTargets(targets); err != nil {
		c.finish(fmt.Errorf("transition: phase %q: %w", name, err), EventCanceled)
		return
	}
	for _, a := range batch {
		c.emit(Event{Kind: EventRetarget, Phase: name, Link: a.Link, Target: a.Target})
	}
	if c.stopped() {
		return
	}
	c.logger.Debug("batch applied", "phase", name, "size", len(batch), "remaining", c.cursor.Remaining())

	c.sim.Reheat()
	if err := c.sim.Start(c.loop); err != nil {
		c.finish(scheduleError(err), EventCanceled)
		return
	}
	if c.cursor.Remaining() == 0 {
		c.stopTimer()
		c.awaitRest()
	}
}

func (c *Controller) awaitRest() {
	if c.state != StateSettling {
		c.state = StateAwaitingRest
	}
	gen := c.gen
	c.sim.WhenRest().OnResolve(func(err error) {
		if c.gen != gen || c.stopped() {
			return
		}
		if err != nil {
			c.finish(err, EventCanceled)
			return
		}
		c.onRest()
	})
}

func (c *Controller) onRest() {
	if c.state == StateSettling {
		c.emit(Event{Kind: EventSettled})
		if c.stopped() {
			return
		}
		c.logger.Info("initial layout settled", "step", c.sim.Steps())
		c.enterPhase(0)
		return
	}

	name := c.plans[c.phase].phase.Name
	c.emit(Event{Kind: EventPhaseRest, Phase: name})
	if c.stopped() {
		return
	}
	c.logger.Info("phase at rest", "phase", name, "step", c.sim.Steps())

	if c.phase+1 < len(c.plans) {
		c.enterPhase(c.phase + 1)
		return
	}
	c.finish(nil, EventComplete)
}

// scheduleError reports a loop that refused a callback as a cancellation.
func scheduleError(err error) error {
	if errors.Is(err, loop.ErrClosed) && !errors.Is(err, ErrCanceled) {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return err
}

// stopped reports whether an event hook ended the run.
func (c *Controller) stopped() bool { return c.done.IsResolved() }

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// finish ends the run and resolves the completion future with err.
func (c *Controller) finish(err error, kind EventKind) {
	c.stopTimer()
	c.gen++
	c.state = StateIdle
	for _, fn := range c.cleanup {
		fn()
	}
	c.cleanup = nil

	ev := Event{Kind: kind}
	if c.phase >= 0 && c.phase < len(c.plans) {
		ev.Phase = c.plans[c.phase].phase.Name
	}
	c.emit(ev)

	switch {
	case err == nil:
		c.logger.Info("transition complete", "step", c.sim.Steps())
	case errors.Is(err, ErrCanceled):
		c.logger.Info("transition canceled", "err", err)
	default:
		c.logger.Error("transition failed", "err", err)
	}
	c.done.Resolve(err)
}

func (c *Controller) emit(ev Event) {
	c.seq++
	ev.Seq = c.seq
	ev.Time = c.loop.Now()
	for _, fn := range c.hooks {
		fn(ev)
	}
}
