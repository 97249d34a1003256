package loop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when scheduling on a closed loop.
var ErrClosed = errors.New("loop: closed")

// ErrIdleLimit is returned by FastForward when virtual time passes its limit.
var ErrIdleLimit = errors.New("loop: time limit reached before idle")

// Timer is a periodic callback registered with Every.
type Timer struct {
	loop     *Loop
	interval time.Duration
	due      time.Time
	fn       func()
	seq      uint64
	index    int
	stopped  bool
}

// Stop cancels the timer. Safe to call from inside its own callback.
func (t *Timer) Stop() {
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&l.timers, t.index)
	}
}

func (t *Timer) Stopped() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.stopped
}

type Loop struct {
	mu      sync.Mutex
	timers  timerHeap
	posted  []func()
	seq     uint64
	virtual bool
	now     time.Time
	closed  bool
	onClose map[uint64]func()
	wake    chan struct{}
}

// New returns a loop on the wall clock.
func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		onClose: make(map[uint64]func()),
	}
}

// NewVirtual returns a loop whose clock only moves through Advance and
// FastForward.
func NewVirtual(start time.Time) *Loop {
	l := New()
	l.virtual = true
	l.now = start
	return l
}

func (l *Loop) Virtual() bool { return l.virtual }

func (l *Loop) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowLocked()
}

func (l *Loop) nowLocked() time.Time {
	if l.virtual {
		return l.now
	}
	return time.Now()
}

// Every schedules fn every interval, first run one interval from now.
func (l *Loop) Every(interval time.Duration, fn func()) (*Timer, error) {
	if interval <= 0 {
		return nil, errors.New("loop: interval must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	l.seq++
	t := &Timer{
		loop:     l,
		interval: interval,
		due:      l.nowLocked().Add(interval),
		fn:       fn,
		seq:      l.seq,
		index:    -1,
	}
	heap.Push(&l.timers, t)
	l.signal()
	return t, nil
}

// Post queues fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.posted = append(l.posted, fn)
	l.signal()
	return nil
}

// OnClose registers fn to run when the loop closes. The returned func
// unregisters it. On a closed loop fn runs before OnClose returns.
func (l *Loop) OnClose(fn func()) (unregister func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	l.seq++
	id := l.seq
	l.onClose[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.onClose, id)
		l.mu.Unlock()
	}
}

// Close stops all timers, drops posted work and runs the close hooks.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, t := range l.timers {
		t.stopped = true
		t.index = -1
	}
	l.timers = nil
	l.posted = nil
	hooks := make([]func(), 0, len(l.onClose))
	for _, fn := range l.onClose {
		hooks = append(hooks, fn)
	}
	l.onClose = nil
	l.signal()
	l.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Idle reports whether no timer and no posted callback is pending.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers) == 0 && len(l.posted) == 0
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// runPosted drains the posted queue, including work posted while draining.
func (l *Loop) runPosted() {
	for {
		l.mu.Lock()
		if len(l.posted) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.posted[0]
		l.posted = l.posted[1:]
		l.mu.Unlock()
		fn()
	}
}

// fireNext runs the earliest timer due at or before until.
func (l *Loop) fireNext(until time.Time) bool {
	l.mu.Lock()
	if len(l.timers) == 0 || l.timers[0].due.After(until) {
		l.mu.Unlock()
		return false
	}
	t := l.timers[0]
	if l.virtual {
		l.now = t.due
	}
	now := l.nowLocked()
	t.due = t.due.Add(t.interval)
	if !l.virtual && now.Sub(t.due) > 2*t.interval {
		t.due = now.Add(t.interval)
	}
	heap.Fix(&l.timers, 0)
	fn := t.fn
	l.mu.Unlock()

	fn()
	return true
}

// Advance moves a virtual loop forward by d, running every callback that
// falls due on the way in time order.
func (l *Loop) Advance(d time.Duration) {
	l.mu.Lock()
	until := l.nowLocked().Add(d)
	l.mu.Unlock()

	l.runPosted()
	for l.fireNext(until) {
		l.runPosted()
	}

	l.mu.Lock()
	if l.virtual && l.now.Before(until) {
		l.now = until
	}
	l.mu.Unlock()
}

// FastForward runs a virtual loop until nothing is scheduled. It fails with
// ErrIdleLimit once virtual time moves more than limit past the start.
func (l *Loop) FastForward(ctx context.Context, limit time.Duration) error {
	if !l.virtual {
		return errors.New("loop: fast-forward needs a virtual loop")
	}
	deadline := l.Now().Add(limit)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.runPosted()

		l.mu.Lock()
		if len(l.timers) == 0 {
			idle := len(l.posted) == 0
			l.mu.Unlock()
			if idle {
				return nil
			}
			continue
		}
		next := l.timers[0].due
		l.mu.Unlock()

		if next.After(deadline) {
			return ErrIdleLimit
		}
		l.fireNext(next)
	}
}

// Run drives the loop on the wall clock until ctx ends or the loop closes.
func (l *Loop) Run(ctx context.Context) error {
	if l.virtual {
		return errors.New("loop: run needs a wall-clock loop")
	}
	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		l.runPosted()
		for l.fireNext(time.Now()) {
			l.runPosted()
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrClosed
		}
		sleep := time.Hour
		if len(l.timers) > 0 {
			sleep = time.Until(l.timers[0].due)
		}
		l.mu.Unlock()

		if sleep <= 0 {
			continue
		}
		if !wait.Stop() {
			select {
			case <-wait.C:
			default:
			}
		}
		wait.Reset(sleep)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-wait.C:
		}
	}
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
