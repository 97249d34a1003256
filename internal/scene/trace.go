package scene

import (
	"sync"
	"time"

	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/metrics"
	"github.com/san-kum/clusterflow/internal/sim"
	"github.com/san-kum/clusterflow/internal/storage"
)

// TraceRecorder keeps one trace point per simulation step. Points may be
// read from another goroutine.
type TraceRecorder struct {
	loop   *loop.Loop
	start  time.Time
	energy *metrics.KineticEnergy
	moving *metrics.Moving

	mu     sync.Mutex
	points []storage.TracePoint
}

func NewTraceRecorder(l *loop.Loop) *TraceRecorder {
	return &TraceRecorder{
		loop:   l,
		start:  l.Now(),
		energy: metrics.NewKineticEnergy(),
		moving: metrics.NewMoving(MovingSpeed),
	}
}

func (t *TraceRecorder) OnTick(f sim.Frame) {
	t.energy.Observe(f)
	t.moving.Observe(f)

	t.mu.Lock()
	t.points = append(t.points, storage.TracePoint{
		Step:    f.Step,
		Elapsed: t.loop.Now().Sub(t.start),
		Alpha:   f.Alpha,
		Energy:  t.energy.Value(),
		Moving:  int(t.moving.Value()),
	})
	t.mu.Unlock()
}

func (t *TraceRecorder) Points() []storage.TracePoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]storage.TracePoint(nil), t.points...)
}

func (t *TraceRecorder) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.points)
}

// Tail returns up to the last n points.
func (t *TraceRecorder) Tail(n int) []storage.TracePoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := max(len(t.points)-n, 0)
	return append([]storage.TracePoint(nil), t.points[start:]...)
}
