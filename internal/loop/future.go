package loop

import (
	"context"
	"sync"
)

// Future is a one-shot completion signal carrying an error (nil on success).
// The first Resolve wins; later calls are ignored.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	err       error
	resolved  bool
	callbacks []func(error)
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that is already complete with err.
func Resolved(err error) *Future {
	f := NewFuture()
	f.Resolve(err)
	return f
}

// Resolve completes the future. It reports whether this call did so.
func (f *Future) Resolve(err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(err)
	}
	return true
}

func (f *Future) Done() <-chan struct{} { return f.done }

func (f *Future) IsResolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Err returns the resolution error, or nil while still pending.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// OnResolve runs fn with the result once resolved. If the future is already
// complete fn runs immediately on the caller's goroutine.
func (f *Future) OnResolve(fn func(error)) {
	f.mu.Lock()
	if f.resolved {
		err := f.err
		f.mu.Unlock()
		fn(err)
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
