package transition

import (
	"fmt"
	"time"

	"github.com/san-kum/clusterflow/internal/dynamo"
)

// Phase is one grouping step of a transition.
type Phase struct {
	Name string

	// Resolver names the anchor a free particle should be linked to.
	Resolver func(p *dynamo.Particle) string

	BatchSize     int
	BatchInterval time.Duration

	// Enter runs when the phase starts, before the first reheat.
	Enter func() error
}

func (p Phase) validate() error {
	switch {
	case p.Resolver == nil:
		return &ConfigError{Phase: p.Name, Err: fmt.Errorf("%w: no resolver", ErrInvalidPhase)}
	case p.BatchSize <= 0:
		return &ConfigError{Phase: p.Name, Err: fmt.Errorf("%w: batch size %d", ErrInvalidPhase, p.BatchSize)}
	case p.BatchInterval <= 0:
		return &ConfigError{Phase: p.Name, Err: fmt.Errorf("%w: batch interval %s", ErrInvalidPhase, p.BatchInterval)}
	}
	return nil
}

// Assignment is one planned link retarget.
type Assignment struct {
	Link   dynamo.LinkID
	Target string
}

// plan is the immutable, precomputed schedule of one phase.
type plan struct {
	phase   Phase
	batches [][]Assignment
}

func buildPlan(p Phase, st *dynamo.Store, links []dynamo.Link) (plan, error) {
	if err := p.validate(); err != nil {
		return plan{}, err
	}
	all := make([]Assignment, 0, len(links))
	for _, ln := range links {
		src, ok := st.Get(ln.Source)
		if !ok {
			return plan{}, &ConfigError{Phase: p.Name, Link: ln.ID, Err: fmt.Errorf("missing source particle %d", ln.Source)}
		}
		key := p.Resolver(src)
		if !st.HasAnchor(key) {
			return plan{}, &ConfigError{Phase: p.Name, Link: ln.ID, Key: key, Err: dynamo.ErrUnknownAnchor}
		}
		all = append(all, Assignment{Link: ln.ID, Target: key})
	}
	return plan{phase: p, batches: Partition(all, p.BatchSize)}, nil
}

// Partition splits items into consecutive batches of size; the last batch
// may be shorter.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// BatchCursor walks the batches of one phase exactly once.
type BatchCursor struct {
	batches [][]Assignment
	next    int
}

func NewBatchCursor(batches [][]Assignment) *BatchCursor {
	return &BatchCursor{batches: batches}
}

func (c *BatchCursor) Next() ([]Assignment, bool) {
	if c.next >= len(c.batches) {
		return nil, false
	}
	b := c.batches[c.next]
	c.next++
	return b, true
}

func (c *BatchCursor) Remaining() int { return len(c.batches) - c.next }
func (c *BatchCursor) Len() int       { return len(c.batches) }
