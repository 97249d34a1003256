package dynamo

import (
	"fmt"
	"sort"
	"sync"
)

type LinkID int

// Link pulls its Source particle toward the anchor named by Target.
type Link struct {
	ID           LinkID
	Source       ParticleID
	Target       string
	Strength     float64
	RestDistance float64
}

// LinkTable holds exactly one link per free particle. Target reassignment is
// applied in whole batches under the table lock.
type LinkTable struct {
	mu       sync.RWMutex
	links    []Link
	bySource map[ParticleID]LinkID
	store    *Store
	version  uint64
}

// NewLinkTable links every free particle of st to the anchor target.
// Link ids follow the creation order of the free particles.
func NewLinkTable(st *Store, target string, strength, rest float64) (*LinkTable, error) {
	if err := validateParams(strength, rest); err != nil {
		return nil, err
	}
	if !st.HasAnchor(target) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnchor, target)
	}

	free := st.Free()
	t := &LinkTable{
		links:    make([]Link, len(free)),
		bySource: make(map[ParticleID]LinkID, len(free)),
		store:    st,
	}
	for i, p := range free {
		t.links[i] = Link{
			ID:           LinkID(i),
			Source:       p.ID(),
			Target:       target,
			Strength:     strength,
			RestDistance: rest,
		}
		t.bySource[p.ID()] = LinkID(i)
	}
	return t, nil
}

func validateParams(strength, rest float64) error {
	if strength < 0 || strength > 1 {
		return fmt.Errorf("%w: strength %v not in [0,1]", ErrParameterBounds, strength)
	}
	if rest < 0 {
		return fmt.Errorf("%w: rest distance %v is negative", ErrParameterBounds, rest)
	}
	return nil
}

// SetTargets reassigns a batch of links. Every id and key is checked before
// anything is written, so a failing batch leaves the table untouched.
func (t *LinkTable) SetTargets(targets map[LinkID]string) error {
	ids := make([]LinkID, 0, len(targets))
	for id, key := range targets {
		if id < 0 || int(id) >= len(t.links) {
			return fmt.Errorf("%w: %d", ErrUnknownLink, id)
		}
		if !t.store.HasAnchor(key) {
			return fmt.Errorf("link %d: %w: %q", id, ErrUnknownAnchor, key)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.links[id].Target = targets[id]
	}
	t.version++
	return nil
}

// SetParams changes strength and rest distance of every link.
func (t *LinkTable) SetParams(strength, rest float64) error {
	if err := validateParams(strength, rest); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.links {
		t.links[i].Strength = strength
		t.links[i].RestDistance = rest
	}
	t.version++
	return nil
}

// Links returns a copy of the table in id order.
func (t *LinkTable) Links() []Link {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Link, len(t.links))
	copy(out, t.links)
	return out
}

func (t *LinkTable) Link(id LinkID) (Link, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.links) {
		return Link{}, false
	}
	return t.links[id], true
}

// BySource returns the link whose source is the given free particle.
func (t *LinkTable) BySource(id ParticleID) (Link, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lid, ok := t.bySource[id]
	if !ok {
		return Link{}, false
	}
	return t.links[lid], true
}

func (t *LinkTable) Len() int { return len(t.links) }

// IDs returns every link id in index order.
func (t *LinkTable) IDs() []LinkID {
	ids := make([]LinkID, len(t.links))
	for i := range ids {
		ids[i] = LinkID(i)
	}
	return ids
}

// Version increases with every applied batch or parameter change.
func (t *LinkTable) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}
