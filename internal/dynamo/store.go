package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultRadius is the radius given to new particles.
const DefaultRadius = 2.5

// Store holds every particle of a simulation. Particles are never removed.
type Store struct {
	anchors []*Particle
	free    []*Particle
	byKey   map[string]*Particle
	byID    map[ParticleID]*Particle
	nextID  ParticleID
}

func NewStore() *Store {
	return &Store{
		byKey: make(map[string]*Particle),
		byID:  make(map[ParticleID]*Particle),
	}
}

// CreateAnchor adds a fixed particle standing for the grouping target key.
func (s *Store) CreateAnchor(key string, pos r2.Vec) (*Particle, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if _, ok := s.byKey[key]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateAnchor, key)
	}

	p := &Particle{
		id:     s.nextID,
		kind:   KindAnchor,
		key:    key,
		Pos:    pos,
		Radius: DefaultRadius,
	}
	s.nextID++
	s.anchors = append(s.anchors, p)
	s.byKey[key] = p
	s.byID[p.id] = p
	return p, nil
}

// CreateFree adds a free particle with immutable category and country labels.
func (s *Store) CreateFree(category, country string, pos r2.Vec) *Particle {
	p := &Particle{
		id:       s.nextID,
		kind:     KindFree,
		category: category,
		country:  country,
		Pos:      pos,
		Radius:   DefaultRadius,
	}
	s.nextID++
	s.free = append(s.free, p)
	s.byID[p.id] = p
	return p
}

// All returns anchors first, then free particles, each in creation order.
// The slice is fresh; the particles are shared.
func (s *Store) All() []*Particle {
	all := make([]*Particle, 0, len(s.anchors)+len(s.free))
	all = append(all, s.anchors...)
	return append(all, s.free...)
}

func (s *Store) Anchors() []*Particle { return s.anchors }
func (s *Store) Free() []*Particle    { return s.free }
func (s *Store) Len() int             { return len(s.anchors) + len(s.free) }

func (s *Store) Anchor(key string) (*Particle, bool) {
	p, ok := s.byKey[key]
	return p, ok
}

func (s *Store) Get(id ParticleID) (*Particle, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// HasAnchor reports whether key resolves to an anchor.
func (s *Store) HasAnchor(key string) bool {
	_, ok := s.byKey[key]
	return ok
}
