package dynamo

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestStoreOrder(t *testing.T) {
	st := NewStore()
	st.CreateFree("bee", "Brazil", r2.Vec{X: 1})
	if _, err := st.CreateAnchor("init", r2.Vec{}); err != nil {
		t.Fatalf("create anchor: %v", err)
	}
	st.CreateFree("moth", "Peru", r2.Vec{X: 2})
	if _, err := st.CreateAnchor("category:bee", r2.Vec{X: 5}); err != nil {
		t.Fatalf("create anchor: %v", err)
	}

	all := st.All()
	if len(all) != 4 {
		t.Fatalf("expected 4 particles, got %d", len(all))
	}

	wantKinds := []Kind{KindAnchor, KindAnchor, KindFree, KindFree}
	for i, p := range all {
		if p.Kind() != wantKinds[i] {
			t.Errorf("particle %d: kind %s, want %s", i, p.Kind(), wantKinds[i])
		}
	}
	if all[0].Key() != "init" || all[1].Key() != "category:bee" {
		t.Errorf("anchors out of creation order: %q, %q", all[0].Key(), all[1].Key())
	}
	if all[2].Category() != "bee" || all[3].Category() != "moth" {
		t.Errorf("free particles out of creation order")
	}
}

func TestStoreUniqueIDs(t *testing.T) {
	st := NewStore()
	seen := make(map[ParticleID]bool)
	for i := 0; i < 10; i++ {
		p := st.CreateFree("bee", "Chile", r2.Vec{})
		if seen[p.ID()] {
			t.Fatalf("duplicate id %d", p.ID())
		}
		seen[p.ID()] = true

		got, ok := st.Get(p.ID())
		if !ok || got != p {
			t.Errorf("Get(%d) did not return the created particle", p.ID())
		}
	}
}

func TestCreateAnchorErrors(t *testing.T) {
	st := NewStore()
	if _, err := st.CreateAnchor("init", r2.Vec{}); err != nil {
		t.Fatalf("first anchor: %v", err)
	}

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"duplicate", "init", ErrDuplicateAnchor},
		{"empty", "", ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreateAnchor(tt.key, r2.Vec{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if len(st.Anchors()) != 1 {
		t.Errorf("failed creations must not add anchors, have %d", len(st.Anchors()))
	}
}

func TestParticleIsFinite(t *testing.T) {
	tests := []struct {
		name  string
		pos   r2.Vec
		vel   r2.Vec
		valid bool
	}{
		{"zeros", r2.Vec{}, r2.Vec{}, true},
		{"normal", r2.Vec{X: 1, Y: -2}, r2.Vec{X: 0.5}, true},
		{"NaN position", r2.Vec{X: math.NaN()}, r2.Vec{}, false},
		{"+Inf velocity", r2.Vec{}, r2.Vec{Y: math.Inf(1)}, false},
		{"-Inf position", r2.Vec{Y: math.Inf(-1)}, r2.Vec{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Particle{Pos: tt.pos, Vel: tt.vel}
			if got := p.IsFinite(); got != tt.valid {
				t.Errorf("IsFinite() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1000} {
		hits := make([]int, n)
		ParallelFor(n, 16, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}
