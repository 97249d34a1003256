package transition

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/san-kum/clusterflow/internal/loop"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		size  int
		want  [][]int
	}{
		{"even", []int{0, 1, 2, 3}, 2, [][]int{{0, 1}, {2, 3}}},
		{"short tail", []int{0, 1, 2, 3, 4}, 2, [][]int{{0, 1}, {2, 3}, {4}}},
		{"single batch", []int{0, 1, 2}, 10, [][]int{{0, 1, 2}}},
		{"empty", nil, 3, nil},
		{"zero size", []int{1}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(tt.items, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Partition(%v, %d) = %v, want %v", tt.items, tt.size, got, tt.want)
			}
		})
	}
}

func TestBatchCursor(t *testing.T) {
	c := NewBatchCursor(Partition([]Assignment{
		{Link: 0, Target: "a"},
		{Link: 1, Target: "b"},
		{Link: 2, Target: "a"},
	}, 2))

	if c.Len() != 2 || c.Remaining() != 2 {
		t.Fatalf("expected 2 batches, got len %d remaining %d", c.Len(), c.Remaining())
	}
	first, ok := c.Next()
	if !ok || len(first) != 2 || first[1].Link != 1 {
		t.Fatalf("unexpected first batch %v", first)
	}
	second, ok := c.Next()
	if !ok || len(second) != 1 || second[0].Target != "a" {
		t.Fatalf("unexpected second batch %v", second)
	}
	if _, ok := c.Next(); ok {
		t.Error("cursor should be exhausted")
	}
	if c.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", c.Remaining())
	}
}

func TestScheduleError(t *testing.T) {
	refused := scheduleError(fmt.Errorf("start simulation: %w", loop.ErrClosed))
	if !errors.Is(refused, ErrCanceled) || !errors.Is(refused, loop.ErrClosed) {
		t.Errorf("closed loop should read as a cancellation, got %v", refused)
	}
	if again := scheduleError(refused); again != refused {
		t.Errorf("canceled error wrapped twice: %v", again)
	}
	other := errors.New("bad interval")
	if scheduleError(other) != other {
		t.Error("unrelated errors should pass through")
	}
}
