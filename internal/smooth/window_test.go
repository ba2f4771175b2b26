package smooth

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWindow_Mean(t *testing.T) {
	w := NewWindow(3)

	if _, ok := w.Mean(); ok {
		t.Error("expected no mean for an empty window")
	}

	for _, v := range []float64{1, 2, 3} {
		w.Push(v)
	}
	if m, _ := w.Mean(); math.Abs(m-2) > 1e-12 {
		t.Errorf("mean = %f, want 2", m)
	}

	w.Push(10)
	if m, _ := w.Mean(); math.Abs(m-5) > 1e-12 {
		t.Errorf("mean after eviction = %f, want 5", m)
	}
}

func TestWindow_EvictsOldestFirst(t *testing.T) {
	w := NewWindow(4)
	for i := 1; i <= 7; i++ {
		w.Push(float64(i))
	}

	if diff := cmp.Diff([]float64{4, 5, 6, 7}, w.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
	if w.Len() != 4 || w.Cap() != 4 {
		t.Errorf("Len/Cap = %d/%d, want 4/4", w.Len(), w.Cap())
	}
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	w.Push(2)
	w.Reset()

	if w.Len() != 0 {
		t.Errorf("Len after reset = %d, want 0", w.Len())
	}
	w.Push(8)
	if m, ok := w.Mean(); !ok || m != 8 {
		t.Errorf("mean after reset = %f (ok=%v), want 8", m, ok)
	}
}

func TestNewWindow_MinimumCapacity(t *testing.T) {
	w := NewWindow(0)
	w.Push(1)
	w.Push(2)
	if diff := cmp.Diff([]float64{2}, w.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
}
