// Package smooth provides fixed-capacity moving-average windows.
package smooth

import "gonum.org/v1/gonum/stat"

// Window keeps the most recent samples of one channel in a ring buffer.
// It is not safe for concurrent use.
type Window struct {
	buf  []float64
	head int
	n    int
}

// NewWindow creates a window holding at most capacity samples. A capacity
// below one is treated as one.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, dropping the oldest sample when the window is full.
func (w *Window) Push(v float64) {
	w.buf[(w.head+w.n)%len(w.buf)] = v
	if w.n < len(w.buf) {
		w.n++
		return
	}
	w.head = (w.head + 1) % len(w.buf)
}

// Mean returns the arithmetic mean of the current samples. ok is false for
// an empty window.
func (w *Window) Mean() (mean float64, ok bool) {
	if w.n == 0 {
		return 0, false
	}
	return stat.Mean(w.Values(), nil), true
}

// Values returns the samples oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.n)
	for i := range out {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Len returns the number of samples held.
func (w *Window) Len() int { return w.n }

// Cap returns the maximum number of samples.
func (w *Window) Cap() int { return len(w.buf) }

// Reset empties the window.
func (w *Window) Reset() {
	w.head, w.n = 0, 0
}
