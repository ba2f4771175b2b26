// Package hold implements a timed-hold gesture that fires once per
// continuous hold.
package hold

import "time"

// State is the observable phase of a Gesture.
type State int

const (
	Idle State = iota
	Holding
	Fired
)

// String returns the lower-case phase name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Gesture fires when a condition has held continuously for Threshold.
// After firing it stays quiet until the condition is released.
type Gesture struct {
	Threshold time.Duration

	start time.Time
	armed bool
}

// New returns an idle gesture with the given hold threshold.
func New(threshold time.Duration) *Gesture {
	return &Gesture{Threshold: threshold, armed: true}
}

// Update feeds the condition observed at now and reports whether the
// gesture fired on this call.
func (g *Gesture) Update(now time.Time, cond bool) bool {
	if !cond {
		g.Reset()
		return false
	}
	if g.start.IsZero() {
		g.start = now
	}
	if g.armed && now.Sub(g.start) >= g.Threshold {
		g.armed = false
		return true
	}
	return false
}

// Reset returns the gesture to Idle.
func (g *Gesture) Reset() {
	g.start = time.Time{}
	g.armed = true
}

// State reports the current phase.
func (g *Gesture) State() State {
	switch {
	case g.start.IsZero():
		return Idle
	case g.armed:
		return Holding
	default:
		return Fired
	}
}

// Elapsed returns how long the condition has been held at now, or zero
// when idle.
func (g *Gesture) Elapsed(now time.Time) time.Duration {
	if g.start.IsZero() {
		return 0
	}
	return now.Sub(g.start)
}
