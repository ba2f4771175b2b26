// Package input holds the control-loop state layered on top of per-frame
// gesture actions: face-loss tracking, move arming and the place/reset
// holds.
package input

import (
	"math"
	"time"

	"github.com/ayusman/abhinaya/internal/hold"
)

// State is owned by the frame loop and is not safe for concurrent use.
type State struct {
	LastFaceSeen time.Time

	moveArmed  bool
	neutralRun int

	place *hold.Gesture
	reset *hold.Gesture
}

// New returns a state with moves armed and both holds idle.
func New(placeHold, resetHold time.Duration) *State {
	return &State{
		moveArmed: true,
		place:     hold.New(placeHold),
		reset:     hold.New(resetHold),
	}
}

// SawFace records that a face was present at now.
func (s *State) SawFace(now time.Time) {
	s.LastFaceSeen = now
}

// FaceLost reports whether no face has been seen for longer than grace.
func (s *State) FaceLost(now time.Time, grace time.Duration) bool {
	return now.Sub(s.LastFaceSeen) > grace
}

// UpdateNeutral counts consecutive neutral frames and re-arms moves once
// required of them have been seen.
func (s *State) UpdateNeutral(mx, my, required int) {
	if mx != 0 || my != 0 {
		s.neutralRun = 0
		return
	}
	s.neutralRun++
	if s.neutralRun >= required {
		s.moveArmed = true
	}
}

// MoveArmed reports whether the next nonzero move may be acted on.
func (s *State) MoveArmed() bool { return s.moveArmed }

// ConsumeMove disarms moves after one was acted on.
func (s *State) ConsumeMove(moved bool) {
	if moved {
		s.moveArmed = false
	}
}

// ChooseAxis drops one axis of a diagonal move, keeping the axis whose
// angle is larger in magnitude. Ties keep the horizontal axis.
func ChooseAxis(mx, my int, yaw, pitch float64) (int, int) {
	if mx == 0 || my == 0 {
		return mx, my
	}
	if math.Abs(yaw) >= math.Abs(pitch) {
		return mx, 0
	}
	return 0, my
}

// Place reports whether the both-eyes hold fired at now. While invalid is
// set, for example after the round is decided, the hold is suppressed and
// returned to idle.
func (s *State) Place(now time.Time, leftClosed, rightClosed, invalid bool) bool {
	if invalid {
		s.place.Reset()
		return false
	}
	return s.place.Update(now, leftClosed && rightClosed)
}

// Reset reports whether the right-eye-only hold fired at now.
func (s *State) Reset(now time.Time, leftClosed, rightClosed bool) bool {
	return s.reset.Update(now, rightClosed && !leftClosed)
}

// PlaceState returns the phase of the place hold, for display.
func (s *State) PlaceState() hold.State { return s.place.State() }

// ResetState returns the phase of the reset hold, for display.
func (s *State) ResetState() hold.State { return s.reset.State() }

// ResetProgress returns how far through the reset hold the user is, in
// [0, 1].
func (s *State) ResetProgress(now time.Time) float64 {
	if s.reset.Threshold <= 0 {
		return 0
	}
	return math.Min(1, float64(s.reset.Elapsed(now))/float64(s.reset.Threshold))
}

// OnCalibrate re-arms moves and returns both holds to idle so the first
// input after a calibration or round change is not misread.
func (s *State) OnCalibrate() {
	s.moveArmed = true
	s.neutralRun = 0
	s.place.Reset()
	s.reset.Reset()
}
