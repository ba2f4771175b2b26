// Package intent turns baseline-relative head angles into debounced
// directional move signals.
package intent

import "math"

// Thresholds converts angle deltas into raw per-axis direction values.
type Thresholds struct {
	// YawDead is the yaw magnitude, in degrees, that must be exceeded
	// before a horizontal direction is reported.
	YawDead float64 `json:"yaw_dead" validate:"gt=0"`
	// PitchEngage is the pitch magnitude that reports a vertical direction.
	PitchEngage float64 `json:"pitch_engage" validate:"gt=0"`
	// PitchDead forces the vertical axis to zero below this magnitude.
	PitchDead float64 `json:"pitch_dead" validate:"gte=0,ltefield=PitchEngage"`
	// InvertX flips the horizontal direction for a mirrored preview.
	InvertX bool `json:"invert_x"`
}

// DefaultThresholds returns the thresholds tuned for a laptop webcam.
func DefaultThresholds() Thresholds {
	return Thresholds{
		YawDead:     18,
		PitchEngage: 20,
		PitchDead:   10,
		InvertX:     true,
	}
}

// Raw returns the unfiltered direction for each axis. Vertical +1 means up
// (head tilted back, negative pitch).
func (t Thresholds) Raw(yaw, pitch float64) (x, y int) {
	switch {
	case yaw > t.YawDead:
		x = 1
	case yaw < -t.YawDead:
		x = -1
	}
	if t.InvertX {
		x = -x
	}

	if math.Abs(pitch) < t.PitchDead {
		return x, 0
	}
	switch {
	case pitch < -t.PitchEngage:
		y = 1
	case pitch > t.PitchEngage:
		y = -1
	}
	return x, y
}

// axis tracks consecutive identical nonzero raw values on one axis.
type axis struct {
	run  int
	last int
}

func (a *axis) apply(raw, need int) int {
	switch {
	case raw == 0:
		a.run, a.last = 0, 0
		return 0
	case raw == a.last:
		a.run++
	default:
		a.last, a.run = raw, 1
	}
	if a.run >= need {
		return raw
	}
	return 0
}

// Filter reports a direction only after it has been seen on a number of
// consecutive frames. Once established the direction is reported on every
// frame it persists; Filter is not a rate limiter.
type Filter struct {
	frames int
	x, y   axis
}

// NewFilter returns a filter requiring frames consecutive samples.
func NewFilter(frames int) *Filter {
	if frames < 1 {
		frames = 1
	}
	return &Filter{frames: frames}
}

// Apply feeds one frame of raw values and returns the filtered directions.
func (f *Filter) Apply(rawX, rawY int) (x, y int) {
	return f.x.apply(rawX, f.frames), f.y.apply(rawY, f.frames)
}

// Reset clears both run counters.
func (f *Filter) Reset() {
	f.x, f.y = axis{}, axis{}
}
