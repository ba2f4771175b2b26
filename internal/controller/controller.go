// Package controller turns landmark frames into per-frame gesture actions:
// pose and eye estimation, smoothing, calibration and the intent filter.
package controller

import (
	"github.com/ayusman/abhinaya/internal/eye"
	"github.com/ayusman/abhinaya/internal/intent"
	"github.com/ayusman/abhinaya/internal/landmark"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/smooth"
)

// Action is the gesture output for one frame. All fields are defined on
// every frame; angles are relative to the calibrated baseline and zero
// when no pose was available or no baseline has been set.
type Action struct {
	MoveX          int     `json:"move_x"`
	MoveY          int     `json:"move_y"`
	Pitch          float64 `json:"pitch"`
	Yaw            float64 `json:"yaw"`
	Roll           float64 `json:"roll"`
	LeftEyeClosed  bool    `json:"left_eye_closed"`
	RightEyeClosed bool    `json:"right_eye_closed"`
	FaceFound      bool    `json:"face_found"`
	PoseFound      bool    `json:"pose_found"`
}

// Baseline is the neutral pose and open-eye ratios of the current user.
// Eye closure is not reported for an eye whose baseline is unset.
type Baseline struct {
	Pitch       float64 `json:"pitch"`
	Yaw         float64 `json:"yaw"`
	Roll        float64 `json:"roll"`
	EyeLeft     float64 `json:"eye_left"`
	EyeRight    float64 `json:"eye_right"`
	EyeLeftSet  bool    `json:"eye_left_set"`
	EyeRightSet bool    `json:"eye_right_set"`
}

// PoseEstimator solves head orientation for a frame.
type PoseEstimator interface {
	Estimate(f *landmark.Frame) (pose.Angles, bool)
}

// Samples is a copy of the smoothing windows, oldest sample first.
type Samples struct {
	Pitch    []float64 `json:"pitch"`
	Yaw      []float64 `json:"yaw"`
	Roll     []float64 `json:"roll"`
	EyeLeft  []float64 `json:"eye_left"`
	EyeRight []float64 `json:"eye_right"`
}

// Controller holds the smoothing, calibration and intent state for a single
// face. It is not safe for concurrent use; one goroutine owns it.
type Controller struct {
	tuning    Tuning
	estimator PoseEstimator
	filter    *intent.Filter

	pitch, yaw, roll  *smooth.Window
	eyeLeft, eyeRight *smooth.Window

	baseline   Baseline
	calibrated bool
}

// New creates a controller using the default pose estimator.
func New(t Tuning) *Controller {
	return NewWithEstimator(t, pose.NewEstimator())
}

// NewWithEstimator creates a controller with a custom pose estimator.
func NewWithEstimator(t Tuning, est PoseEstimator) *Controller {
	return &Controller{
		tuning:    t,
		estimator: est,
		filter:    intent.NewFilter(t.IntentFrames),
		pitch:     smooth.NewWindow(t.AngleWindow),
		yaw:       smooth.NewWindow(t.AngleWindow),
		roll:      smooth.NewWindow(t.AngleWindow),
		eyeLeft:   smooth.NewWindow(t.EyeWindow),
		eyeRight:  smooth.NewWindow(t.EyeWindow),
	}
}

// Process consumes one frame. A nil frame means no face was detected and
// leaves every window untouched.
func (c *Controller) Process(f *landmark.Frame) Action {
	var a Action
	if f == nil {
		return a
	}
	a.FaceFound = true

	if angles, ok := c.estimator.Estimate(f); ok {
		a.PoseFound = true
		c.pitch.Push(angles.Pitch)
		c.yaw.Push(angles.Yaw)
		c.roll.Push(angles.Roll)

		// Deltas and moves stay zero until a baseline exists.
		if c.calibrated {
			a.Pitch = mean(c.pitch) - c.baseline.Pitch
			a.Yaw = mean(c.yaw) - c.baseline.Yaw
			a.Roll = mean(c.roll) - c.baseline.Roll
			a.MoveX, a.MoveY = c.filter.Apply(c.tuning.Raw(a.Yaw, a.Pitch))
		}
	}

	left, right, ok := eye.Ratios(f)
	if !ok {
		return a
	}
	c.eyeLeft.Push(left)
	c.eyeRight.Push(right)

	if c.baseline.EyeLeftSet {
		a.LeftEyeClosed = mean(c.eyeLeft) < c.baseline.EyeLeft*c.tuning.BlinkDrop
	}
	if c.baseline.EyeRightSet {
		a.RightEyeClosed = mean(c.eyeRight) < c.baseline.EyeRight*c.tuning.BlinkDrop
	}
	return a
}

// Calibrate captures the current smoothed value of every channel that has
// samples as the new baseline and restarts the intent filter. Channels with
// no samples keep their previous baseline.
func (c *Controller) Calibrate() Baseline {
	if m, ok := c.pitch.Mean(); ok {
		c.baseline.Pitch = m
	}
	if m, ok := c.yaw.Mean(); ok {
		c.baseline.Yaw = m
	}
	if m, ok := c.roll.Mean(); ok {
		c.baseline.Roll = m
	}
	if m, ok := c.eyeLeft.Mean(); ok {
		c.baseline.EyeLeft, c.baseline.EyeLeftSet = m, true
	}
	if m, ok := c.eyeRight.Mean(); ok {
		c.baseline.EyeRight, c.baseline.EyeRightSet = m, true
	}
	c.filter.Reset()
	c.calibrated = true
	return c.baseline
}

// SetBaseline replaces the baseline, for example with one restored from
// storage, and restarts the intent filter.
func (c *Controller) SetBaseline(b Baseline) {
	c.baseline = b
	c.filter.Reset()
	c.calibrated = true
}

// Baseline returns the current baseline.
func (c *Controller) Baseline() Baseline { return c.baseline }

// Calibrated reports whether a baseline has been captured or restored.
func (c *Controller) Calibrated() bool { return c.calibrated }

// Tuning returns the tuning the controller was built with.
func (c *Controller) Tuning() Tuning { return c.tuning }

// Samples returns a copy of the smoothing windows.
func (c *Controller) Samples() Samples {
	return Samples{
		Pitch:    c.pitch.Values(),
		Yaw:      c.yaw.Values(),
		Roll:     c.roll.Values(),
		EyeLeft:  c.eyeLeft.Values(),
		EyeRight: c.eyeRight.Values(),
	}
}

func mean(w *smooth.Window) float64 {
	m, _ := w.Mean()
	return m
}
