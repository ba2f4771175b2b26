package detector

import (
	"sync"
	"time"

	"github.com/ayusman/abhinaya/internal/landmark"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/synth"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	face  *landmark.Frame
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by Detect. Nil means no face.
func (m *MockDetector) SetFace(f *landmark.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = f
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(*gocv.Mat) (*landmark.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.face, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Step is one segment of a scripted performance.
type Step struct {
	Face     synth.Face
	Duration time.Duration
	// Absent reports no face for the whole step.
	Absent bool
}

// ScriptedDetector replays a looping sequence of synthetic faces against
// the wall clock. It drives demo mode when no face-mesh helper is
// installed.
type ScriptedDetector struct {
	steps []Step
	total time.Duration
	now   func() time.Time
	start time.Time
}

// NewScriptedDetector loops steps starting at the first Detect call. now
// may be nil to use time.Now.
func NewScriptedDetector(steps []Step, now func() time.Time) *ScriptedDetector {
	if now == nil {
		now = time.Now
	}
	var total time.Duration
	for _, s := range steps {
		total += s.Duration
	}
	return &ScriptedDetector{steps: steps, total: total, now: now}
}

// Detect renders the step active at the current time at the frame's size.
func (s *ScriptedDetector) Detect(frame *gocv.Mat) (*landmark.Frame, error) {
	w, h := 0, 0
	if frame != nil {
		w, h = frame.Cols(), frame.Rows()
	}
	return s.at(s.now(), w, h), nil
}

func (s *ScriptedDetector) at(now time.Time, width, height int) *landmark.Frame {
	if len(s.steps) == 0 || s.total <= 0 {
		return nil
	}
	if s.start.IsZero() {
		s.start = now
	}
	offset := now.Sub(s.start) % s.total
	for _, step := range s.steps {
		if offset < step.Duration {
			if step.Absent {
				return nil
			}
			f := step.Face
			f.Width, f.Height = width, height
			return f.Frame()
		}
		offset -= step.Duration
	}
	return nil
}

// Close does nothing.
func (s *ScriptedDetector) Close() error { return nil }

// DemoScript walks through calibration, difficulty selection, a few cursor
// moves and a placement.
func DemoScript() []Step {
	open := synth.Neutral()
	turn := func(a pose.Angles) synth.Face {
		f := synth.Neutral()
		f.Angles = a
		return f
	}
	blink := synth.Face{EyeLeft: synth.EyeClosed, EyeRight: synth.EyeClosed}

	return []Step{
		{Face: open, Duration: 6 * time.Second},
		{Face: turn(pose.Angles{Yaw: -30}), Duration: 600 * time.Millisecond},
		{Face: open, Duration: time.Second},
		{Face: turn(pose.Angles{Pitch: -28}), Duration: 600 * time.Millisecond},
		{Face: open, Duration: time.Second},
		{Face: blink, Duration: 800 * time.Millisecond},
		{Face: open, Duration: 2 * time.Second},
		{Absent: true, Duration: 1500 * time.Millisecond},
	}
}
