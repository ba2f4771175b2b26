// Package synth renders synthetic face-mesh frames from a head orientation
// and eye openings. The mock detector and pipeline tests use it in place of
// a camera.
package synth

import (
	"math"

	"github.com/ayusman/abhinaya/internal/eye"
	"github.com/ayusman/abhinaya/internal/geom"
	"github.com/ayusman/abhinaya/internal/landmark"
	"github.com/ayusman/abhinaya/internal/pose"
)

// Typical open and closed eye aspect ratios.
const (
	EyeOpen   = 0.30
	EyeClosed = 0.05
)

// Face describes a synthetic face.
type Face struct {
	Angles   pose.Angles
	EyeLeft  float64 // aspect ratio
	EyeRight float64
	// Distance from the camera in millimetres. Zero means 600.
	Distance float64
	Width    int // zero means 640
	Height   int // zero means 480
}

// Neutral returns a frontal face with both eyes open.
func Neutral() Face {
	return Face{EyeLeft: EyeOpen, EyeRight: EyeOpen}
}

// Frame renders f. It returns nil if the head would be behind the camera.
func (f Face) Frame() *landmark.Frame {
	w, h, d := f.Width, f.Height, f.Distance
	if w == 0 {
		w = 640
	}
	if h == 0 {
		h = 480
	}
	if d == 0 {
		d = 600
	}

	pts, ok := pose.ProjectModel(f.Angles, d, pose.CameraFor(w, h))
	if !ok {
		return nil
	}

	fr := &landmark.Frame{
		Points: make([]geom.Point, landmark.NumLandmarks),
		Width:  w,
		Height: h,
	}

	left, right := pts[2], pts[3]
	ew := 0.3 * math.Abs(right.X-left.X)
	for i, p := range eye.Contour(geom.Point{X: left.X + ew/2, Y: left.Y}, ew, f.EyeLeft) {
		fr.Points[landmark.LeftEye[i]] = p
	}
	for i, p := range eye.Contour(geom.Point{X: right.X - ew/2, Y: right.Y}, ew, f.EyeRight) {
		fr.Points[landmark.RightEye[i]] = p
	}
	// Pose landmarks last: the outer eye corners are shared with the
	// contours.
	for i, idx := range pose.Indices {
		fr.Points[idx] = pts[i]
	}
	return fr
}
