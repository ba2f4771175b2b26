// Package landmark defines the per-frame face landmark record produced by a
// detector and the face-mesh indices the estimators read from it.
package landmark

import "github.com/ayusman/abhinaya/internal/geom"

// Face-mesh landmark indices following the MediaPipe Face Mesh topology.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip       = 1
	Chin          = 152
	LeftEyeOuter  = 33
	RightEyeOuter = 263
	LeftMouth     = 61
	RightMouth    = 291

	// NumLandmarks is the number of points in a refined face mesh.
	NumLandmarks = 478
)

// Eye contours ordered p1..p6: horizontal corners at p1/p4, upper lid at
// p2/p3 and lower lid at p6/p5.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{362, 385, 387, 263, 373, 380}
)

// Frame holds the landmarks of one face in one camera frame, in pixels.
// A Frame is never modified after the detector returns it.
type Frame struct {
	Points []geom.Point `json:"points"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
}

// Point returns the landmark at index i.
func (f *Frame) Point(i int) geom.Point {
	return f.Points[i]
}

// Valid reports whether every index is present in the frame.
func (f *Frame) Valid(indices ...int) bool {
	if f == nil {
		return false
	}
	for _, i := range indices {
		if i < 0 || i >= len(f.Points) {
			return false
		}
	}
	return true
}

// Eye returns the six contour points of an eye given its index set.
func (f *Frame) Eye(idx [6]int) [6]geom.Point {
	var pts [6]geom.Point
	for i, j := range idx {
		pts[i] = f.Points[j]
	}
	return pts
}
