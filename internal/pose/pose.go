// Package pose estimates head orientation from six face-mesh landmarks.
//
// The solve runs in two stages: a direct linear transform gives an initial
// camera-from-model transform, which Levenberg-Marquardt then refines by
// minimising pixel reprojection error. The resulting rotation is decomposed
// into pitch (x), yaw (y) and roll (z).
package pose

import (
	"github.com/ayusman/abhinaya/internal/geom"
	"github.com/ayusman/abhinaya/internal/landmark"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Angles is a head orientation in degrees. Yaw lies in (-180, 180];
// pitch and roll are folded into (-90, 90].
type Angles struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Indices are the face-mesh landmarks paired with Model, in order.
var Indices = [6]int{
	landmark.NoseTip,
	landmark.Chin,
	landmark.LeftEyeOuter,
	landmark.RightEyeOuter,
	landmark.LeftMouth,
	landmark.RightMouth,
}

// Model is a generic head in millimetres with the nose tip at the origin.
var Model = [6]r3.Vec{
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: -63.6, Z: -12.5},
	{X: -43.3, Y: 32.7, Z: -26.0},
	{X: 43.3, Y: 32.7, Z: -26.0},
	{X: -28.9, Y: -28.9, Z: -24.1},
	{X: 28.9, Y: -28.9, Z: -24.1},
}

// Camera is a distortion-free pinhole camera.
type Camera struct {
	Focal  float64
	CX, CY float64
}

// CameraFor approximates the intrinsics of a webcam producing frames of
// the given size: focal length equal to the width, principal point at the
// centre.
func CameraFor(width, height int) Camera {
	return Camera{
		Focal: float64(width),
		CX:    float64(width) / 2,
		CY:    float64(height) / 2,
	}
}

// Project maps a model point through rotation R and translation t into
// pixel coordinates. ok is false when the point is not in front of the
// camera.
func (c Camera) Project(R mat.Matrix, t r3.Vec, p r3.Vec) (pt geom.Point, ok bool) {
	x := R.At(0, 0)*p.X + R.At(0, 1)*p.Y + R.At(0, 2)*p.Z + t.X
	y := R.At(1, 0)*p.X + R.At(1, 1)*p.Y + R.At(1, 2)*p.Z + t.Y
	z := R.At(2, 0)*p.X + R.At(2, 1)*p.Y + R.At(2, 2)*p.Z + t.Z
	if z <= 0 {
		return geom.Point{}, false
	}
	return geom.Point{X: c.Focal*x/z + c.CX, Y: c.Focal*y/z + c.CY}, true
}

// Estimator solves head pose from a landmark frame. The zero value is not
// usable; call NewEstimator.
type Estimator struct {
	maxIter int
}

// NewEstimator returns an Estimator with default refinement settings.
func NewEstimator() *Estimator {
	return &Estimator{maxIter: 50}
}

// Estimate returns the head orientation for f. ok is false when the frame
// is missing a landmark or either solver stage fails; this is an expected
// per-frame outcome, not an error.
func (e *Estimator) Estimate(f *landmark.Frame) (a Angles, ok bool) {
	if f == nil || f.Width <= 0 || f.Height <= 0 || !f.Valid(Indices[:]...) {
		return Angles{}, false
	}

	var image [6]geom.Point
	for i, idx := range Indices {
		image[i] = f.Point(idx)
	}
	cam := CameraFor(f.Width, f.Height)

	R, t, ok := solveLinear(cam, Model[:], image[:])
	if !ok {
		return Angles{}, false
	}
	R, ok = refine(cam, Model[:], image[:], R, t, e.maxIter)
	if !ok {
		return Angles{}, false
	}

	x, y, z := eulerAngles(R)
	return Angles{
		Pitch: geom.WrapHuman(x),
		Yaw:   geom.WrapYaw(y),
		Roll:  geom.WrapHuman(z),
	}, true
}

// ProjectModel renders the model head at the given orientation, distance
// millimetres in front of the camera, and returns its image points in
// Indices order. Angles use the same convention Estimate reports, so the
// model faces the camera at the zero orientation.
func ProjectModel(a Angles, distance float64, cam Camera) (pts [6]geom.Point, ok bool) {
	R := RotationFromEuler(a.Pitch+180, a.Yaw, a.Roll)
	t := r3.Vec{Z: distance}
	for i, X := range Model {
		if pts[i], ok = cam.Project(R, t, X); !ok {
			return pts, false
		}
	}
	return pts, true
}
