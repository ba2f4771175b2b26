// Package eye computes the eye aspect ratio (EAR) used to detect closed
// eyes.
package eye

import (
	"github.com/ayusman/abhinaya/internal/geom"
	"github.com/ayusman/abhinaya/internal/landmark"
)

const epsilon = 1e-6

// AspectRatio returns (|p2-p6| + |p3-p5|) / (2|p1-p4| + epsilon) for the
// six contour points p1..p6. It is invariant to uniform scaling and always
// finite.
func AspectRatio(p [6]geom.Point) float64 {
	v1 := geom.Distance(p[1], p[5])
	v2 := geom.Distance(p[2], p[4])
	h := geom.Distance(p[0], p[3])
	return (v1 + v2) / (2*h + epsilon)
}

// Ratios returns the left and right eye aspect ratios for f. ok is false
// when the frame lacks an eye landmark.
func Ratios(f *landmark.Frame) (left, right float64, ok bool) {
	if !f.Valid(landmark.LeftEye[:]...) || !f.Valid(landmark.RightEye[:]...) {
		return 0, 0, false
	}
	return AspectRatio(f.Eye(landmark.LeftEye)), AspectRatio(f.Eye(landmark.RightEye)), true
}

// Contour returns six eye points centred on c with the given horizontal
// width and ratio of lid opening to width, in p1..p6 order.
func Contour(c geom.Point, width, ratio float64) [6]geom.Point {
	hw := width / 2
	// Lid points sit at +/- width/6 so that both vertical spans equal
	// ratio*width, giving AspectRatio ~= ratio.
	dx := width / 6
	dy := ratio * width / 2
	return [6]geom.Point{
		{X: c.X - hw, Y: c.Y},
		{X: c.X - dx, Y: c.Y - dy},
		{X: c.X + dx, Y: c.Y - dy},
		{X: c.X + hw, Y: c.Y},
		{X: c.X + dx, Y: c.Y + dy},
		{X: c.X - dx, Y: c.Y + dy},
	}
}
