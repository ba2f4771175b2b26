// Package geom provides the small planar geometry and angle helpers shared by
// the pose and eye estimators.
package geom

import "math"

// Point is a 2D point in image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// WrapYaw wraps deg into (-180, 180].
func WrapYaw(deg float64) float64 {
	w := math.Mod(deg+180.0, 360.0)
	if w < 0 {
		w += 360.0
	}
	w -= 180.0
	if w == -180.0 {
		return 180.0
	}
	return w
}

// WrapHuman wraps deg into (-180, 180] and then folds anything beyond ±90
// back by 180, so a head tilted slightly past the wrap boundary keeps the
// sense of its direction instead of flipping sign. The result lies in
// (-90, 90].
func WrapHuman(deg float64) float64 {
	w := WrapYaw(deg)
	switch {
	case w > 90.0:
		w -= 180.0
	case w <= -90.0:
		w += 180.0
	}
	return w
}
