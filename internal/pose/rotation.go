package pose

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	smallAngle = 1e-8
	nearPi     = 1e-4
)

// rodrigues converts a rotation vector into a 3x3 rotation matrix.
func rodrigues(r r3.Vec) *mat.Dense {
	theta := r3.Norm(r)
	R := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if theta < 1e-12 {
		// First-order expansion: I + [r]x
		R.Set(0, 1, -r.Z)
		R.Set(0, 2, r.Y)
		R.Set(1, 0, r.Z)
		R.Set(1, 2, -r.X)
		R.Set(2, 0, -r.Y)
		R.Set(2, 1, r.X)
		return R
	}

	k := r3.Scale(1/theta, r)
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	R.Set(0, 0, c+k.X*k.X*v)
	R.Set(0, 1, k.X*k.Y*v-k.Z*s)
	R.Set(0, 2, k.X*k.Z*v+k.Y*s)
	R.Set(1, 0, k.Y*k.X*v+k.Z*s)
	R.Set(1, 1, c+k.Y*k.Y*v)
	R.Set(1, 2, k.Y*k.Z*v-k.X*s)
	R.Set(2, 0, k.Z*k.X*v-k.Y*s)
	R.Set(2, 1, k.Z*k.Y*v+k.X*s)
	R.Set(2, 2, c+k.Z*k.Z*v)
	return R
}

// rotationVector is the inverse of rodrigues. Rotations close to pi are
// recovered from the symmetric part of R since sin(theta) vanishes there.
func rotationVector(R mat.Matrix) r3.Vec {
	tr := R.At(0, 0) + R.At(1, 1) + R.At(2, 2)
	cosT := math.Max(-1, math.Min(1, (tr-1)/2))
	theta := math.Acos(cosT)

	// vee(R - R^T) = 2 sin(theta) k
	w := r3.Vec{
		X: R.At(2, 1) - R.At(1, 2),
		Y: R.At(0, 2) - R.At(2, 0),
		Z: R.At(1, 0) - R.At(0, 1),
	}

	switch {
	case theta < smallAngle:
		return r3.Scale(0.5, w)
	case math.Pi-theta < nearPi:
		// B = (R + I) / 2 ~ k k^T
		b := [3][3]float64{}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				b[i][j] = R.At(i, j) / 2
			}
			b[i][i] += 0.5
		}
		col := 0
		for i := 1; i < 3; i++ {
			if b[i][i] > b[col][col] {
				col = i
			}
		}
		ki := math.Sqrt(math.Max(b[col][col], 0))
		if ki == 0 {
			return r3.Vec{}
		}
		kv := [3]float64{}
		for j := 0; j < 3; j++ {
			kv[j] = b[col][j] / ki
		}
		kv[col] = ki
		k := r3.Unit(r3.Vec{X: kv[0], Y: kv[1], Z: kv[2]})
		if r3.Dot(k, w) < 0 {
			k = r3.Scale(-1, k)
		}
		return r3.Scale(theta, k)
	default:
		return r3.Scale(theta/(2*math.Sin(theta)), w)
	}
}

// eulerAngles decomposes R = Rz(z) * Ry(y) * Rx(x) with three Givens
// rotations applied in x, y, z order and returns the angles in degrees.
func eulerAngles(R mat.Matrix) (x, y, z float64) {
	var m, q mat.Dense
	m.CloneFrom(R)

	c, s := givens(m.At(2, 2), m.At(2, 1))
	x = math.Atan2(s, c)
	q.CloneFrom(mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	}))
	m.Mul(&m, &q)

	c, s = givens(m.At(2, 2), -m.At(2, 0))
	y = math.Atan2(s, c)
	q.CloneFrom(mat.NewDense(3, 3, []float64{
		c, 0, -s,
		0, 1, 0,
		s, 0, c,
	}))
	m.Mul(&m, &q)

	c, s = givens(m.At(1, 1), m.At(1, 0))
	z = math.Atan2(s, c)

	return degrees(x), degrees(y), degrees(z)
}

// givens returns the normalised (cos, sin) pair for the vector (a, b).
func givens(a, b float64) (c, s float64) {
	n := math.Hypot(a, b)
	if n == 0 {
		return 1, 0
	}
	return a / n, b / n
}

// RotationFromEuler builds Rz(roll) * Ry(yaw) * Rx(pitch) from angles in
// degrees. It is the inverse of the decomposition used by Estimate before
// wrapping.
func RotationFromEuler(pitch, yaw, roll float64) *mat.Dense {
	px, py, pz := radians(pitch), radians(yaw), radians(roll)
	cx, sx := math.Cos(px), math.Sin(px)
	cy, sy := math.Cos(py), math.Sin(py)
	cz, sz := math.Cos(pz), math.Sin(pz)

	rx := mat.NewDense(3, 3, []float64{1, 0, 0, 0, cx, -sx, 0, sx, cx})
	ry := mat.NewDense(3, 3, []float64{cy, 0, sy, 0, 1, 0, -sy, 0, cy})
	rz := mat.NewDense(3, 3, []float64{cz, -sz, 0, sz, cz, 0, 0, 0, 1})

	var r mat.Dense
	r.Mul(rz, ry)
	r.Mul(&r, rx)
	return &r
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
func radians(deg float64) float64 { return deg * math.Pi / 180 }
