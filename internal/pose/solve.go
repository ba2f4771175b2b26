package pose

import (
	"math"

	"github.com/ayusman/abhinaya/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// rankTol bounds the ratio of the second-smallest to largest singular
	// value of the DLT system; below it the null space is not unique.
	rankTol = 1e-9
	// scaleTol rejects projections whose rotation block has collapsed.
	scaleTol = 1e-12

	lambdaInit = 1e-3
	lambdaMax  = 1e10
	stepTol    = 1e-10
)

// solveLinear recovers [R|t] from 3D-2D correspondences with a direct
// linear transform over normalised image coordinates.
func solveLinear(cam Camera, model []r3.Vec, image []geom.Point) (*mat.Dense, r3.Vec, bool) {
	n := len(model)
	if n < 6 || len(image) != n || cam.Focal == 0 {
		return nil, r3.Vec{}, false
	}

	A := mat.NewDense(2*n, 12, nil)
	for i, X := range model {
		u := (image[i].X - cam.CX) / cam.Focal
		v := (image[i].Y - cam.CY) / cam.Focal
		h := [4]float64{X.X, X.Y, X.Z, 1}
		for j := 0; j < 4; j++ {
			A.Set(2*i, j, h[j])
			A.Set(2*i, 8+j, -u*h[j])
			A.Set(2*i+1, 4+j, h[j])
			A.Set(2*i+1, 8+j, -v*h[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return nil, r3.Vec{}, false
	}
	sv := svd.Values(nil)
	if len(sv) < 11 || sv[0] == 0 || sv[10]/sv[0] < rankTol {
		return nil, r3.Vec{}, false
	}
	var V mat.Dense
	svd.VTo(&V)

	P := mat.NewDense(3, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			P.Set(r, c, V.At(4*r+c, 11))
		}
	}
	// The null vector is defined up to sign; keep the model in front of
	// the camera.
	var depth float64
	for _, X := range model {
		depth += P.At(2, 0)*X.X + P.At(2, 1)*X.Y + P.At(2, 2)*X.Z + P.At(2, 3)
	}
	if depth < 0 {
		P.Scale(-1, P)
	}
	M := P.Slice(0, 3, 0, 3)

	var msvd mat.SVD
	if !msvd.Factorize(M, mat.SVDFull) {
		return nil, r3.Vec{}, false
	}
	ms := msvd.Values(nil)
	scale := (ms[0] + ms[1] + ms[2]) / 3
	if scale < scaleTol || ms[2]/ms[0] < rankTol {
		return nil, r3.Vec{}, false
	}
	var U, W mat.Dense
	msvd.UTo(&U)
	msvd.VTo(&W)
	R := mat.NewDense(3, 3, nil)
	R.Mul(&U, W.T())
	if mat.Det(R) < 0 {
		// Nearest proper rotation: flip the least significant direction.
		D := mat.NewDiagDense(3, []float64{1, 1, -1})
		var UD mat.Dense
		UD.Mul(&U, D)
		R.Mul(&UD, W.T())
	}

	t := r3.Vec{X: P.At(0, 3) / scale, Y: P.At(1, 3) / scale, Z: P.At(2, 3) / scale}
	if !finiteMatrix(R) || !finiteVec(t) {
		return nil, r3.Vec{}, false
	}
	for _, X := range model {
		if _, ok := cam.Project(R, t, X); !ok {
			return nil, r3.Vec{}, false
		}
	}
	return R, t, true
}

// refine runs Levenberg-Marquardt over a Rodrigues rotation vector and the
// translation, seeded with R and t, and returns the refined rotation.
func refine(cam Camera, model []r3.Vec, image []geom.Point, R mat.Matrix, t r3.Vec, maxIter int) (*mat.Dense, bool) {
	rv := rotationVector(R)
	p := []float64{rv.X, rv.Y, rv.Z, t.X, t.Y, t.Z}

	res, ok := residuals(cam, model, image, p)
	if !ok {
		return nil, false
	}
	cost := mat.Dot(res, res)
	lambda := lambdaInit
	m := res.Len()

	J := mat.NewDense(m, 6, nil)
	var JtJ, N mat.Dense
	var g, delta mat.VecDense

outer:
	for iter := 0; iter < maxIter && lambda < lambdaMax; iter++ {
		if !jacobian(cam, model, image, p, J) {
			return nil, false
		}
		JtJ.Mul(J.T(), J)
		g.MulVec(J.T(), res)
		g.ScaleVec(-1, &g)

		improved := false
		for lambda < lambdaMax {
			N.CloneFrom(&JtJ)
			for i := 0; i < 6; i++ {
				d := JtJ.At(i, i)
				if d == 0 {
					d = 1
				}
				N.Set(i, i, d*(1+lambda))
			}
			if err := delta.SolveVec(&N, &g); err != nil {
				lambda *= 10
				continue
			}

			next := make([]float64, 6)
			for i := range next {
				next[i] = p[i] + delta.AtVec(i)
			}
			nres, ok := residuals(cam, model, image, next)
			if !ok {
				lambda *= 10
				continue
			}
			ncost := mat.Dot(nres, nres)
			if ncost >= cost {
				lambda *= 10
				continue
			}

			done := cost-ncost <= stepTol*cost || mat.Norm(&delta, 2) <= stepTol
			p, res, cost = next, nres, ncost
			lambda /= 10
			improved = true
			if done {
				break outer
			}
			break
		}
		if !improved {
			break
		}
	}

	out := rodrigues(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	tv := r3.Vec{X: p[3], Y: p[4], Z: p[5]}
	if !finiteMatrix(out) || !finiteVec(tv) || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, false
	}
	return out, true
}

// residuals returns predicted minus observed pixel coordinates. ok is false
// when a point falls behind the camera or a value is not finite.
func residuals(cam Camera, model []r3.Vec, image []geom.Point, p []float64) (*mat.VecDense, bool) {
	R := rodrigues(r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	t := r3.Vec{X: p[3], Y: p[4], Z: p[5]}
	r := mat.NewVecDense(2*len(model), nil)
	for i, X := range model {
		pt, ok := cam.Project(R, t, X)
		if !ok {
			return nil, false
		}
		dx, dy := pt.X-image[i].X, pt.Y-image[i].Y
		if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
			return nil, false
		}
		r.SetVec(2*i, dx)
		r.SetVec(2*i+1, dy)
	}
	return r, true
}

// jacobian fills J with central differences of the residuals.
func jacobian(cam Camera, model []r3.Vec, image []geom.Point, p []float64, J *mat.Dense) bool {
	q := make([]float64, len(p))
	for j := range p {
		h := 1e-6 * math.Max(1, math.Abs(p[j]))
		copy(q, p)
		q[j] = p[j] + h
		hi, ok := residuals(cam, model, image, q)
		if !ok {
			return false
		}
		q[j] = p[j] - h
		lo, ok := residuals(cam, model, image, q)
		if !ok {
			return false
		}
		for i := 0; i < hi.Len(); i++ {
			J.Set(i, j, (hi.AtVec(i)-lo.AtVec(i))/(2*h))
		}
	}
	return true
}

func finiteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func finiteVec(v r3.Vec) bool {
	for _, x := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
