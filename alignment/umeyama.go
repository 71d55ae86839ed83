package alignment

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/isae-vo/trajeval/spatialmath"
)

// rankCondition is the relative singular value threshold used to detect rank-deficient covariances.
const rankCondition = 1e-10

// Transform is a similarity transform p -> Scale * Rotation * p + Translation.
type Transform struct {
	Rotation    mgl64.Mat3
	Translation r3.Vector
	Scale       float64
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.Ident3(), Scale: 1}
}

// Apply maps a point through the transform.
func (t Transform) Apply(pt r3.Vector) r3.Vector {
	v := t.Rotation.Mul3x1(mgl64.Vec3{pt.X, pt.Y, pt.Z}).Mul(t.Scale)
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}.Add(t.Translation)
}

// Pose returns the rigid part [[R, t], [0, 1]] of the transform. Scale is not included.
func (t Transform) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromRotation(t.Translation, t.Rotation)
}

// Umeyama computes the least-squares transform mapping src onto dst, following
// "Least-squares estimation of transformation parameters between two point patterns",
// S. Umeyama, PAMI 1991. When withScale is false the scale is fixed to 1.
func Umeyama(src, dst []r3.Vector, withScale bool) (Transform, error) {
	if len(src) != len(dst) {
		return Transform{}, errors.Wrapf(ErrDegenerateAlignment, "point sets differ in size: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 3 {
		return Transform{}, errors.Wrapf(ErrDegenerateAlignment, "need at least 3 points but got %d", n)
	}

	meanSrc, meanDst := centroid(src), centroid(dst)

	sigmaSrc := 0.
	cov := mat.NewDense(3, 3, nil)
	for i := range src {
		x := src[i].Sub(meanSrc)
		y := dst[i].Sub(meanDst)
		sigmaSrc += x.Norm2()
		outer := mat.NewDense(3, 3, nil)
		outer.Outer(1, mat.NewVecDense(3, []float64{y.X, y.Y, y.Z}), mat.NewVecDense(3, []float64{x.X, x.Y, x.Z}))
		cov.Add(cov, outer)
	}
	sigmaSrc /= float64(n)
	cov.Scale(1/float64(n), cov)

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return Transform{}, errors.Wrap(ErrDegenerateAlignment, "failed to factorize covariance")
	}
	if rank := svd.Rank(rankCondition); rank < 2 {
		return Transform{}, errors.Wrapf(ErrDegenerateAlignment, "covariance rank %d, points are collinear or coincident", rank)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// reflection correction
	s := mat.NewDiagDense(3, []float64{1, 1, 1})
	if mat.Det(&u)*mat.Det(&v) < 0 {
		s.SetDiag(2, -1)
	}

	var rot mat.Dense
	rot.Product(&u, s, v.T())

	scale := 1.
	if withScale {
		if sigmaSrc == 0 {
			return Transform{}, errors.Wrap(ErrDegenerateAlignment, "source points have no spread")
		}
		scale = (values[0] + values[1] + s.At(2, 2)*values[2]) / sigmaSrc
	}

	var rotation mgl64.Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rotation.Set(r, c, rot.At(r, c))
		}
	}
	tr := Transform{Rotation: rotation, Scale: scale}
	tr.Translation = meanDst.Sub(tr.Apply(meanSrc))
	return tr, nil
}

func centroid(pts []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(pts)))
}
