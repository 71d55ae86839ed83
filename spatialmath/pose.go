// Package spatialmath defines the rigid and similarity transforms used to describe trajectories.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/isae-vo/trajeval/utils"
)

// ErrSingularTransform is returned when a pose matrix cannot be inverted.
var ErrSingularTransform = errors.New("singular transform")

// determinantEpsilon is the smallest |det| for which a pose is considered invertible.
const determinantEpsilon = 1e-12

// Pose is a 4x4 homogeneous transform [[R, t], [0, 1]]. The zero value is not a valid pose, use
// NewZeroPose for the identity.
//
// A Pose is a value: every operation returns a new Pose and never modifies its receiver.
type Pose struct {
	mat mgl64.Mat4
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{mgl64.Ident4()}
}

// NewPose creates a pose from a translation and an orientation quaternion. The quaternion is
// normalized before it is converted.
func NewPose(pt r3.Vector, q quat.Number) Pose {
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	} else {
		q = quat.Number{Real: 1}
	}
	m := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Mat4()
	m.Set(0, 3, pt.X)
	m.Set(1, 3, pt.Y)
	m.Set(2, 3, pt.Z)
	return Pose{m}
}

// NewPoseFromRotation creates a pose from a translation and a 3x3 rotation matrix.
func NewPoseFromRotation(pt r3.Vector, rot mgl64.Mat3) Pose {
	m := rot.Mat4()
	m.Set(0, 3, pt.X)
	m.Set(1, 3, pt.Y)
	m.Set(2, 3, pt.Z)
	return Pose{m}
}

// NewPoseFromPoint returns a pose with the given translation and no rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{mgl64.Translate3D(pt.X, pt.Y, pt.Z)}
}

// NewPoseFromRowMajor creates a pose from either the 12 values of the top 3x4 block or all 16
// values of a homogeneous matrix, both in row-major order.
func NewPoseFromRowMajor(values []float64) (Pose, error) {
	if len(values) != 12 && len(values) != 16 {
		return Pose{}, errors.Errorf("expected 12 or 16 pose values but got %d", len(values))
	}
	m := mgl64.Ident4()
	rows := len(values) / 4
	for r := 0; r < rows; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, values[r*4+c])
		}
	}
	return Pose{m}, nil
}

// Matrix returns the underlying homogeneous matrix.
func (p Pose) Matrix() mgl64.Mat4 {
	return p.mat
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector {
	return r3.Vector{X: p.mat.At(0, 3), Y: p.mat.At(1, 3), Z: p.mat.At(2, 3)}
}

// Rotation returns the top-left 3x3 block.
func (p Pose) Rotation() mgl64.Mat3 {
	return p.mat.Mat3()
}

// ScaleTranslation returns a copy of the pose whose translation is multiplied by s. The rotation
// block is left untouched.
func (p Pose) ScaleTranslation(s float64) Pose {
	m := p.mat
	for r := 0; r < 3; r++ {
		m.Set(r, 3, s*m.At(r, 3))
	}
	return Pose{m}
}

// IsFinite reports whether every entry of the pose is a finite number.
func (p Pose) IsFinite() bool {
	return utils.IsFinite(p.mat[:]...)
}

func (p Pose) String() string {
	pt := p.Point()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Angle:%.4f}", pt.X, pt.Y, pt.Z, RotationAngle(p.Rotation()))
}

// Compose returns a * b.
func Compose(a, b Pose) Pose {
	return Pose{a.mat.Mul4(b.mat)}
}

// PoseInverse returns the exact matrix inverse of p. ErrSingularTransform is returned when p is
// not invertible or contains non-finite entries.
func PoseInverse(p Pose) (Pose, error) {
	if !p.IsFinite() {
		return Pose{}, errors.Wrap(ErrSingularTransform, "pose has non-finite entries")
	}
	if det := p.mat.Det(); math.Abs(det) < determinantEpsilon {
		return Pose{}, errors.Wrapf(ErrSingularTransform, "determinant %g", det)
	}
	inv := Pose{p.mat.Inv()}
	if !inv.IsFinite() {
		return Pose{}, errors.Wrap(ErrSingularTransform, "inverse has non-finite entries")
	}
	return inv, nil
}

// PoseBetween returns the motion from a to b expressed in the frame of a, inv(a) * b.
func PoseBetween(a, b Pose) (Pose, error) {
	aInv, err := PoseInverse(a)
	if err != nil {
		return Pose{}, err
	}
	return Compose(aInv, b), nil
}

// RotationAngle returns the angle in radians of the rotation described by rot, computed from its
// trace. The cosine is clamped to [-1, 1] to absorb floating point drift.
func RotationAngle(rot mgl64.Mat3) float64 {
	trace := rot.At(0, 0) + rot.At(1, 1) + rot.At(2, 2)
	return math.Acos(utils.Clamp((trace-1)/2, -1, 1))
}

// PoseAlmostEqual reports whether every entry of a and b differs by at most epsilon.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	for i := range a.mat {
		if !utils.Float64AlmostEqual(a.mat[i], b.mat[i], epsilon) {
			return false
		}
	}
	return true
}
