// Package trajectory holds ordered pose sequences and the passes that prepare two of them for
// comparison: timestamp synchronization and first-frame normalization.
package trajectory

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/utils"
)

// ErrMissingData is returned for empty trajectories or trajectories whose parts disagree in length.
var ErrMissingData = errors.New("missing trajectory data")

// Trajectory is an ordered sequence of poses indexed densely from 0 to Len()-1. Index order is
// temporal order. A Trajectory is never modified after construction; every transformation
// returns a new value.
type Trajectory struct {
	poses []spatialmath.Pose
}

// New returns a trajectory holding a copy of poses.
func New(poses []spatialmath.Pose) Trajectory {
	cp := make([]spatialmath.Pose, len(poses))
	copy(cp, poses)
	return Trajectory{poses: cp}
}

// Len returns the number of poses.
func (t Trajectory) Len() int {
	return len(t.poses)
}

// At returns the pose at index i.
func (t Trajectory) At(i int) spatialmath.Pose {
	return t.poses[i]
}

// Poses returns a copy of the poses in index order.
func (t Trajectory) Poses() []spatialmath.Pose {
	cp := make([]spatialmath.Pose, len(t.poses))
	copy(cp, t.poses)
	return cp
}

// Positions returns the translation of every pose in index order.
func (t Trajectory) Positions() []r3.Vector {
	pts := make([]r3.Vector, len(t.poses))
	for i, p := range t.poses {
		pts[i] = p.Point()
	}
	return pts
}

// Map returns a new trajectory whose pose i is fn(i, t.At(i)).
func (t Trajectory) Map(fn func(i int, p spatialmath.Pose) spatialmath.Pose) Trajectory {
	out := make([]spatialmath.Pose, len(t.poses))
	for i, p := range t.poses {
		out[i] = fn(i, p)
	}
	return Trajectory{poses: out}
}

// ScaleTranslations returns a trajectory whose translations are all multiplied by s.
func (t Trajectory) ScaleTranslations(s float64) Trajectory {
	return t.Map(func(_ int, p spatialmath.Pose) spatialmath.Pose {
		return p.ScaleTranslation(s)
	})
}

// TransformBy returns a trajectory with every pose left-multiplied by transform.
func (t Trajectory) TransformBy(transform spatialmath.Pose) Trajectory {
	return t.Map(func(_ int, p spatialmath.Pose) spatialmath.Pose {
		return spatialmath.Compose(transform, p)
	})
}

// PathLength returns the summed distance between consecutive positions.
func (t Trajectory) PathLength() float64 {
	length := 0.
	for i := 1; i < len(t.poses); i++ {
		length += t.poses[i].Point().Sub(t.poses[i-1].Point()).Norm()
	}
	return length
}

// NormalizeToFirstFrame expresses every pose relative to the first one, so that the returned
// trajectory starts at the identity.
func NormalizeToFirstFrame(t Trajectory) (Trajectory, error) {
	if t.Len() == 0 {
		return Trajectory{}, errors.Wrap(ErrMissingData, "cannot normalize an empty trajectory")
	}
	origin, err := spatialmath.PoseInverse(t.At(0))
	if err != nil {
		return Trajectory{}, errors.Wrap(err, "cannot invert first pose")
	}
	return t.TransformBy(origin), nil
}

// Stamped pairs a trajectory with one timestamp per pose.
type Stamped struct {
	Trajectory
	Timestamps []float64
}

// NewStamped builds a stamped trajectory, checking that poses and timestamps line up.
func NewStamped(poses []spatialmath.Pose, timestamps []float64) (Stamped, error) {
	s := Stamped{Trajectory: New(poses), Timestamps: append([]float64(nil), timestamps...)}
	if err := s.Validate(); err != nil {
		return Stamped{}, err
	}
	return s, nil
}

// Validate checks that the trajectory is not empty, that there is exactly one finite timestamp
// per pose, and that no pose has non-finite entries.
func (s Stamped) Validate() error {
	if s.Len() == 0 {
		return errors.Wrap(ErrMissingData, "trajectory is empty")
	}
	if len(s.Timestamps) != s.Len() {
		return errors.Wrapf(ErrMissingData, "%d poses but %d timestamps", s.Len(), len(s.Timestamps))
	}
	if !utils.IsFinite(s.Timestamps...) {
		return errors.Wrap(ErrMissingData, "non-finite timestamp")
	}
	for i, p := range s.poses {
		if !p.IsFinite() {
			return errors.Wrapf(ErrMissingData, "pose %d has non-finite entries", i)
		}
	}
	return nil
}
