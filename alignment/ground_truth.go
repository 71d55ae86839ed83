package alignment

import (
	"github.com/pkg/errors"

	"github.com/isae-vo/trajeval/trajectory"
	"github.com/isae-vo/trajeval/utils"
)

// A GroundTruthAligner produces the ground-truth trajectory that metrics are computed against,
// given the already aligned prediction. The returned trajectory has the same index domain as gt.
type GroundTruthAligner interface {
	AlignGroundTruth(pred, gt trajectory.Trajectory) (trajectory.Trajectory, error)
}

// IdentityAligner returns the ground truth unchanged.
type IdentityAligner struct{}

// AlignGroundTruth returns gt.
func (IdentityAligner) AlignGroundTruth(pred, gt trajectory.Trajectory) (trajectory.Trajectory, error) {
	if pred.Len() != gt.Len() {
		return trajectory.Trajectory{}, errors.Wrapf(trajectory.ErrMissingData,
			"ground truth has %d poses but prediction has %d", gt.Len(), pred.Len())
	}
	return gt, nil
}

// RigidAligner moves the ground truth onto the prediction with the best-fitting rigid transform.
type RigidAligner struct{}

// AlignGroundTruth fits a 6-dof transform from gt positions to pred positions and applies it to
// every ground-truth pose.
func (RigidAligner) AlignGroundTruth(pred, gt trajectory.Trajectory) (trajectory.Trajectory, error) {
	if pred.Len() != gt.Len() {
		return trajectory.Trajectory{}, errors.Wrapf(trajectory.ErrMissingData,
			"ground truth has %d poses but prediction has %d", gt.Len(), pred.Len())
	}
	fitted, err := Umeyama(gt.Positions(), pred.Positions(), false)
	if err != nil {
		return trajectory.Trajectory{}, errors.Wrap(err, "cannot fit ground truth to prediction")
	}
	return gt.TransformBy(fitted.Pose()), nil
}

// NewGroundTruthAligner returns the aligner registered under name: "none" (or empty) or "6dof".
func NewGroundTruthAligner(name string) (GroundTruthAligner, error) {
	switch name {
	case "", string(ModeNone):
		return IdentityAligner{}, nil
	case string(Mode6DOF):
		return RigidAligner{}, nil
	default:
		return nil, utils.NewUnexpectedValueError("gt_alignment", name, ModeNone, Mode6DOF)
	}
}
