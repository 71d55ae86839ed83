package alignment

import (
	"github.com/pkg/errors"

	"github.com/isae-vo/trajeval/trajectory"
)

// Apply aligns pred onto gt according to mode and returns the aligned trajectory along with the
// transform that was applied to it. Both trajectories must share the same index space and should
// already be normalized to their first frame.
//
// For ModeScale7DOF a full similarity is fitted but only its scale is applied, so the returned
// transform carries the scale with an identity rigid part.
func Apply(mode Mode, gt, pred trajectory.Trajectory) (trajectory.Trajectory, Transform, error) {
	if gt.Len() != pred.Len() {
		return trajectory.Trajectory{}, Transform{}, errors.Wrapf(trajectory.ErrMissingData,
			"ground truth has %d poses but prediction has %d", gt.Len(), pred.Len())
	}

	switch mode {
	case ModeNone, "":
		return pred, IdentityTransform(), nil
	case ModeScale:
		s, err := ScaleLeastSquares(pred.Positions(), gt.Positions())
		if err != nil {
			return trajectory.Trajectory{}, Transform{}, err
		}
		applied := IdentityTransform()
		applied.Scale = s
		return pred.ScaleTranslations(s), applied, nil
	case ModeScale7DOF, Mode7DOF, Mode6DOF:
		fitted, err := Umeyama(pred.Positions(), gt.Positions(), mode.withScale())
		if err != nil {
			return trajectory.Trajectory{}, Transform{}, err
		}
		aligned := pred.ScaleTranslations(fitted.Scale)
		if !mode.appliesRigid() {
			applied := IdentityTransform()
			applied.Scale = fitted.Scale
			return aligned, applied, nil
		}
		return aligned.TransformBy(fitted.Pose()), fitted, nil
	default:
		return trajectory.Trajectory{}, Transform{}, errors.Errorf("unknown alignment mode %q", mode)
	}
}
