package trajectory

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/isae-vo/trajeval/spatialmath"
)

// SyncStats describes how closely the matched timestamps agree.
type SyncStats struct {
	MaxTimeDifference  float64
	MeanTimeDifference float64
}

// Synchronize re-indexes the ground truth onto the index space of pred. For every predicted pose
// the ground-truth pose with the nearest timestamp is selected; ties resolve to the lowest
// ground-truth index. No interpolation is done. The returned trajectory has pred.Len() poses.
func Synchronize(gt, pred Stamped) (Trajectory, SyncStats, error) {
	if err := gt.Validate(); err != nil {
		return Trajectory{}, SyncStats{}, errors.Wrap(err, "invalid ground truth")
	}
	if err := pred.Validate(); err != nil {
		return Trajectory{}, SyncStats{}, errors.Wrap(err, "invalid prediction")
	}

	diffs := make([]float64, len(gt.Timestamps))
	matched := make([]float64, len(pred.Timestamps))
	synced := make([]spatialmath.Pose, pred.Len())
	for i, ts := range pred.Timestamps {
		for j, gtTS := range gt.Timestamps {
			diffs[j] = math.Abs(gtTS - ts)
		}
		// MinIdx returns the first occurrence, which gives the lowest index on ties.
		idx := floats.MinIdx(diffs)
		synced[i] = gt.At(idx)
		matched[i] = diffs[idx]
	}

	stats := SyncStats{
		MaxTimeDifference:  floats.Max(matched),
		MeanTimeDifference: stat.Mean(matched, nil),
	}
	return Trajectory{poses: synced}, stats, nil
}
