// Package evaluation runs the trajectory evaluation protocol: synchronize, normalize, align, then
// measure.
package evaluation

import (
	"github.com/pkg/errors"

	"github.com/isae-vo/trajeval/alignment"
	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/metrics"
	"github.com/isae-vo/trajeval/trajectory"
	"github.com/isae-vo/trajeval/utils"
)

// Config is the per-call configuration of Evaluate.
type Config struct {
	// Sequence labels log lines and results.
	Sequence  string
	Alignment alignment.Mode
	// GroundTruthAligner prepares the reference trajectory for the metrics. Nil means the ground
	// truth is used as is.
	GroundTruthAligner alignment.GroundTruthAligner
	Metrics            metrics.Options
	// Engine overrides the metric engine built from Metrics.
	Engine metrics.Engine
	// MaxTimeDifference fails synchronization when a matched pair is further apart in time.
	// Zero disables the check.
	MaxTimeDifference float64
	Logger            logging.Logger
}

// Result holds the metrics of one evaluated sequence.
type Result struct {
	Sequence  string
	Alignment alignment.Mode
	// Transform is the alignment that was applied to the prediction.
	Transform alignment.Transform
	Sync      trajectory.SyncStats

	ATE            float64
	RPETranslation float64
	// RPERotation is in radians.
	RPERotation float64
	RPEWindows  int

	ScaleErrors       []float64
	ScaleRatios       []float64
	ScaleErrorSummary metrics.Summary
	ScaleRatioSummary metrics.Summary
	// PathLength is the distance travelled by the ground truth.
	PathLength float64

	// GroundTruth and Prediction are the trajectories the metrics were computed on.
	GroundTruth trajectory.Trajectory
	Prediction  trajectory.Trajectory
}

// RPERotationDegrees returns the rotational RPE in degrees.
func (r *Result) RPERotationDegrees() float64 {
	return utils.RadToDeg(r.RPERotation)
}

// Evaluate compares pred against gt. The ground truth is first re-indexed onto the prediction by
// nearest timestamp; both trajectories are then expressed relative to their own first pose, the
// prediction is aligned according to cfg.Alignment, and the metrics are computed against the
// reference produced by cfg.GroundTruthAligner.
func Evaluate(gt, pred trajectory.Stamped, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("evaluation")
	}
	aligner := cfg.GroundTruthAligner
	if aligner == nil {
		aligner = alignment.IdentityAligner{}
	}
	engine := cfg.Engine
	if engine == nil {
		engine = metrics.NewEngine(cfg.Metrics, logger)
	}

	syncedGT, syncStats, err := trajectory.Synchronize(gt, pred)
	if err != nil {
		return nil, errors.Wrap(err, "synchronization failed")
	}
	if cfg.MaxTimeDifference > 0 && syncStats.MaxTimeDifference > cfg.MaxTimeDifference {
		return nil, errors.Wrapf(trajectory.ErrMissingData, "timestamps are up to %.3fs apart, limit is %.3fs",
			syncStats.MaxTimeDifference, cfg.MaxTimeDifference)
	}
	logger.Debugw("synchronized", "seq", cfg.Sequence, "poses", pred.Len(),
		"max_dt", syncStats.MaxTimeDifference, "mean_dt", syncStats.MeanTimeDifference)

	normGT, err := trajectory.NormalizeToFirstFrame(syncedGT)
	if err != nil {
		return nil, errors.Wrap(err, "ground truth normalization failed")
	}
	normPred, err := trajectory.NormalizeToFirstFrame(pred.Trajectory)
	if err != nil {
		return nil, errors.Wrap(err, "prediction normalization failed")
	}

	aligned, transform, err := alignment.Apply(cfg.Alignment, normGT, normPred)
	if err != nil {
		return nil, errors.Wrapf(err, "%s alignment failed", cfg.Alignment)
	}
	reference, err := aligner.AlignGroundTruth(aligned, normGT)
	if err != nil {
		return nil, errors.Wrap(err, "ground truth alignment failed")
	}

	res := &Result{
		Sequence:    cfg.Sequence,
		Alignment:   cfg.Alignment,
		Transform:   transform,
		Sync:        syncStats,
		GroundTruth: reference,
		Prediction:  aligned,
	}
	if res.ATE, err = engine.ComputeATE(reference, aligned); err != nil {
		return nil, err
	}
	rpe, err := engine.ComputeRPE(reference, aligned)
	if err != nil {
		return nil, err
	}
	res.RPETranslation, res.RPERotation, res.RPEWindows = rpe.Translation, rpe.Rotation, rpe.Windows

	scaleErrors, err := engine.ComputeScaleErrors(reference, aligned)
	if err != nil {
		return nil, err
	}
	scaleRatios, err := engine.ComputeScaleRatios(reference, aligned)
	if err != nil {
		return nil, err
	}
	res.ScaleErrors, res.ScaleRatios, res.PathLength = scaleErrors.Values, scaleRatios.Values, scaleRatios.PathLength
	if res.ScaleErrorSummary, err = metrics.Summarize(res.ScaleErrors); err != nil {
		return nil, err
	}
	if res.ScaleRatioSummary, err = metrics.Summarize(res.ScaleRatios); err != nil {
		return nil, err
	}

	logger.Infow("sequence evaluated",
		"seq", cfg.Sequence,
		"alignment", cfg.Alignment,
		"ate_m", res.ATE,
		"rpe_m", res.RPETranslation,
		"rpe_deg", res.RPERotationDegrees(),
		"length_m", res.PathLength,
	)
	return res, nil
}
