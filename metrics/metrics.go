// Package metrics computes the trajectory error metrics: absolute trajectory error, relative pose
// error and the per-step scale statistics.
package metrics

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/trajectory"
	"github.com/isae-vo/trajeval/utils"
)

// ErrNonFinite is returned when a metric evaluates to NaN or infinity.
var ErrNonFinite = errors.New("non-finite metric")

// DefaultMinMotion is the ground-truth step length below which a scale ratio is not computed.
const DefaultMinMotion = 0.05

// Statistic reduces a series of per-window errors to one number.
type Statistic string

const (
	// RMSE is the root mean square of the series.
	RMSE Statistic = "rmse"
	// Mean is the arithmetic mean of the series.
	Mean Statistic = "mean"
)

// ParseStatistic converts a configuration string to a Statistic. The empty string means RMSE.
func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(strings.ToLower(s)) {
	case "", RMSE:
		return RMSE, nil
	case Mean:
		return Mean, nil
	default:
		return "", utils.NewUnexpectedValueError("rpe_statistic", s, RMSE, Mean)
	}
}

func (s Statistic) reduce(values []float64) float64 {
	if s == Mean {
		return stat.Mean(values, nil)
	}
	return math.Sqrt(floats.Dot(values, values) / float64(len(values)))
}

// Options configures an Engine.
type Options struct {
	// RPEDelta is the frame distance between the two poses of a relative motion.
	RPEDelta int
	// RPEStatistic reduces the per-window RPE errors.
	RPEStatistic Statistic
	// MinMotion is the ground-truth step length below which scale ratio pairs are skipped. Zero
	// keeps every pair that moved at all; a negative value means DefaultMinMotion.
	MinMotion float64
}

// DefaultOptions returns a window of one frame, RMSE reduction and a 0.05 motion threshold.
func DefaultOptions() Options {
	return Options{RPEDelta: 1, RPEStatistic: RMSE, MinMotion: DefaultMinMotion}
}

// RPE holds the relative pose error of a trajectory.
type RPE struct {
	Translation float64
	// Rotation is in radians.
	Rotation float64
	Windows  int
}

// ScaleSeries holds one scale metric per consecutive pose pair. Ratio series leave out pairs whose
// ground truth moved less than MinMotion; error series have one value for every pair.
type ScaleSeries struct {
	Values []float64
	// PathLength is the ground-truth distance travelled over every pair, skipped ones included.
	PathLength float64
	Skipped    int
}

// Engine computes trajectory metrics. Trajectories passed to it must share one index space and
// already be aligned.
type Engine interface {
	ComputeATE(gt, pred trajectory.Trajectory) (float64, error)
	ComputeRPE(gt, pred trajectory.Trajectory) (RPE, error)
	ScaleError(gtRel, predRel spatialmath.Pose) (float64, error)
	ScaleRatio(gtRel, predRel spatialmath.Pose) (float64, error)
	ComputeScaleErrors(gt, pred trajectory.Trajectory) (ScaleSeries, error)
	ComputeScaleRatios(gt, pred trajectory.Trajectory) (ScaleSeries, error)
}

type engine struct {
	opts   Options
	logger logging.Logger
}

// NewEngine returns an Engine using opts. A zero RPEDelta or RPEStatistic and a negative MinMotion
// fall back to DefaultOptions.
func NewEngine(opts Options, logger logging.Logger) Engine {
	defaults := DefaultOptions()
	if opts.RPEDelta <= 0 {
		opts.RPEDelta = defaults.RPEDelta
	}
	if opts.RPEStatistic == "" {
		opts.RPEStatistic = defaults.RPEStatistic
	}
	if opts.MinMotion < 0 {
		opts.MinMotion = defaults.MinMotion
	}
	return &engine{opts: opts, logger: logger}
}

func checkSameDomain(gt, pred trajectory.Trajectory) error {
	if pred.Len() == 0 {
		return errors.Wrap(trajectory.ErrMissingData, "prediction is empty")
	}
	if gt.Len() != pred.Len() {
		return errors.Wrapf(trajectory.ErrMissingData, "ground truth has %d poses but prediction has %d", gt.Len(), pred.Len())
	}
	return nil
}

// ComputeATE returns the root mean square of the per-frame distance between positions.
func (e *engine) ComputeATE(gt, pred trajectory.Trajectory) (float64, error) {
	if err := checkSameDomain(gt, pred); err != nil {
		return 0, err
	}
	sq := make([]float64, pred.Len())
	for i := range sq {
		sq[i] = gt.At(i).Point().Sub(pred.At(i).Point()).Norm2()
	}
	ate := math.Sqrt(stat.Mean(sq, nil))
	if !utils.IsFinite(ate) {
		return 0, errors.Wrap(ErrNonFinite, "ATE")
	}
	return ate, nil
}

// ComputeRPE compares relative motions over windows of RPEDelta frames. The error of a window is
// E = inv(gtRel) * predRel; its translation norm and rotation angle are reduced with RPEStatistic.
func (e *engine) ComputeRPE(gt, pred trajectory.Trajectory) (RPE, error) {
	if err := checkSameDomain(gt, pred); err != nil {
		return RPE{}, err
	}
	delta := e.opts.RPEDelta
	if pred.Len() <= delta {
		return RPE{}, errors.Wrapf(trajectory.ErrMissingData, "%d poses is too short for a window of %d frames", pred.Len(), delta)
	}

	windows := pred.Len() - delta
	transErrs := make([]float64, 0, windows)
	rotErrs := make([]float64, 0, windows)
	for i := 0; i < windows; i++ {
		gtRel, predRel, err := relativeMotions(gt, pred, i, i+delta)
		if err != nil {
			return RPE{}, err
		}
		gtRelInv, err := spatialmath.PoseInverse(gtRel)
		if err != nil {
			return RPE{}, errors.Wrapf(err, "window %d", i)
		}
		relErr := spatialmath.Compose(gtRelInv, predRel)
		transErrs = append(transErrs, relErr.Point().Norm())
		rotErrs = append(rotErrs, spatialmath.RotationAngle(relErr.Rotation()))
	}

	rpe := RPE{
		Translation: e.opts.RPEStatistic.reduce(transErrs),
		Rotation:    e.opts.RPEStatistic.reduce(rotErrs),
		Windows:     windows,
	}
	if !utils.IsFinite(rpe.Translation, rpe.Rotation) {
		return RPE{}, errors.Wrap(ErrNonFinite, "RPE")
	}
	return rpe, nil
}

// ScaleRatio returns |t_pred| / |t_gt| for two relative motions; 1 is a perfect scale.
func (e *engine) ScaleRatio(gtRel, predRel spatialmath.Pose) (float64, error) {
	ratio := predRel.Point().Norm() / gtRel.Point().Norm()
	if !utils.IsFinite(ratio) {
		return 0, errors.Wrap(ErrNonFinite, "scale ratio of a motionless ground-truth step")
	}
	return ratio, nil
}

// ScaleError returns ||t_pred| - |t_gt|| in meters for two relative motions; 0 is a perfect scale.
// It stays defined when the ground truth does not move.
func (e *engine) ScaleError(gtRel, predRel spatialmath.Pose) (float64, error) {
	diff := math.Abs(predRel.Point().Norm() - gtRel.Point().Norm())
	if !utils.IsFinite(diff) {
		return 0, errors.Wrap(ErrNonFinite, "scale error")
	}
	return diff, nil
}

// ComputeScaleErrors returns ScaleError for every consecutive pair, so the series is one shorter
// than the trajectory.
func (e *engine) ComputeScaleErrors(gt, pred trajectory.Trajectory) (ScaleSeries, error) {
	return e.scaleSeries(gt, pred, e.ScaleError, false)
}

// ComputeScaleRatios returns ScaleRatio for every consecutive pair whose ground-truth step is at
// least MinMotion long, along with the ground-truth path length.
func (e *engine) ComputeScaleRatios(gt, pred trajectory.Trajectory) (ScaleSeries, error) {
	series, err := e.scaleSeries(gt, pred, e.ScaleRatio, true)
	if err != nil {
		return ScaleSeries{}, err
	}
	if e.logger != nil {
		e.logger.Debugw("scale ratios computed", "length", series.PathLength, "pairs", len(series.Values), "skipped", series.Skipped)
	}
	return series, nil
}

func (e *engine) scaleSeries(
	gt, pred trajectory.Trajectory,
	metric func(gtRel, predRel spatialmath.Pose) (float64, error),
	skipStationary bool,
) (ScaleSeries, error) {
	if err := checkSameDomain(gt, pred); err != nil {
		return ScaleSeries{}, err
	}
	series := ScaleSeries{Values: make([]float64, 0, pred.Len())}
	for i := 0; i < pred.Len()-1; i++ {
		gtRel, predRel, err := relativeMotions(gt, pred, i, i+1)
		if err != nil {
			return ScaleSeries{}, err
		}
		step := gtRel.Point().Norm()
		series.PathLength += step
		if skipStationary && (step == 0 || step < e.opts.MinMotion) {
			series.Skipped++
			continue
		}
		value, err := metric(gtRel, predRel)
		if err != nil {
			return ScaleSeries{}, errors.Wrapf(err, "pair (%d, %d)", i, i+1)
		}
		series.Values = append(series.Values, value)
	}
	return series, nil
}

func relativeMotions(gt, pred trajectory.Trajectory, from, to int) (spatialmath.Pose, spatialmath.Pose, error) {
	gtRel, err := spatialmath.PoseBetween(gt.At(from), gt.At(to))
	if err != nil {
		return spatialmath.Pose{}, spatialmath.Pose{}, errors.Wrapf(err, "ground truth pose %d", from)
	}
	predRel, err := spatialmath.PoseBetween(pred.At(from), pred.At(to))
	if err != nil {
		return spatialmath.Pose{}, spatialmath.Pose{}, errors.Wrapf(err, "predicted pose %d", from)
	}
	return gtRel, predRel, nil
}
