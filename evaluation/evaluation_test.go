package evaluation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/isae-vo/trajeval/alignment"
	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/metrics"
	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/trajectory"
)

func stamped(t *testing.T, poses []spatialmath.Pose, dt float64) trajectory.Stamped {
	t.Helper()
	ts := make([]float64, len(poses))
	for i := range ts {
		ts[i] = dt * float64(i)
	}
	s, err := trajectory.NewStamped(poses, ts)
	test.That(t, err, test.ShouldBeNil)
	return s
}

// curve turns and climbs so that every alignment mode is well posed.
func curve(n int, scale float64) []spatialmath.Pose {
	poses := make([]spatialmath.Pose, n)
	for i := range poses {
		th := 0.3 * float64(i)
		poses[i] = spatialmath.NewPose(
			r3.Vector{X: scale * 3 * math.Sin(th), Y: scale * 3 * (1 - math.Cos(th)), Z: scale * 0.1 * float64(i)},
			quat.Number{Real: math.Cos(th / 2), Kmag: math.Sin(th / 2)},
		)
	}
	return poses
}

func xLine(n int, step float64) []spatialmath.Pose {
	poses := make([]spatialmath.Pose, n)
	for i := range poses {
		poses[i] = spatialmath.NewPoseFromPoint(r3.Vector{X: step * float64(i)})
	}
	return poses
}

func TestEvaluateIdenticalTrajectories(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	traj := stamped(t, curve(10, 1), 0.1)

	res, err := Evaluate(traj, traj, Config{Sequence: "C1", Alignment: alignment.ModeNone, Logger: logger})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Sequence, test.ShouldEqual, "C1")
	test.That(t, res.ATE, test.ShouldAlmostEqual, 0)
	test.That(t, res.RPETranslation, test.ShouldAlmostEqual, 0)
	test.That(t, res.RPERotation, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, res.RPEWindows, test.ShouldEqual, 9)
	test.That(t, res.ScaleErrors, test.ShouldHaveLength, 9)
	test.That(t, res.ScaleErrorSummary.Max, test.ShouldAlmostEqual, 0)
	test.That(t, res.ScaleRatioSummary.Mean, test.ShouldAlmostEqual, 1)
	test.That(t, res.Sync.MaxTimeDifference, test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("sequence evaluated").Len(), test.ShouldEqual, 1)
}

func TestEvaluateAllModesOnIdenticalTrajectories(t *testing.T) {
	traj := stamped(t, curve(12, 1), 0.1)
	for _, mode := range alignment.Modes {
		t.Run(string(mode), func(t *testing.T) {
			res, err := Evaluate(traj, traj, Config{Alignment: mode, Logger: logging.NewTestLogger(t)})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.ATE, test.ShouldAlmostEqual, 0)
			test.That(t, res.RPETranslation, test.ShouldAlmostEqual, 0)
			test.That(t, res.Transform.Scale, test.ShouldAlmostEqual, 1)
		})
	}
}

func TestEvaluateScaleRecovery(t *testing.T) {
	gt := stamped(t, xLine(5, 1), 1)
	pred := stamped(t, xLine(5, 2), 1)

	res, err := Evaluate(gt, pred, Config{Alignment: alignment.ModeScale, Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Transform.Scale, test.ShouldAlmostEqual, 0.5)
	test.That(t, res.ATE, test.ShouldAlmostEqual, 0)
	test.That(t, res.ScaleRatioSummary.Mean, test.ShouldAlmostEqual, 1)
	test.That(t, res.PathLength, test.ShouldAlmostEqual, 4)

	res, err = Evaluate(gt, pred, Config{Alignment: alignment.ModeNone, Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.ScaleRatioSummary.Mean, test.ShouldAlmostEqual, 2)
	test.That(t, res.ScaleErrorSummary.Mean, test.ShouldAlmostEqual, 1)
}

func TestEvaluateSimilarityRecovery(t *testing.T) {
	gtPoses := curve(15, 1)
	offset := spatialmath.NewPose(r3.Vector{X: 4, Y: -1, Z: 2}, quat.Number{Real: math.Cos(0.4), Imag: math.Sin(0.4)})
	predPoses := make([]spatialmath.Pose, len(gtPoses))
	for i, p := range gtPoses {
		predPoses[i] = spatialmath.Compose(offset, p.ScaleTranslation(3))
	}
	gt := stamped(t, gtPoses, 0.1)
	pred := stamped(t, predPoses, 0.1)

	res, err := Evaluate(gt, pred, Config{Alignment: alignment.Mode7DOF, Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.ATE, test.ShouldAlmostEqual, 0)
	test.That(t, res.RPERotationDegrees(), test.ShouldAlmostEqual, 0, 1e-5)
	test.That(t, res.Transform.Scale, test.ShouldAlmostEqual, 1.0/3)
}

func TestEvaluateUsesPredictionTimestamps(t *testing.T) {
	// Ground truth sampled twice as often as the prediction.
	gt := stamped(t, xLine(20, 0.5), 0.05)
	pred := stamped(t, xLine(10, 1), 0.1)

	res, err := Evaluate(gt, pred, Config{Alignment: alignment.ModeNone, Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.GroundTruth.Len(), test.ShouldEqual, 10)
	test.That(t, res.ATE, test.ShouldAlmostEqual, 0)
}

func TestEvaluateFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	gt := stamped(t, xLine(5, 1), 1)

	t.Run("timestamp gap", func(t *testing.T) {
		pred, err := trajectory.NewStamped(xLine(2, 1), []float64{0, 10})
		test.That(t, err, test.ShouldBeNil)
		_, err = Evaluate(gt, pred, Config{MaxTimeDifference: 0.5, Logger: logger})
		test.That(t, errors.Is(err, trajectory.ErrMissingData), test.ShouldBeTrue)
	})

	t.Run("empty prediction", func(t *testing.T) {
		_, err := Evaluate(gt, trajectory.Stamped{}, Config{Logger: logger})
		test.That(t, errors.Is(err, trajectory.ErrMissingData), test.ShouldBeTrue)
	})

	t.Run("degenerate alignment", func(t *testing.T) {
		still := stamped(t, xLine(5, 0), 1)
		_, err := Evaluate(gt, still, Config{Alignment: alignment.Mode7DOF, Logger: logger})
		test.That(t, errors.Is(err, alignment.ErrDegenerateAlignment), test.ShouldBeTrue)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := Evaluate(gt, gt, Config{Alignment: "9dof", Logger: logger})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "9dof")
	})
}

func TestEvaluateMetricOptions(t *testing.T) {
	gt := stamped(t, xLine(7, 1), 1)
	res, err := Evaluate(gt, gt, Config{
		Metrics: metrics.Options{RPEDelta: 3, RPEStatistic: metrics.Mean},
		Logger:  logging.NewTestLogger(t),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.RPEWindows, test.ShouldEqual, 4)
}

type memoryLoader map[string]trajectory.Stamped

func (m memoryLoader) Load(path string) (trajectory.Stamped, error) {
	s, ok := m[path]
	if !ok {
		return trajectory.Stamped{}, errors.Errorf("no such file %q", path)
	}
	return s, nil
}

type recordingReporter struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (r *recordingReporter) Report(res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, res.Sequence)
	return r.err
}

func TestRunnerIsolatesFailures(t *testing.T) {
	good := stamped(t, curve(10, 1), 0.1)
	loader := memoryLoader{
		filepath.Join("gt", "a.csv"):  good,
		filepath.Join("res", "a.csv"): good,
		filepath.Join("gt", "c.csv"):  good,
		filepath.Join("res", "c.csv"): good,
		// b has a prediction but no ground truth.
		filepath.Join("res", "b.csv"): good,
	}
	seqs, err := BuildSequences([]string{"a", "b", "c"}, "gt", "res", "")
	test.That(t, err, test.ShouldBeNil)

	for _, parallelism := range []int{1, 3} {
		reporter := &recordingReporter{err: errors.New("disk full")}
		logger, logs := logging.NewObservedTestLogger(t)
		r := &Runner{
			Loader:      loader,
			Config:      Config{Alignment: alignment.Mode6DOF},
			Reporter:    reporter,
			Parallelism: parallelism,
			Clock:       clock.NewMock(),
			Logger:      logger,
		}
		results, err := r.Run(context.Background(), seqs)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `sequence "b"`)
		test.That(t, results, test.ShouldHaveLength, 2)
		test.That(t, results[0].Sequence, test.ShouldEqual, "a")
		test.That(t, results[1].Sequence, test.ShouldEqual, "c")
		test.That(t, results[0].ATE, test.ShouldAlmostEqual, 0)
		test.That(t, reporter.names, test.ShouldHaveLength, 2)
		test.That(t, logs.FilterMessage("sequence failed").Len(), test.ShouldEqual, 1)
		test.That(t, logs.FilterMessage("report failed").Len(), test.ShouldEqual, 2)
	}
}

func TestRunnerCancelled(t *testing.T) {
	good := stamped(t, curve(10, 1), 0.1)
	loader := LoaderFunc(func(string) (trajectory.Stamped, error) { return good, nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seqs, err := BuildSequences([]string{"a"}, "gt", "res", "")
	test.That(t, err, test.ShouldBeNil)
	r := &Runner{Loader: loader, Logger: logging.NewTestLogger(t)}
	results, err := r.Run(ctx, seqs)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, results, test.ShouldBeEmpty)
}

func TestBuildSequences(t *testing.T) {
	seqs, err := BuildSequences([]string{"C1"}, "gt", "res", "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seqs, test.ShouldResemble, []Sequence{{
		Name:            "C1",
		GroundTruthPath: filepath.Join("gt", "C1.csv"),
		ResultPath:      filepath.Join("res", "C1.csv"),
	}})

	seqs, err = BuildSequences([]string{"C1", "C3"}, "gt", "res", "poses.csv")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, seqs[1].ResultPath, test.ShouldEqual, filepath.Join("res", "poses.csv"))
	test.That(t, seqs[1].GroundTruthPath, test.ShouldEqual, filepath.Join("gt", "C3.csv"))

	_, err = BuildSequences([]string{"../C1"}, "gt", "res", "")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = BuildSequences([]string{"C1"}, "gt", "res", "../other/poses.csv")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsafe path join")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"C3.csv", "C1.csv", "mine.csv", "notes.txt"} {
		test.That(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600), test.ShouldBeNil)
	}

	names, err := Discover(dir, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, []string{"C1", "C3", "mine"})

	names, err = Discover(dir, DefaultSequences)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, []string{"C1", "C3"})
}
