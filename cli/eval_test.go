package cli

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/isae-vo/trajeval/posefile"
	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/trajectory"
)

// writeSequence stores a turning trajectory as ground truth and a copy scaled by predScale as
// the prediction.
func writeSequence(t *testing.T, gtDir, resultDir, name string, predScale float64) {
	t.Helper()
	var gtPoses, predPoses []spatialmath.Pose
	var ts []float64
	for i := 0; i < 20; i++ {
		th := 0.2 * float64(i)
		q := quat.Number{Real: math.Cos(th / 2), Kmag: math.Sin(th / 2)}
		pt := r3.Vector{X: 5 * math.Sin(th), Y: 5 * (1 - math.Cos(th)), Z: 0.05 * float64(i)}
		gtPoses = append(gtPoses, spatialmath.NewPose(pt, q))
		predPoses = append(predPoses, spatialmath.NewPose(pt.Mul(predScale), q))
		ts = append(ts, 0.1*float64(i))
	}
	gt, err := trajectory.NewStamped(gtPoses, ts)
	test.That(t, err, test.ShouldBeNil)
	pred, err := trajectory.NewStamped(predPoses, ts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, posefile.WriteFile(filepath.Join(gtDir, name+".csv"), gt), test.ShouldBeNil)
	test.That(t, posefile.WriteFile(filepath.Join(resultDir, name+".csv"), pred), test.ShouldBeNil)
}

func dataDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	gtDir, resultDir := filepath.Join(root, "gt"), filepath.Join(root, "results")
	test.That(t, os.MkdirAll(gtDir, 0o750), test.ShouldBeNil)
	test.That(t, os.MkdirAll(resultDir, 0o750), test.ShouldBeNil)
	return gtDir, resultDir
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"trajeval"}, args...))
	return out.String(), errOut.String(), err
}

func TestEvalDiscoversKnownSequences(t *testing.T) {
	gtDir, resultDir := dataDirs(t)
	writeSequence(t, gtDir, resultDir, "C1", 1)
	writeSequence(t, gtDir, resultDir, "chariot2", 2)
	// not part of the benchmark, so not picked up without --seq
	writeSequence(t, gtDir, resultDir, "scratch", 1)

	plotDir := filepath.Join(t.TempDir(), "plots")
	out, errOut, err := runApp(t, "eval",
		"--gt-dir", gtDir, "--result-dir", resultDir,
		"--alignment", "7dof", "--plot-dir", plotDir, "--parallel", "2", "--histogram")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "C1")
	test.That(t, out, test.ShouldContainSubstring, "chariot2")
	test.That(t, out, test.ShouldNotContainSubstring, "scratch")
	test.That(t, out, test.ShouldContainSubstring, "MEAN")
	test.That(t, out, test.ShouldContainSubstring, "C1 scale ratios")
	test.That(t, errOut, test.ShouldContainSubstring, "sequence evaluated")

	for _, name := range []string{"sequence_C1.pdf", "scale_C1.png", "sequence_chariot2.pdf", "scale_chariot2.png"} {
		_, err := os.Stat(filepath.Join(plotDir, name))
		test.That(t, err, test.ShouldBeNil)
	}
}

func TestEvalWithConfigFile(t *testing.T) {
	gtDir, resultDir := dataDirs(t)
	writeSequence(t, gtDir, resultDir, "scratch", 1)
	logFile := filepath.Join(t.TempDir(), "trajeval.log")

	t.Setenv("TRAJEVAL_GT", gtDir)
	cfgPath := filepath.Join(t.TempDir(), "eval.json5")
	contents := `{
		gt_dir: "${TRAJEVAL_GT}",
		result_dir: "` + resultDir + `",
		alignment: "scale",
		sequences: ["scratch"],
	}`
	test.That(t, os.WriteFile(cfgPath, []byte(contents), 0o600), test.ShouldBeNil)

	out, _, err := runApp(t, "--config", cfgPath, "--debug", "--log-file", logFile, "eval", "--rpe-delta", "2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "scratch")
	test.That(t, out, test.ShouldContainSubstring, "scale")

	logs, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "DEBUG")
	test.That(t, string(logs), test.ShouldContainSubstring, "sequence evaluated")
}

func TestEvalLogLevelAndMotionThreshold(t *testing.T) {
	gtDir, resultDir := dataDirs(t)
	writeSequence(t, gtDir, resultDir, "C2", 1)

	cfgPath := filepath.Join(t.TempDir(), "eval.json5")
	contents := `{gt_dir: "` + gtDir + `", result_dir: "` + resultDir + `", log_level: "warn"}`
	test.That(t, os.WriteFile(cfgPath, []byte(contents), 0o600), test.ShouldBeNil)

	out, errOut, err := runApp(t, "--config", cfgPath, "eval", "--min-motion", "0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "C2")
	test.That(t, errOut, test.ShouldNotContainSubstring, "sequence evaluated")

	_, errOut, err = runApp(t, "--config", cfgPath, "--log-level", "info", "eval")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "sequence evaluated")

	_, _, err = runApp(t, "--config", cfgPath, "--log-level", "loud", "eval")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown log level "loud"`)
}

func TestEvalFailures(t *testing.T) {
	gtDir, resultDir := dataDirs(t)

	_, _, err := runApp(t, "eval", "--result-dir", resultDir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"gt_dir" is required`)

	_, _, err = runApp(t, "eval", "--gt-dir", gtDir, "--result-dir", resultDir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no known sequence")

	_, _, err = runApp(t, "eval", "--gt-dir", gtDir, "--result-dir", resultDir, "--alignment", "9dof")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"alignment" must be one of [none scale scale_7dof 7dof 6dof] but got 9dof`)

	// C3 has a prediction but no ground truth; C1 still gets evaluated.
	writeSequence(t, gtDir, resultDir, "C1", 1)
	test.That(t, posefile.WriteFile(filepath.Join(resultDir, "C3.csv"), mustLoad(t, filepath.Join(resultDir, "C1.csv"))),
		test.ShouldBeNil)
	out, errOut, err := runApp(t, "eval", "--gt-dir", gtDir, "--result-dir", resultDir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "C1")
	test.That(t, errOut, test.ShouldContainSubstring, "1 of 2 sequences failed")
}

func mustLoad(t *testing.T, path string) trajectory.Stamped {
	t.Helper()
	s, err := posefile.Load(path)
	test.That(t, err, test.ShouldBeNil)
	return s
}
