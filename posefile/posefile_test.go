package posefile

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/trajectory"
)

const sample = `# recorded on the rover
timestamp,tx,ty,tz,qx,qy,qz,qw
0.0, 0, 0, 0, 0, 0, 0, 1
0.1, 1, 0, 0, 0, 0, 0.7071067811865476, 0.7071067811865476

# gap
0.3, 1, 2, 0.5, 0, 0, 0, 1
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(sample))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 3)
	test.That(t, s.Timestamps, test.ShouldResemble, []float64{0, 0.1, 0.3})

	test.That(t, s.At(1).Point(), test.ShouldResemble, r3.Vector{X: 1})
	yaw := spatialmath.NewPose(r3.Vector{X: 1}, quat.Number{Real: math.Sqrt2 / 2, Kmag: math.Sqrt2 / 2})
	test.That(t, spatialmath.PoseAlmostEqual(s.At(1), yaw, 1e-9), test.ShouldBeTrue)
	test.That(t, s.At(2).Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 0.5})
}

func TestParseWithoutHeader(t *testing.T) {
	s, err := Parse(strings.NewReader("5,1,2,3,0,0,0,1\n6,1,2,4,0,0,0,1\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Timestamps, test.ShouldResemble, []float64{5, 6})
}

func TestParseMatrixRows(t *testing.T) {
	// timestamp then the top 3x4 block of a 90 degree yaw, row-major
	input := `0,1,0,0,0,0,1,0,0,0,0,1,0
0.1,0,-1,0,2,1,0,0,3,0,0,1,0.5
`
	s, err := Parse(strings.NewReader(input))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Timestamps, test.ShouldResemble, []float64{0, 0.1})
	test.That(t, spatialmath.PoseAlmostEqual(s.At(0), spatialmath.NewZeroPose(), 1e-12), test.ShouldBeTrue)
	yaw := spatialmath.NewPose(r3.Vector{X: 2, Y: 3, Z: 0.5}, quat.Number{Real: math.Sqrt2 / 2, Kmag: math.Sqrt2 / 2})
	test.That(t, spatialmath.PoseAlmostEqual(s.At(1), yaw, 1e-9), test.ShouldBeTrue)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		err   error
		msg   string
	}{
		{"empty", "", trajectory.ErrMissingData, "empty"},
		{"header only", "timestamp,tx,ty,tz,qx,qy,qz,qw\n", trajectory.ErrMissingData, "empty"},
		{"short row", "0,1,2,3\n", ErrMalformed, "columns"},
		{"bad value", "0,1,2,3,0,0,0,1\n1,x,2,3,0,0,0,1\n", ErrMalformed, "line 2"},
		{"extra column", "0,1,2,3,0,0,0,1,9\n", ErrMalformed, "expected 8 or 13 columns but got 9"},
		{"nan timestamp", "0,1,2,3,0,0,0,1\nNaN,1,2,3,0,0,0,1\n", trajectory.ErrMissingData, "timestamp"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			test.That(t, errors.Is(err, tc.err), test.ShouldBeTrue)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	poses := []spatialmath.Pose{
		spatialmath.NewZeroPose(),
		spatialmath.NewPose(r3.Vector{X: 1, Y: -2, Z: 3}, quat.Number{Real: math.Cos(0.3), Imag: math.Sin(0.3)}),
	}
	s, err := trajectory.NewStamped(poses, []float64{10, 10.5})
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, Write(&buf, s), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldStartWith, "timestamp,tx,ty,tz,qx,qy,qz,qw\n10,0,0,0,0,0,0,1\n")

	path := filepath.Join(t.TempDir(), "C1.csv")
	test.That(t, WriteFile(path, s), test.ShouldBeNil)
	loaded, err := Reader{Logger: logging.NewTestLogger(t)}.Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Timestamps, test.ShouldResemble, s.Timestamps)
	for i := range poses {
		test.That(t, spatialmath.PoseAlmostEqual(loaded.At(i), poses[i], 1e-9), test.ShouldBeTrue)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot open")
}
