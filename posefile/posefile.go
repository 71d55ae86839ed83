// Package posefile reads and writes timestamped pose streams stored as CSV.
//
// Each row holds one pose either as "timestamp,tx,ty,tz,qx,qy,qz,qw" or, KITTI style, as a
// timestamp followed by the 12 row-major values of the top 3x4 block of the pose matrix. Lines
// starting with '#' are comments, and a first row whose timestamp column is not a number is
// treated as a header.
package posefile

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/spatialmath"
	"github.com/isae-vo/trajeval/trajectory"
)

// ErrMalformed is returned when a row cannot be read as a pose.
var ErrMalformed = errors.New("malformed pose file")

// Header is the column row written by Write.
var Header = []string{"timestamp", "tx", "ty", "tz", "qx", "qy", "qz", "qw"}

// matrixColumns is the column count of a KITTI style row.
const matrixColumns = 13

// Reader loads pose files from disk.
type Reader struct {
	Logger logging.Logger
}

// Load reads the pose file at path.
func (r Reader) Load(path string) (trajectory.Stamped, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return trajectory.Stamped{}, errors.Wrapf(err, "cannot open pose file")
	}
	defer func() {
		if err := f.Close(); err != nil && r.Logger != nil {
			r.Logger.Warnw("failed to close pose file", "path", path, "error", err)
		}
	}()

	s, err := Parse(f)
	if err != nil {
		return trajectory.Stamped{}, errors.Wrapf(err, "%s", path)
	}
	if r.Logger != nil {
		r.Logger.Debugw("loaded poses", "path", path, "poses", s.Len())
	}
	return s, nil
}

// Load reads the pose file at path without logging.
func Load(path string) (trajectory.Stamped, error) {
	return Reader{}.Load(path)
}

// Parse reads a pose stream from r.
func Parse(r io.Reader) (trajectory.Stamped, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		poses      []spatialmath.Pose
		timestamps []float64
	)
	for row := 0; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return trajectory.Stamped{}, errors.Wrap(ErrMalformed, err.Error())
		}
		if row == 0 && isHeader(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		ts, pose, err := parseRecord(record)
		if err != nil {
			return trajectory.Stamped{}, errors.Wrapf(err, "line %d", line)
		}
		timestamps = append(timestamps, ts)
		poses = append(poses, pose)
	}
	return trajectory.NewStamped(poses, timestamps)
}

func isHeader(record []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	return err != nil
}

func parseRecord(record []string) (float64, spatialmath.Pose, error) {
	if len(record) != len(Header) && len(record) != matrixColumns {
		return 0, spatialmath.Pose{}, errors.Wrapf(ErrMalformed,
			"expected %d or %d columns but got %d", len(Header), matrixColumns, len(record))
	}
	values := make([]float64, len(record))
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return 0, spatialmath.Pose{}, errors.Wrapf(ErrMalformed, "column %d: %v", i+1, err)
		}
		values[i] = v
	}
	if len(values) == matrixColumns {
		pose, err := spatialmath.NewPoseFromRowMajor(values[1:])
		if err != nil {
			return 0, spatialmath.Pose{}, errors.Wrap(ErrMalformed, err.Error())
		}
		return values[0], pose, nil
	}
	pose := spatialmath.NewPose(
		r3.Vector{X: values[1], Y: values[2], Z: values[3]},
		quat.Number{Imag: values[4], Jmag: values[5], Kmag: values[6], Real: values[7]},
	)
	return values[0], pose, nil
}

// Write writes s to w in the format Parse reads, header included.
func Write(w io.Writer, s trajectory.Stamped) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for i, p := range s.Poses() {
		pt := p.Point()
		q := mgl64.Mat4ToQuat(p.Matrix())
		record := []string{formatFloat(s.Timestamps[i])}
		for _, v := range []float64{pt.X, pt.Y, pt.Z, q.X(), q.Y(), q.Z(), q.W} {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes s to the file at path, replacing it if it exists.
func WriteFile(path string, s trajectory.Stamped) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create pose file")
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return Write(f, s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
