package report

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/isae-vo/trajeval/evaluation"
)

// DefaultHistogramBins is the number of buckets of a scale ratio histogram.
const DefaultHistogramBins = 10

// Histogram prints a terminal histogram of the scale ratios of res, bars at most width wide.
func Histogram(w io.Writer, res *evaluation.Result, bins, width int) error {
	if _, err := fmt.Fprintf(w, "%s scale ratios (%d pairs)\n", res.Sequence, len(res.ScaleRatios)); err != nil {
		return err
	}
	if len(res.ScaleRatios) == 0 {
		_, err := fmt.Fprintln(w, "no keyframe pair moved enough to measure scale")
		return err
	}
	if lo, hi := floats.Min(res.ScaleRatios), floats.Max(res.ScaleRatios); lo == hi {
		_, err := fmt.Fprintf(w, "every ratio is %.4f\n", lo)
		return err
	}
	hist := histogram.Hist(max(1, bins), res.ScaleRatios)
	return errors.Wrap(histogram.Fprint(w, hist, histogram.Linear(width)), "cannot print histogram")
}
