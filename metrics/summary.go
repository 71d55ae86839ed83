package metrics

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Summary describes the distribution of a scale series.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes the summary of values. An empty series gives a zero Summary.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, nil
	}
	data := stats.Float64Data(values)
	var (
		s   = Summary{Count: len(values)}
		err error
	)
	if s.Mean, err = data.Mean(); err != nil {
		return Summary{}, errors.Wrap(err, "mean")
	}
	if s.Median, err = data.Median(); err != nil {
		return Summary{}, errors.Wrap(err, "median")
	}
	if s.StdDev, err = data.StandardDeviation(); err != nil {
		return Summary{}, errors.Wrap(err, "standard deviation")
	}
	if s.Min, err = data.Min(); err != nil {
		return Summary{}, errors.Wrap(err, "min")
	}
	if s.Max, err = data.Max(); err != nil {
		return Summary{}, errors.Wrap(err, "max")
	}
	return s, nil
}
