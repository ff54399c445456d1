package transform

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/yourusername/race-features/internal/frame"
)

// Summary describes one numeric column
type Summary struct {
	Column string
	Count  int
	Nulls  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

// Describe summarizes every numeric column of t not in exclude. Statistics of
// a column without values are NaN.
func Describe(t *frame.Table, exclude ...string) []Summary {
	names := t.NumericNames(exclude...)
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		values, _ := t.Floats(name)
		data := make(stats.Float64Data, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		s := Summary{
			Column: name,
			Count:  len(data),
			Nulls:  len(values) - len(data),
			Mean:   math.NaN(),
			StdDev: math.NaN(),
			Min:    math.NaN(),
			Median: math.NaN(),
			Max:    math.NaN(),
		}
		if len(data) > 0 {
			s.Mean, _ = stats.Mean(data)
			s.Min, _ = stats.Min(data)
			s.Median, _ = stats.Median(data)
			s.Max, _ = stats.Max(data)
		}
		if len(data) > 1 {
			s.StdDev, _ = stats.StandardDeviationSample(data)
		}
		out = append(out, s)
	}
	return out
}
