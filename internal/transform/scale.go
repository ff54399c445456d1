package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/race-features/internal/frame"
)

// MinMaxScaler maps each fitted column onto [0, 1] using bounds learned on
// the training partition.
type MinMaxScaler struct {
	columns []string
	min     map[string]float64
	max     map[string]float64
}

// NewMinMaxScaler creates an unfitted scaler
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit learns per-column bounds from every float column of t, ignoring nulls.
// A constant column gets a unit range, so its value scales to 0; an all-null
// column gets the bounds (0, 1).
func (s *MinMaxScaler) Fit(t *frame.Table) error {
	names := t.NumericNames()
	s.columns = names
	s.min = make(map[string]float64, len(names))
	s.max = make(map[string]float64, len(names))
	for _, name := range names {
		values, err := t.Floats(name)
		if err != nil {
			return err
		}
		present := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		lo, hi := 0.0, 1.0
		if len(present) > 0 {
			lo, hi = floats.Min(present), floats.Max(present)
			if lo == hi {
				// unit range: the constant itself maps to 0
				hi = lo + 1
			}
		}
		s.min[name] = lo
		s.max[name] = hi
	}
	return nil
}

// Transform applies (x - min) / (max - min) to every fitted column
func (s *MinMaxScaler) Transform(t *frame.Table) (*frame.Table, error) {
	if s.min == nil {
		return nil, ErrNotFitted
	}
	if missing := t.Missing(s.columns...); len(missing) > 0 {
		return nil, fmt.Errorf("scale: %w: %v", frame.ErrColumnNotFound, missing)
	}
	cols := make([]*frame.Column, 0, len(s.columns))
	for _, name := range s.columns {
		values, err := t.Floats(name)
		if err != nil {
			return nil, fmt.Errorf("scale: %w", err)
		}
		lo, span := s.min[name], s.max[name]-s.min[name]
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = (v - lo) / span
		}
		cols = append(cols, frame.NewFloatColumn(name, out))
	}
	return t.With(cols...)
}

// Bounds returns the fitted (min, max) of a column
func (s *MinMaxScaler) Bounds(column string) (float64, float64, bool) {
	lo, ok := s.min[column]
	if !ok {
		return 0, 0, false
	}
	return lo, s.max[column], true
}

// Columns returns the fitted columns in order
func (s *MinMaxScaler) Columns() []string {
	return append([]string(nil), s.columns...)
}
