package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/race-features/internal/frame"
)

// ErrNotFitted is returned when Transform is called before Fit
var ErrNotFitted = errors.New("transform: not fitted")

// Encoder output prefixes
const (
	TargetPrefix = "tgt_enc_"
	WOEPrefix    = "woe_enc_"
)

// Encoder is a supervised encoder for identifier columns. Fit sees the
// training labels once; Transform never takes labels, so applying a fitted
// encoder to held-out rows cannot leak their outcomes.
type Encoder interface {
	Fit(X *frame.Table, y []float64) error
	Transform(X *frame.Table) (*frame.Table, error)
	Columns() []string
}

// EncoderOptions configures an encoder
type EncoderOptions struct {
	Type       string
	Columns    []string
	MinSamples int
	Smoothing  float64
}

// NewEncoder builds the encoder named by opts.Type. An empty type or "none"
// returns a nil encoder.
func NewEncoder(opts EncoderOptions) (Encoder, error) {
	switch opts.Type {
	case "", "none":
		return nil, nil
	case "target":
		return NewTargetEncoder(opts.Columns, opts.MinSamples, opts.Smoothing), nil
	case "woe":
		return NewWOEEncoder(opts.Columns, opts.MinSamples, opts.Smoothing), nil
	default:
		return nil, fmt.Errorf("unknown encoder %q", opts.Type)
	}
}

// categoryStats accumulates label counts per category value
type categoryStats struct {
	n   float64
	pos float64
}

// mappingEncoder is the fitted state shared by the encoders: one
// value per category of each column plus a fallback for unseen and null
// categories.
type mappingEncoder struct {
	columns  []string
	prefix   string
	mapping  map[string]map[string]float64
	fallback float64
}

func (m *mappingEncoder) Columns() []string {
	return append([]string(nil), m.columns...)
}

// count tallies labels per category for every encoded column
func (m *mappingEncoder) count(X *frame.Table, y []float64) (map[string]map[string]*categoryStats, error) {
	if len(y) != X.NumRows() {
		return nil, fmt.Errorf("%w: %d labels for %d rows", frame.ErrLengthMismatch, len(y), X.NumRows())
	}
	out := make(map[string]map[string]*categoryStats, len(m.columns))
	for _, name := range m.columns {
		col, err := X.Column(name)
		if err != nil {
			return nil, fmt.Errorf("encoder fit: %w", err)
		}
		counts := make(map[string]*categoryStats)
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				continue
			}
			key := col.Key(i)
			s, ok := counts[key]
			if !ok {
				s = &categoryStats{}
				counts[key] = s
			}
			s.n++
			s.pos += y[i]
		}
		out[name] = counts
	}
	return out, nil
}

// Transform appends prefix+column for every encoded column. Original columns
// are kept.
func (m *mappingEncoder) Transform(X *frame.Table) (*frame.Table, error) {
	if m.mapping == nil {
		return nil, ErrNotFitted
	}
	encoded := make([]*frame.Column, 0, len(m.columns))
	for _, name := range m.columns {
		col, err := X.Column(name)
		if err != nil {
			return nil, fmt.Errorf("encoder transform: %w", err)
		}
		values := make([]float64, col.Len())
		mapping := m.mapping[name]
		for i := range values {
			values[i] = m.fallback
			if col.IsNull(i) {
				continue
			}
			if v, ok := mapping[col.Key(i)]; ok {
				values[i] = v
			}
		}
		encoded = append(encoded, frame.NewFloatColumn(m.prefix+name, values))
	}
	return X.With(encoded...)
}

// TargetEncoder replaces a category by its label mean, shrunk toward the
// global mean for categories with few samples.
type TargetEncoder struct {
	mappingEncoder
	minSamples int
	smoothing  float64
	prior      float64
}

// NewTargetEncoder creates an unfitted target encoder
func NewTargetEncoder(columns []string, minSamples int, smoothing float64) *TargetEncoder {
	return &TargetEncoder{
		mappingEncoder: mappingEncoder{columns: columns, prefix: TargetPrefix},
		minSamples:     minSamples,
		smoothing:      smoothing,
	}
}

// Fit learns per-category encodings from training rows and labels
func (e *TargetEncoder) Fit(X *frame.Table, y []float64) error {
	counts, err := e.count(X, y)
	if err != nil {
		return err
	}
	if len(y) > 0 {
		e.prior = stat.Mean(y, nil)
	}
	mapping := make(map[string]map[string]float64, len(counts))
	for name, cats := range counts {
		m := make(map[string]float64, len(cats))
		for key, s := range cats {
			weight := e.weight(s.n)
			m[key] = e.prior*(1-weight) + (s.pos/s.n)*weight
		}
		mapping[name] = m
	}
	e.mapping = mapping
	e.fallback = e.prior
	return nil
}

// weight is the sigmoid trust given to a category seen n times
func (e *TargetEncoder) weight(n float64) float64 {
	d := n - float64(e.minSamples)
	if e.smoothing <= 0 {
		if d >= 0 {
			return 1
		}
		return 0
	}
	return 1 / (1 + math.Exp(-d/e.smoothing))
}

// Prior returns the training label mean
func (e *TargetEncoder) Prior() float64 {
	return e.prior
}

// WOEEncoder replaces a category by its weight of evidence, the log ratio of
// its share of positives to its share of negatives.
type WOEEncoder struct {
	mappingEncoder
	minSamples int
	smoothing  float64
}

// NewWOEEncoder creates an unfitted weight-of-evidence encoder. A
// non-positive smoothing falls back to 1.
func NewWOEEncoder(columns []string, minSamples int, smoothing float64) *WOEEncoder {
	if smoothing <= 0 {
		smoothing = 1
	}
	return &WOEEncoder{
		mappingEncoder: mappingEncoder{columns: columns, prefix: WOEPrefix},
		minSamples:     minSamples,
		smoothing:      smoothing,
	}
}

// Fit learns per-category weights of evidence. Categories seen fewer than
// minSamples times encode as 0, like unseen ones.
func (e *WOEEncoder) Fit(X *frame.Table, y []float64) error {
	counts, err := e.count(X, y)
	if err != nil {
		return err
	}
	var positives float64
	for _, v := range y {
		positives += v
	}
	negatives := float64(len(y)) - positives
	a := e.smoothing

	mapping := make(map[string]map[string]float64, len(counts))
	for name, cats := range counts {
		m := make(map[string]float64, len(cats))
		for key, s := range cats {
			if s.n < float64(e.minSamples) {
				continue
			}
			pos := (s.pos + a) / (positives + 2*a)
			neg := (s.n - s.pos + a) / (negatives + 2*a)
			m[key] = math.Log(pos / neg)
		}
		mapping[name] = m
	}
	e.mapping = mapping
	e.fallback = 0
	return nil
}
