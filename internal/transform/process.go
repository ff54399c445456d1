package transform

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/race-features/internal/frame"
)

// DefaultTransform is applied to every column without an explicit transform
const DefaultTransform = "fill_zero"

// ValueTransform replaces nulls with Fill and then applies Fn
type ValueTransform struct {
	Fill float64
	Fn   func(float64) float64
}

// Apply transforms one value
func (v ValueTransform) Apply(x float64) float64 {
	if math.IsNaN(x) {
		x = v.Fill
	}
	if v.Fn == nil {
		return x
	}
	return v.Fn(x)
}

var registry = map[string]ValueTransform{
	"fill_zero": {Fill: 0},
	"log":       {Fill: 1, Fn: math.Log},
	"log1p":     {Fill: 0, Fn: math.Log1p},
	"sqrt":      {Fill: 0, Fn: math.Sqrt},
}

// Lookup returns a registered transform by name
func Lookup(name string) (ValueTransform, error) {
	v, ok := registry[name]
	if !ok {
		return ValueTransform{}, fmt.Errorf("unknown transform %q", name)
	}
	return v, nil
}

// TransformNames returns the registered transform names, sorted
func TransformNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Process applies the configured transform to every numeric column not in
// excluded. Columns without an entry get DefaultTransform.
func Process(t *frame.Table, transforms map[string]string, excluded []string) (*frame.Table, error) {
	names := t.NumericNames(excluded...)
	cols := make([]*frame.Column, 0, len(names))
	for _, name := range names {
		tname, ok := transforms[name]
		if !ok {
			tname = DefaultTransform
		}
		vt, err := Lookup(tname)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		values, _ := t.Floats(name)
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = vt.Apply(v)
		}
		cols = append(cols, frame.NewFloatColumn(name, out))
	}
	return t.With(cols...)
}

// Strip drops the excluded columns
func Strip(t *frame.Table, excluded []string) *frame.Table {
	return t.Drop(excluded...)
}
