// Package frame provides the typed, column-oriented table the feature pipeline
// operates on. Every column carries an explicit kind so that stage boundaries
// can check their inputs instead of relying on loose name lookups.
package frame

import (
	"math"
	"strconv"
	"time"
)

// Kind identifies the value type stored in a column.
type Kind uint8

const (
	// Float columns store numeric values; NaN marks a null.
	Float Kind = iota
	// String columns store text values; the empty string marks a null.
	String
	// Time columns store timestamps; the zero time marks a null.
	Time
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

const nullKey = "\x00null"

// Column is a named, typed vector of values. Only the slice matching Kind is populated.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Times   []time.Time
}

// NewFloatColumn creates a numeric column
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Float, Floats: values}
}

// NewStringColumn creates a text column
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: String, Strings: values}
}

// NewTimeColumn creates a timestamp column
func NewTimeColumn(name string, values []time.Time) *Column {
	return &Column{Name: name, Kind: Time, Times: values}
}

// Len returns the number of values in the column
func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case String:
		return len(c.Strings)
	case Time:
		return len(c.Times)
	}
	return 0
}

// IsNull reports whether row i holds a null marker
func (c *Column) IsNull(i int) bool {
	switch c.Kind {
	case Float:
		return math.IsNaN(c.Floats[i])
	case String:
		return c.Strings[i] == ""
	case Time:
		return c.Times[i].IsZero()
	}
	return true
}

// Key returns a string usable as a grouping or join key for row i.
// Nulls share a single key that never collides with a real value.
func (c *Column) Key(i int) string {
	if c.IsNull(i) {
		return nullKey
	}
	switch c.Kind {
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case String:
		return c.Strings[i]
	case Time:
		return strconv.FormatInt(c.Times[i].UnixNano(), 10)
	}
	return nullKey
}

// Renamed returns a column sharing the same values under a new name
func (c *Column) Renamed(name string) *Column {
	out := *c
	out.Name = name
	return &out
}

// Take gathers the given row indices into a new column. An index of -1
// produces a null, which is how unmatched join rows are filled.
func (c *Column) Take(indices []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.Floats = make([]float64, len(indices))
		for i, idx := range indices {
			if idx < 0 {
				out.Floats[i] = math.NaN()
				continue
			}
			out.Floats[i] = c.Floats[idx]
		}
	case String:
		out.Strings = make([]string, len(indices))
		for i, idx := range indices {
			if idx >= 0 {
				out.Strings[i] = c.Strings[idx]
			}
		}
	case Time:
		out.Times = make([]time.Time, len(indices))
		for i, idx := range indices {
			if idx >= 0 {
				out.Times[i] = c.Times[idx]
			}
		}
	}
	return out
}

// Value returns row i as an interface value, nil for nulls
func (c *Column) Value(i int) interface{} {
	if c.IsNull(i) {
		return nil
	}
	switch c.Kind {
	case Float:
		return c.Floats[i]
	case String:
		return c.Strings[i]
	case Time:
		return c.Times[i]
	}
	return nil
}

// FillNull returns a copy of a float column with nulls replaced by value
func (c *Column) FillNull(value float64) *Column {
	if c.Kind != Float {
		return c
	}
	out := make([]float64, len(c.Floats))
	for i, v := range c.Floats {
		if math.IsNaN(v) {
			v = value
		}
		out[i] = v
	}
	return NewFloatColumn(c.Name, out)
}
