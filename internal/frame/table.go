package frame

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Errors
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrLengthMismatch = errors.New("column length mismatch")
	ErrDuplicateName  = errors.New("duplicate column name")
	ErrKindMismatch   = errors.New("column kind mismatch")
)

// Table is an ordered set of equally long, uniquely named columns.
// Tables are treated as immutable: every operation returns a new table that
// may share unchanged columns with its input.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns, checking lengths and names
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if _, exists := t.index[col.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, col.Name)
		}
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, expected %d", ErrLengthMismatch, col.Name, col.Len(), t.rows)
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// MustNew is New for statically known tables; it panics on error
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	return t.rows
}

// NumColumns returns the column count
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Names returns column names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Columns returns the columns in table order
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Has reports whether every named column is present
func (t *Table) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the subset of names not present in the table
func (t *Table) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return t.columns[i], nil
}

// Floats returns the values of a float column
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.typed(name, Float)
	if err != nil {
		return nil, err
	}
	return col.Floats, nil
}

// Times returns the values of a time column
func (t *Table) Times(name string) ([]time.Time, error) {
	col, err := t.typed(name, Time)
	if err != nil {
		return nil, err
	}
	return col.Times, nil
}

// Strings returns the values of a string column
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.typed(name, String)
	if err != nil {
		return nil, err
	}
	return col.Strings, nil
}

func (t *Table) typed(name string, kind Kind) (*Column, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != kind {
		return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrKindMismatch, name, col.Kind, kind)
	}
	return col, nil
}

// With returns a table with the given columns appended; a column whose name
// already exists replaces the old one in place.
func (t *Table) With(columns ...*Column) (*Table, error) {
	out := append([]*Column(nil), t.columns...)
	index := make(map[string]int, len(t.index)+len(columns))
	for k, v := range t.index {
		index[k] = v
	}
	for _, col := range columns {
		if len(out) > 0 && col.Len() != t.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, expected %d", ErrLengthMismatch, col.Name, col.Len(), t.rows)
		}
		if i, ok := index[col.Name]; ok {
			out[i] = col
			continue
		}
		index[col.Name] = len(out)
		out = append(out, col)
	}
	return New(out...)
}

// Select returns a table holding only the named columns, in the given order
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// Drop returns a table without the named columns; unknown names are ignored
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col.Name] {
			cols = append(cols, col)
		}
	}
	out := MustNew(cols...)
	out.rows = t.rows
	return out
}

// Rename returns a table with columns renamed according to mapping
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		if name, ok := mapping[col.Name]; ok {
			cols[i] = col.Renamed(name)
			continue
		}
		cols[i] = col
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// Take gathers rows by index; -1 yields a row of nulls
func (t *Table) Take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		cols[i] = col.Take(indices)
	}
	out := MustNew(cols...)
	out.rows = len(indices)
	return out
}

// Filter keeps the rows where mask is true
func (t *Table) Filter(mask []bool) (*Table, error) {
	if len(mask) != t.rows {
		return nil, fmt.Errorf("%w: mask has %d rows, table has %d", ErrLengthMismatch, len(mask), t.rows)
	}
	indices := make([]int, 0, t.rows)
	for i, keep := range mask {
		if keep {
			indices = append(indices, i)
		}
	}
	return t.Take(indices), nil
}

// NumericNames returns the sorted names of float columns not in exclude
func (t *Table) NumericNames(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var names []string
	for _, col := range t.columns {
		if col.Kind == Float && !skip[col.Name] {
			names = append(names, col.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Matrix returns the named float columns as a row-major matrix
func (t *Table) Matrix(names ...string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		cols[j] = values
	}
	out := make([][]float64, t.rows)
	for i := range out {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		out[i] = row
	}
	return out, nil
}
