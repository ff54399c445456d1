package entitystore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/race-features/internal/frame"
)

// timeLayouts are tried in order when inferring Time columns
var timeLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// CSVStore reads each table from <dir>/<table>.csv. The header names the
// columns; a column whose non-empty cells all parse as numbers is Float, one
// whose cells all parse as dates is Time, anything else is String. Empty
// cells are null.
type CSVStore struct {
	dir string
}

// NewCSVStore creates a store over the CSV files in dir
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Fetch implements Store
func (s *CSVStore) Fetch(ctx context.Context, table string, columns []string) (*frame.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateIdentifiers(table, columns); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, table+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("fetch %s: empty file", table)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	positions := make([]int, len(columns))
	for j, name := range columns {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("fetch %s: %w: %s", table, frame.ErrColumnNotFound, name)
		}
		positions[j] = i
	}

	cells := make([][]string, len(columns))
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", table, err)
		}
		for j, i := range positions {
			cells[j] = append(cells[j], strings.TrimSpace(record[i]))
		}
	}

	cols := make([]*frame.Column, len(columns))
	for j, name := range columns {
		cols[j] = inferColumn(name, cells[j])
	}
	t, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	return renamePrimaryKey(table, t)
}

func inferColumn(name string, cells []string) *frame.Column {
	if cells == nil {
		cells = []string{}
	}
	if floats, ok := parseFloats(cells); ok {
		return frame.NewFloatColumn(name, floats)
	}
	if times, ok := parseTimes(cells); ok {
		return frame.NewTimeColumn(name, times)
	}
	return frame.NewStringColumn(name, cells)
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseTimes(cells []string) ([]time.Time, bool) {
	out := make([]time.Time, len(cells))
	for i, c := range cells {
		if c == "" {
			continue
		}
		parsed := false
		for _, layout := range timeLayouts {
			if v, err := time.Parse(layout, c); err == nil {
				out[i] = v.UTC()
				parsed = true
				break
			}
		}
		if !parsed {
			return nil, false
		}
	}
	return out, true
}
