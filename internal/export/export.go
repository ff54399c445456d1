// Package export writes feature tables to CSV and XLSX files.
package export

import (
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

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/transform"
)

// ErrUnsupportedFormat is returned for file extensions without a writer
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// SheetName is the worksheet XLSX output is written to
const SheetName = "Sheet1"

const timeLayout = time.RFC3339

// Cell renders row i of c as text. Nulls render empty.
func Cell(c *frame.Column, i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Kind {
	case frame.Float:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case frame.Time:
		return c.Times[i].UTC().Format(timeLayout)
	default:
		return c.Strings[i]
	}
}

// WriteCSV writes a header row followed by every row of t
func WriteCSV(w io.Writer, t *frame.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			record[j] = Cell(c, i)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX streams t into a single-sheet workbook. Numbers stay numeric;
// null cells are left blank.
func WriteXLSX(w io.Writer, t *frame.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx stream writer: %w", err)
	}

	names := t.Names()
	header := make([]interface{}, len(names))
	for j, name := range names {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	cols := t.Columns()
	row := make([]interface{}, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			switch {
			case c.IsNull(i):
				row[j] = nil
			case c.Kind == frame.Float && !math.IsInf(c.Floats[i], 0):
				row[j] = c.Floats[i]
			default:
				row[j] = Cell(c, i)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteFile writes t to path in the format named by its extension
func WriteFile(path string, t *frame.Table) error {
	var write func(io.Writer, *frame.Table) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".xlsx":
		write = WriteXLSX
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SummaryTable lays out column summaries one per row
func SummaryTable(summaries []transform.Summary) *frame.Table {
	n := len(summaries)
	names := make([]string, n)
	count, nulls := make([]float64, n), make([]float64, n)
	mean, std := make([]float64, n), make([]float64, n)
	lo, median, hi := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, s := range summaries {
		names[i] = s.Column
		count[i], nulls[i] = float64(s.Count), float64(s.Nulls)
		mean[i], std[i] = s.Mean, s.StdDev
		lo[i], median[i], hi[i] = s.Min, s.Median, s.Max
	}
	return frame.MustNew(
		frame.NewStringColumn("column", names),
		frame.NewFloatColumn("count", count),
		frame.NewFloatColumn("nulls", nulls),
		frame.NewFloatColumn("mean", mean),
		frame.NewFloatColumn("std", std),
		frame.NewFloatColumn("min", lo),
		frame.NewFloatColumn("median", median),
		frame.NewFloatColumn("max", hi),
	)
}
