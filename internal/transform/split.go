package transform

import (
	"fmt"
	"time"

	"github.com/yourusername/race-features/internal/frame"
)

// Partition holds the four projections of a temporal split
type Partition struct {
	XTrain *frame.Table
	YTrain []float64
	XTest  *frame.Table
	YTest  []float64
}

// Split partitions t by date: train rows are strictly before cutoff, test
// rows fall in [cutoff, cutoff+durationDays). Rows with a null date belong to
// neither. Feature tables keep every column except targetColumn.
func Split(t *frame.Table, dateColumn, targetColumn string, cutoff time.Time, durationDays int) (Partition, error) {
	dates, err := t.Times(dateColumn)
	if err != nil {
		return Partition{}, fmt.Errorf("split: %w", err)
	}
	target, err := t.Floats(targetColumn)
	if err != nil {
		return Partition{}, fmt.Errorf("split: %w", err)
	}
	end := cutoff.AddDate(0, 0, durationDays)

	var trainRows, testRows []int
	for i, d := range dates {
		switch {
		case d.IsZero():
		case d.Before(cutoff):
			trainRows = append(trainRows, i)
		case d.Before(end):
			testRows = append(testRows, i)
		}
	}

	features := t.Drop(targetColumn)
	return Partition{
		XTrain: features.Take(trainRows),
		YTrain: gather(target, trainRows),
		XTest:  features.Take(testRows),
		YTest:  gather(target, testRows),
	}, nil
}

func gather(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}
