package features

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/race-features/internal/entitystore"
	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/logger"
	"github.com/yourusername/race-features/internal/pipeline"
)

// FilterReport summarizes the rows removed by Filter
type FilterReport struct {
	Before         int
	After          int
	DroppedPercent float64
}

// CoreFeatures left-joins the right table onto the left one. Every left row
// is kept; rows without a match carry nulls in the right-side columns.
func CoreFeatures(ds entitystore.Dataset, cfg JoinConfig) (*frame.Table, error) {
	left, ok := ds[cfg.LeftTable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entitystore.ErrTableNotFound, cfg.LeftTable)
	}
	right, ok := ds[cfg.RightTable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entitystore.ErrTableNotFound, cfg.RightTable)
	}
	out, err := frame.LeftJoin(left, right, []string{cfg.Key}, cfg.Suffixes)
	if err != nil {
		return nil, fmt.Errorf("core features: %w", err)
	}
	return out, nil
}

// Filter keeps the rows whose flag column equals 1 and whose bounded columns
// fall in their bound. Nulls in bounded columns count as 0.
func Filter(t *frame.Table, cfg FilterConfig) (*frame.Table, FilterReport, error) {
	flags, err := t.Floats(cfg.FlagColumn)
	if err != nil {
		return nil, FilterReport{}, fmt.Errorf("filter: %w", err)
	}
	mask := make([]bool, t.NumRows())
	for i, f := range flags {
		mask[i] = f == 1
	}

	columns := make([]string, 0, len(cfg.Bounds))
	for col := range cfg.Bounds {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		values, err := t.Floats(col)
		if err != nil {
			return nil, FilterReport{}, fmt.Errorf("filter: %w", err)
		}
		bound := cfg.Bounds[col]
		for i, v := range values {
			if math.IsNaN(v) {
				v = 0
			}
			mask[i] = mask[i] && bound.Contains(v)
		}
	}

	out, err := t.Filter(mask)
	if err != nil {
		return nil, FilterReport{}, err
	}
	report := FilterReport{Before: t.NumRows(), After: out.NumRows()}
	if report.Before > 0 {
		report.DroppedPercent = 100 * float64(report.Before-report.After) / float64(report.Before)
	}
	return out, report, nil
}

// AddTarget adds TargetColumn: 1 when rank <= 3, else 0. A null rank is 0.
func AddTarget(t *frame.Table, rankColumn string) (*frame.Table, error) {
	ranks, err := t.Floats(rankColumn)
	if err != nil {
		return nil, fmt.Errorf("add target: %w", err)
	}
	target := make([]float64, len(ranks))
	for i, r := range ranks {
		if r <= 3 {
			target[i] = 1
		}
	}
	return t.With(frame.NewFloatColumn(TargetColumn, target))
}

// CoreStage builds the joined table from ds, ignoring its input table
func CoreStage(ds entitystore.Dataset, cfg JoinConfig, log *logger.PipelineLogger) pipeline.Stage {
	return pipeline.Timed(log, "Building core features", pipeline.Stage{
		Name:     "core_features",
		Provides: []string{cfg.Key},
		Run: func(_ context.Context, _ *frame.Table) (*frame.Table, error) {
			return CoreFeatures(ds, cfg)
		},
	})
}

// FilterStage wraps Filter, logging the before/after row counts
func FilterStage(cfg FilterConfig, log *logger.PipelineLogger) pipeline.Stage {
	requires := []string{cfg.FlagColumn}
	for col := range cfg.Bounds {
		requires = append(requires, col)
	}
	sort.Strings(requires[1:])
	return pipeline.Timed(log, "Filtering data", pipeline.Stage{
		Name:     "filter",
		Requires: requires,
		Run: func(_ context.Context, t *frame.Table) (*frame.Table, error) {
			out, report, err := Filter(t, cfg)
			if err != nil {
				return nil, err
			}
			log.LogFilter(report.Before, report.After, report.DroppedPercent)
			return out, nil
		},
	})
}

// TargetStage wraps AddTarget with compute-or-skip on TargetColumn
func TargetStage(rankColumn string, force bool, log *logger.PipelineLogger) pipeline.Stage {
	return pipeline.ComputeOrSkip(log, []string{TargetColumn}, force, pipeline.Stage{
		Name:     "target",
		Requires: []string{rankColumn},
		Provides: []string{TargetColumn},
		Run: func(_ context.Context, t *frame.Table) (*frame.Table, error) {
			return AddTarget(t, rankColumn)
		},
	})
}
