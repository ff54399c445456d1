package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/logger"
	"github.com/yourusername/race-features/internal/pipeline"
)

// bucket folds every observation of one entity on one date
type bucket struct {
	row   int
	date  time.Time
	wins  float64
	races float64
}

// timelines groups rows by entity and date. Each timeline is sorted by date;
// same-date rows share a bucket, so their relative order is irrelevant.
// Rows with a null entity or a null date belong to no timeline.
func timelines(ids *frame.Column, dates []time.Time, target []float64) [][]bucket {
	entityIndex := make(map[string]int)
	dateIndex := make([]map[int64]int, 0)
	var out [][]bucket

	for i := 0; i < ids.Len(); i++ {
		if ids.IsNull(i) || dates[i].IsZero() {
			continue
		}
		key := ids.Key(i)
		e, ok := entityIndex[key]
		if !ok {
			e = len(out)
			entityIndex[key] = e
			out = append(out, nil)
			dateIndex = append(dateIndex, make(map[int64]int))
		}
		day := dates[i].UnixNano()
		b, ok := dateIndex[e][day]
		if !ok {
			b = len(out[e])
			dateIndex[e][day] = b
			out[e] = append(out[e], bucket{row: i, date: dates[i]})
		}
		win := target[i]
		if math.IsNaN(win) {
			win = 0
		}
		out[e][b].wins += win
		out[e][b].races++
	}

	for _, tl := range out {
		sort.Slice(tl, func(a, b int) bool { return tl[a].date.Before(tl[b].date) })
	}
	return out
}

// Recipe computes one or more per-bucket values along an entity timeline.
// Each returned slice has one value per bucket and must depend only on
// buckets strictly before it.
type Recipe struct {
	Name    string
	Message string
	Outputs func(role string) []string
	Compute func(tl []bucket, window int) [][]float64
}

// RaceCounts yields sqrt of the wins and races accumulated before each bucket.
var RaceCounts = Recipe{
	Name:    "race_counts",
	Message: "Adding race counts for %s",
	Outputs: func(role string) []string {
		return []string{role + "_n_wins", role + "_n_races"}
	},
	Compute: func(tl []bucket, _ int) [][]float64 {
		wins := make([]float64, len(tl))
		races := make([]float64, len(tl))
		var cumWins, cumRaces float64
		for k, b := range tl {
			wins[k] = math.Sqrt(cumWins)
			races[k] = math.Sqrt(cumRaces)
			cumWins += b.wins
			cumRaces += b.races
		}
		return [][]float64{wins, races}
	},
}

// LastRace yields the win count of the previous bucket.
var LastRace = Recipe{
	Name:    "last_race",
	Message: "Adding last race result for %s",
	Outputs: func(role string) []string {
		return []string{role + "_last_race"}
	},
	Compute: func(tl []bucket, _ int) [][]float64 {
		last := make([]float64, len(tl))
		for k := 1; k < len(tl); k++ {
			last[k] = tl[k-1].wins
		}
		return [][]float64{last}
	},
}

// LastNRaces yields the win sum over the window buckets preceding each bucket.
var LastNRaces = Recipe{
	Name:    "last_n_races",
	Message: "Adding last n races result for %s",
	Outputs: func(role string) []string {
		return []string{role + "_last_n_races"}
	},
	Compute: func(tl []bucket, window int) [][]float64 {
		rolling := make([]float64, len(tl))
		var sum float64
		for k, b := range tl {
			sum += b.wins
			if k >= window {
				sum -= tl[k-window].wins
			}
			rolling[k] = sum
		}
		shifted := make([]float64, len(tl))
		for k := 1; k < len(tl); k++ {
			shifted[k] = rolling[k-1]
		}
		return [][]float64{shifted}
	},
}

// Recipes lists the aggregations in the order AddAllFeatures applies them
var Recipes = []Recipe{RaceCounts, LastRace, LastNRaces}

// IDColumn returns the identifier column of a role
func IDColumn(role string) string {
	return role + "_id"
}

// Aggregate computes the recipe for role as a table keyed by
// (IDColumn(role), dateColumn) with one row per bucket.
func Aggregate(t *frame.Table, r Recipe, role, dateColumn string, window int) (*frame.Table, error) {
	ids, err := t.Column(IDColumn(role))
	if err != nil {
		return nil, fmt.Errorf("%s for %s: %w", r.Name, role, err)
	}
	dateCol, err := t.Column(dateColumn)
	if err != nil {
		return nil, fmt.Errorf("%s for %s: %w", r.Name, role, err)
	}
	dates, err := t.Times(dateColumn)
	if err != nil {
		return nil, fmt.Errorf("%s for %s: %w", r.Name, role, err)
	}
	target, err := t.Floats(TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("%s for %s: %w", r.Name, role, err)
	}

	outputs := r.Outputs(role)
	values := make([][]float64, len(outputs))
	var rows []int
	for _, tl := range timelines(ids, dates, target) {
		computed := r.Compute(tl, window)
		for j := range outputs {
			values[j] = append(values[j], computed[j]...)
		}
		for _, b := range tl {
			rows = append(rows, b.row)
		}
	}

	cols := []*frame.Column{ids.Take(rows), dateCol.Take(rows)}
	for j, name := range outputs {
		if values[j] == nil {
			values[j] = []float64{}
		}
		cols = append(cols, frame.NewFloatColumn(name, values[j]))
	}
	return frame.New(cols...)
}

// Merge left-joins an aggregate table back onto t on (IDColumn(role),
// dateColumn). Existing output columns are replaced in place and unmatched
// rows get 0.
func Merge(t, agg *frame.Table, outputs []string, role, dateColumn string) (*frame.Table, error) {
	merged, err := frame.LeftJoin(t.Drop(outputs...), agg, []string{IDColumn(role), dateColumn}, [2]string{"_x", "_y"})
	if err != nil {
		return nil, err
	}
	filled := make([]*frame.Column, len(outputs))
	for i, name := range outputs {
		col, err := merged.Column(name)
		if err != nil {
			return nil, err
		}
		filled[i] = col.FillNull(0)
	}
	// aggregate keys are unique, so merged rows line up with t
	return t.With(filled...)
}

// Apply computes and merges one recipe for one role
func Apply(t *frame.Table, r Recipe, role, dateColumn string, window int) (*frame.Table, error) {
	agg, err := Aggregate(t, r, role, dateColumn, window)
	if err != nil {
		return nil, err
	}
	return Merge(t, agg, r.Outputs(role), role, dateColumn)
}

// RecipeStage wraps one recipe for one role with compute-or-skip and timing.
// When precomputed is non-nil and holds an aggregate, it is merged instead of
// computing one.
func RecipeStage(r Recipe, role string, cfg Config, log *logger.PipelineLogger, precomputed **frame.Table) pipeline.Stage {
	outputs := r.Outputs(role)
	inner := pipeline.Stage{
		Name:     r.Name + "_" + role,
		Requires: []string{IDColumn(role), cfg.DateColumn, TargetColumn},
		Provides: outputs,
		Run: func(_ context.Context, t *frame.Table) (*frame.Table, error) {
			if precomputed != nil && *precomputed != nil {
				return Merge(t, *precomputed, outputs, role, cfg.DateColumn)
			}
			return Apply(t, r, role, cfg.DateColumn, cfg.Window)
		},
	}
	return pipeline.ComputeOrSkip(log, outputs, cfg.Force,
		pipeline.Timed(log, fmt.Sprintf(r.Message, role), inner))
}

// AddAllFeatures adds the target and then every recipe for every role, in
// recipe-major order. Aggregates depend only on ids, dates and the target, so
// with cfg.Workers > 1 they are computed concurrently up front; merges always
// run sequentially in the same order, giving the same table either way.
func AddAllFeatures(ctx context.Context, t *frame.Table, cfg Config, log *logger.PipelineLogger) (*frame.Table, error) {
	t, err := TargetStage(cfg.RankColumn, cfg.Force, log).Apply(ctx, t)
	if err != nil {
		return nil, err
	}

	type job struct {
		recipe Recipe
		role   string
		agg    *frame.Table
	}
	jobs := make([]*job, 0, len(Recipes)*len(cfg.Roles))
	for _, r := range Recipes {
		for _, role := range cfg.Roles {
			jobs = append(jobs, &job{recipe: r, role: role})
		}
	}

	if cfg.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, j := range jobs {
			j := j
			if !cfg.Force && t.Has(j.recipe.Outputs(j.role)...) {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				agg, err := Aggregate(t, j.recipe, j.role, cfg.DateColumn, cfg.Window)
				if err != nil {
					return err
				}
				j.agg = agg
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	stages := make([]pipeline.Stage, len(jobs))
	for i, j := range jobs {
		stages[i] = RecipeStage(j.recipe, j.role, cfg, log, &j.agg)
	}
	return pipeline.Run(ctx, t, stages...)
}
