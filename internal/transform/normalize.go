// Package transform holds the stages that run after temporal aggregation:
// category normalization, value transforms, supervised encoding, min-max
// scaling and the temporal train/test split.
package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/race-features/internal/frame"
)

// Output column prefixes of the category normalizer
const (
	GapPrefix  = "category_avg_"
	RankPrefix = "category_rank_"
)

// groupRows returns row indices per category, in first-seen order. Rows with
// a null category are left out.
func groupRows(cat *frame.Column) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i := 0; i < cat.Len(); i++ {
		if cat.IsNull(i) {
			continue
		}
		key := cat.Key(i)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func plus(names []string, extra ...string) []string {
	out := make([]string, 0, len(names)+len(extra))
	return append(append(out, names...), extra...)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// RaceGap returns, for each numeric column c, category_avg_c: the row value
// minus the mean of c over its category. Means skip nulls.
func RaceGap(t *frame.Table, categoryColumn string, excluded []string) ([]*frame.Column, error) {
	cat, err := t.Column(categoryColumn)
	if err != nil {
		return nil, fmt.Errorf("race gap: %w", err)
	}
	groups := groupRows(cat)
	names := t.NumericNames(plus(excluded, categoryColumn)...)

	out := make([]*frame.Column, 0, len(names))
	for _, name := range names {
		values, _ := t.Floats(name)
		gap := nanSlice(len(values))
		for _, rows := range groups {
			present := make([]float64, 0, len(rows))
			for _, i := range rows {
				if !math.IsNaN(values[i]) {
					present = append(present, values[i])
				}
			}
			if len(present) == 0 {
				continue
			}
			mean := stat.Mean(present, nil)
			for _, i := range rows {
				gap[i] = values[i] - mean
			}
		}
		out = append(out, frame.NewFloatColumn(GapPrefix+name, gap))
	}
	return out, nil
}

// RaceRank returns, for each numeric column c, category_rank_c: the
// percentile rank in (0, 1] of the row value among the non-null values of
// its category. Ties share their average rank.
func RaceRank(t *frame.Table, categoryColumn string, excluded []string) ([]*frame.Column, error) {
	cat, err := t.Column(categoryColumn)
	if err != nil {
		return nil, fmt.Errorf("race rank: %w", err)
	}
	groups := groupRows(cat)
	names := t.NumericNames(plus(excluded, categoryColumn)...)

	out := make([]*frame.Column, 0, len(names))
	for _, name := range names {
		values, _ := t.Floats(name)
		ranks := nanSlice(len(values))
		for _, rows := range groups {
			percentileRanks(values, rows, ranks)
		}
		out = append(out, frame.NewFloatColumn(RankPrefix+name, ranks))
	}
	return out, nil
}

// percentileRanks writes average-tie percentile ranks of values[rows] into dst
func percentileRanks(values []float64, rows []int, dst []float64) {
	present := make([]int, 0, len(rows))
	for _, i := range rows {
		if !math.IsNaN(values[i]) {
			present = append(present, i)
		}
	}
	n := len(present)
	if n == 0 {
		return
	}
	sort.SliceStable(present, func(a, b int) bool { return values[present[a]] < values[present[b]] })

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[present[end]] == values[present[start]] {
			end++
		}
		// 1-based ranks start+1..end share their mean
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			dst[present[k]] = avg / float64(n)
		}
		start = end
	}
}

// AddRaceNormalizedFeatures appends the gap and rank columns to t
func AddRaceNormalizedFeatures(t *frame.Table, categoryColumn string, excluded []string) (*frame.Table, error) {
	gaps, err := RaceGap(t, categoryColumn, excluded)
	if err != nil {
		return nil, err
	}
	ranks, err := RaceRank(t, categoryColumn, excluded)
	if err != nil {
		return nil, err
	}
	return t.With(append(gaps, ranks...)...)
}
