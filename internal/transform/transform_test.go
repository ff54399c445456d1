package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-features/internal/frame"
)

var nan = math.NaN()

func day(d int) time.Time {
	return time.Date(2020, time.January, d, 0, 0, 0, 0, time.UTC)
}

func assertFloats(t *testing.T, want, got []float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.Len(t, got, len(want), msgAndArgs...)
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "row %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-12, "row %d", i)
	}
}

func TestRaceGap(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewStringColumn("category_id", []string{"r1", "r1", "r1", "r2", ""}),
		frame.NewFloatColumn("weight", []float64{50, 60, nan, 70, 10}),
		frame.NewFloatColumn("target", []float64{1, 0, 0, 1, 0}),
	)
	cols, err := RaceGap(tbl, "category_id", []string{"target"})
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "category_avg_weight", cols[0].Name)
	assertFloats(t, []float64{-5, 5, nan, 0, nan}, cols[0].Floats)
}

func TestRaceRankAverageTies(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewStringColumn("category_id", []string{"r1", "r1", "r1", "r1", "r2", "r2"}),
		frame.NewFloatColumn("odds", []float64{3, 1, 3, nan, 5, 2}),
	)
	cols, err := RaceRank(tbl, "category_id", nil)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "category_rank_odds", cols[0].Name)
	// r1 non-null: 1 -> rank 1, 3,3 -> ranks 2,3 averaged to 2.5; n = 3
	assertFloats(t, []float64{2.5 / 3, 1.0 / 3, 2.5 / 3, nan, 1, 0.5}, cols[0].Floats)
}

func TestAddRaceNormalizedFeaturesSkipsExcluded(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewFloatColumn("category_id", []float64{1, 1}),
		frame.NewFloatColumn("b", []float64{1, 2}),
		frame.NewFloatColumn("a", []float64{4, 4}),
		frame.NewFloatColumn("target", []float64{0, 1}),
	)
	excluded := make([]string, 1, 4)
	excluded[0] = "target"

	out, err := AddRaceNormalizedFeatures(tbl, "category_id", excluded)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"category_id", "b", "a", "target",
		"category_avg_a", "category_avg_b",
		"category_rank_a", "category_rank_b",
	}, out.Names())
	assert.Len(t, excluded, 1)
	assert.Empty(t, excluded[:2][1], "caller slice is not appended to")

	rankA, _ := out.Floats("category_rank_a")
	assert.Equal(t, []float64{0.75, 0.75}, rankA)
}

func TestProcessTransforms(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewFloatColumn("odds", []float64{math.E, nan}),
		frame.NewFloatColumn("n", []float64{4, nan}),
		frame.NewFloatColumn("plain", []float64{2, nan}),
		frame.NewFloatColumn("target", []float64{1, nan}),
	)
	out, err := Process(tbl, map[string]string{"odds": "log", "n": "sqrt"}, []string{"target"})
	require.NoError(t, err)

	odds, _ := out.Floats("odds")
	assertFloats(t, []float64{1, 0}, odds, "null becomes 1 before the log")
	n, _ := out.Floats("n")
	assertFloats(t, []float64{2, 0}, n)
	plain, _ := out.Floats("plain")
	assertFloats(t, []float64{2, 0}, plain)
	target, _ := out.Floats("target")
	assert.True(t, math.IsNaN(target[1]), "excluded columns are untouched")

	_, err = Process(tbl, map[string]string{"odds": "cube"}, nil)
	assert.Error(t, err)
}

func TestTransformRegistry(t *testing.T) {
	assert.Equal(t, []string{"fill_zero", "log", "log1p", "sqrt"}, TransformNames())
	v, err := Lookup("log1p")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Apply(nan))
}

func TestStrip(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewStringColumn("horse_id", []string{"h"}),
		frame.NewFloatColumn("weight", []float64{1}),
	)
	assert.Equal(t, []string{"weight"}, Strip(tbl, []string{"horse_id", "absent"}).Names())
}

func TestScaleConstantColumn(t *testing.T) {
	tbl := frame.MustNew(frame.NewFloatColumn("c", []float64{7, 7, 7}))
	s := NewMinMaxScaler()
	require.NoError(t, s.Fit(tbl))

	lo, hi, ok := s.Bounds("c")
	require.True(t, ok)
	assert.Equal(t, 1.0, hi-lo, "constant columns get a unit range")

	out, err := s.Transform(tbl)
	require.NoError(t, err)
	c, _ := out.Floats("c")
	assert.Equal(t, []float64{0, 0, 0}, c)
}

func TestScaleUsesTrainBounds(t *testing.T) {
	train := frame.MustNew(
		frame.NewFloatColumn("w", []float64{10, 20, nan}),
		frame.NewFloatColumn("empty", []float64{nan, nan, nan}),
	)
	test := frame.MustNew(
		frame.NewFloatColumn("w", []float64{15, 30}),
		frame.NewFloatColumn("empty", []float64{0.5, nan}),
	)
	s := NewMinMaxScaler()
	require.NoError(t, s.Fit(train))

	out, err := s.Transform(test)
	require.NoError(t, err)
	w, _ := out.Floats("w")
	assert.Equal(t, []float64{0.5, 2}, w)
	empty, _ := out.Floats("empty")
	assertFloats(t, []float64{0.5, nan}, empty)

	_, err = s.Transform(frame.MustNew(frame.NewFloatColumn("w", []float64{1})))
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)

	_, err = NewMinMaxScaler().Transform(test)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestSplitBoundaries(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewStringColumn("race_id", []string{"a", "b", "c", "d", "e"}),
		frame.NewTimeColumn("date", []time.Time{day(9), day(10), day(14), day(15), {}}),
		frame.NewFloatColumn("target", []float64{1, 0, 1, 0, 1}),
	)
	p, err := Split(tbl, "date", "target", day(10), 5)
	require.NoError(t, err)

	trainIDs, _ := p.XTrain.Strings("race_id")
	testIDs, _ := p.XTest.Strings("race_id")
	assert.Equal(t, []string{"a"}, trainIDs)
	assert.Equal(t, []string{"b", "c"}, testIDs)
	assert.Equal(t, []float64{1}, p.YTrain)
	assert.Equal(t, []float64{0, 1}, p.YTest)

	assert.Equal(t, []string{"race_id", "date"}, p.XTrain.Names(), "only the target is removed")
}

func TestSplitEmptyPartitions(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewTimeColumn("date", []time.Time{day(20)}),
		frame.NewFloatColumn("target", []float64{1}),
	)
	p, err := Split(tbl, "date", "target", day(1), 5)
	require.NoError(t, err)
	assert.Zero(t, p.XTest.NumRows())
	assert.Empty(t, p.YTest)
	assert.Zero(t, p.XTrain.NumRows())
}

func TestDescribe(t *testing.T) {
	tbl := frame.MustNew(
		frame.NewFloatColumn("w", []float64{1, 2, 3, nan}),
		frame.NewFloatColumn("empty", []float64{nan, nan, nan, nan}),
		frame.NewFloatColumn("target", []float64{0, 1, 0, 1}),
	)
	summaries := Describe(tbl, "target")
	require.Len(t, summaries, 2)

	empty, w := summaries[0], summaries[1]
	assert.Equal(t, "w", w.Column)
	assert.Equal(t, 3, w.Count)
	assert.Equal(t, 1, w.Nulls)
	assert.Equal(t, 2.0, w.Mean)
	assert.Equal(t, 2.0, w.Median)
	assert.Equal(t, 1.0, w.StdDev)
	assert.Equal(t, 1.0, w.Min)
	assert.Equal(t, 3.0, w.Max)

	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}
