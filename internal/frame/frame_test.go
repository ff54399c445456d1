package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2020, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New(
		NewFloatColumn("a", []float64{1, 2}),
		NewFloatColumn("b", []float64{1}),
	)
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = New(NewFloatColumn("a", []float64{1}), NewFloatColumn("a", []float64{2}))
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestWithReplacesExistingColumn(t *testing.T) {
	tbl := MustNew(
		NewFloatColumn("a", []float64{1, 2}),
		NewStringColumn("b", []string{"x", "y"}),
	)

	out, err := tbl.With(NewFloatColumn("a", []float64{9, 9}), NewFloatColumn("c", []float64{3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Names())

	a, err := out.Floats("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9}, a)

	// the input is untouched
	orig, _ := tbl.Floats("a")
	assert.Equal(t, []float64{1, 2}, orig)
}

func TestTypedAccessorsCheckKind(t *testing.T) {
	tbl := MustNew(NewStringColumn("id", []string{"h1"}))

	_, err := tbl.Floats("id")
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = tbl.Floats("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFilterAndTake(t *testing.T) {
	tbl := MustNew(
		NewFloatColumn("v", []float64{1, 2, 3}),
		NewTimeColumn("date", []time.Time{day(1), day(2), day(3)}),
	)

	filtered, err := tbl.Filter([]bool{true, false, true})
	require.NoError(t, err)
	v, _ := filtered.Floats("v")
	assert.Equal(t, []float64{1, 3}, v)

	_, err = tbl.Filter([]bool{true})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	taken := tbl.Take([]int{2, -1})
	v, _ = taken.Floats("v")
	assert.Equal(t, 3.0, v[0])
	assert.True(t, math.IsNaN(v[1]))
	dates, _ := taken.Times("date")
	assert.True(t, dates[1].IsZero())
}

func TestNumericNamesSortedAndExcluded(t *testing.T) {
	tbl := MustNew(
		NewFloatColumn("zeta", []float64{1}),
		NewFloatColumn("alpha", []float64{1}),
		NewFloatColumn("target", []float64{1}),
		NewStringColumn("horse_id", []string{"h"}),
	)
	assert.Equal(t, []string{"alpha", "zeta"}, tbl.NumericNames("target"))
}

func TestLeftJoinKeepsUnmatchedRows(t *testing.T) {
	left := MustNew(
		NewStringColumn("race_id", []string{"r1", "r2", "r3"}),
		NewFloatColumn("weight", []float64{50, 51, 52}),
	)
	right := MustNew(
		NewStringColumn("race_id", []string{"r1", "r3"}),
		NewFloatColumn("distance", []float64{1200, 1600}),
		NewFloatColumn("weight", []float64{0, 0}),
	)

	out, err := LeftJoin(left, right, []string{"race_id"}, [2]string{"_left", "_right"})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, []string{"race_id", "weight_left", "distance", "weight_right"}, out.Names())

	ids, _ := out.Strings("race_id")
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids)

	distance, _ := out.Floats("distance")
	assert.Equal(t, 1200.0, distance[0])
	assert.True(t, math.IsNaN(distance[1]))
	assert.Equal(t, 1600.0, distance[2])
}

func TestLeftJoinRepeatsLeftRowPerMatch(t *testing.T) {
	left := MustNew(NewStringColumn("k", []string{"a", "b"}))
	right := MustNew(
		NewStringColumn("k", []string{"a", "a", "b"}),
		NewFloatColumn("v", []float64{1, 2, 3}),
	)

	out, err := LeftJoin(left, right, []string{"k"}, [2]string{"_l", "_r"})
	require.NoError(t, err)
	v, _ := out.Floats("v")
	assert.Equal(t, []float64{1, 2, 3}, v)
}

func TestLeftJoinCompositeTimeKey(t *testing.T) {
	left := MustNew(
		NewStringColumn("horse_id", []string{"h1", "h1", ""}),
		NewTimeColumn("date", []time.Time{day(1), day(2), day(2)}),
	)
	right := MustNew(
		NewStringColumn("horse_id", []string{"h1", "h1"}),
		NewTimeColumn("date", []time.Time{day(2), day(1)}),
		NewFloatColumn("agg", []float64{20, 10}),
	)

	out, err := LeftJoin(left, right, []string{"horse_id", "date"}, [2]string{"_x", "_y"})
	require.NoError(t, err)
	agg, _ := out.Floats("agg")
	assert.Equal(t, 10.0, agg[0])
	assert.Equal(t, 20.0, agg[1])
	assert.True(t, math.IsNaN(agg[2]), "null keys never match")
}

func TestLeftJoinKindMismatch(t *testing.T) {
	left := MustNew(NewStringColumn("k", []string{"1"}))
	right := MustNew(NewFloatColumn("k", []float64{1}))
	_, err := LeftJoin(left, right, []string{"k"}, [2]string{"", ""})
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestMatrix(t *testing.T) {
	tbl := MustNew(
		NewFloatColumn("a", []float64{1, 2}),
		NewFloatColumn("b", []float64{3, 4}),
	)
	m, err := tbl.Matrix("b", "a")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3, 1}, {4, 2}}, m)
}
