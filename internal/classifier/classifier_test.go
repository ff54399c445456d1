package classifier

import (
	"bytes"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable holds two well separated one-feature clusters
func separable() ([][]float64, []float64) {
	X := [][]float64{{0}, {0.1}, {0.2}, {0.8}, {0.9}, {1}}
	y := []float64{0, 0, 0, 1, 1, 1}
	return X, y
}

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	return log, &buf
}

func TestAUC(t *testing.T) {
	auc, err := AUC([]float64{1, 0, 1, 0}, []float64{0.1, 0.35, 0.4, 0.8})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, auc, 1e-12)

	auc, err = AUC([]float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.7, 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)

	auc, err = AUC([]float64{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12, "ties count half")

	_, err = AUC([]float64{1, 1}, []float64{0.2, 0.9})
	assert.ErrorIs(t, err, ErrSingleClass)
}

func TestThresholdScores(t *testing.T) {
	y := []float64{1, 1, 0, 0}
	p := []float64{0.9, 0.4, 0.6, 0.1}

	assert.InDelta(t, 0.5, F1Score(y, p, Threshold), 1e-12)
	assert.InDelta(t, 0.5, AccuracyScore(y, p, Threshold), 1e-12)

	// exactly at the threshold predicts positive
	assert.InDelta(t, 1.0, AccuracyScore([]float64{1}, []float64{0.5}, Threshold), 1e-12)
	assert.Zero(t, F1Score([]float64{0, 0}, []float64{0.1, 0.2}, Threshold))
}

func TestLogLoss(t *testing.T) {
	assert.InDelta(t, math.Ln2, LogLossScore([]float64{1, 0}, []float64{0.5, 0.5}), 1e-12)

	clipped := LogLossScore([]float64{1}, []float64{0})
	assert.False(t, math.IsInf(clipped, 0))
	assert.InDelta(t, -math.Log(1e-15), clipped, 1e-6)
}

func TestEvaluate(t *testing.T) {
	scores, err := Evaluate([]float64{0, 1}, []float64{0.2, 0.7})
	require.NoError(t, err)
	assert.Len(t, scores, 4)
	for _, name := range []string{ROCAUC, F1, Accuracy, LogLoss} {
		assert.Contains(t, scores, name)
	}

	_, err = Evaluate([]float64{0, 1}, []float64{0.2})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Evaluate(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEstimatorsSeparateClusters(t *testing.T) {
	X, y := separable()
	cases := []struct {
		modelType string
		params    Params
	}{
		{"GaussianNB", nil},
		{"LogisticRegression", Params{"c": 10.0}},
		{"RandomForestClassifier", Params{"n_estimators": 25, "random_state": 3}},
		{"RandomForestClassifier", Params{"n_estimators": 5, "bootstrap": false}},
	}
	for _, tc := range cases {
		t.Run(tc.modelType, func(t *testing.T) {
			est, err := NewEstimator(tc.modelType, tc.params)
			require.NoError(t, err)
			require.NoError(t, est.Fit(X, y))

			p, err := est.PredictProba([][]float64{{0.05}, {0.95}})
			require.NoError(t, err)
			assert.Less(t, p[0], 0.5)
			assert.Greater(t, p[1], 0.5)
			for _, v := range p {
				assert.True(t, v >= 0 && v <= 1, "probability %v", v)
			}
		})
	}
}

func TestEstimatorValidation(t *testing.T) {
	X, y := separable()

	for _, modelType := range Types() {
		est, err := NewEstimator(modelType, nil)
		require.NoError(t, err)

		_, err = est.PredictProba(X)
		assert.ErrorIs(t, err, ErrNotFitted, modelType)
		assert.ErrorIs(t, est.Fit(X, []float64{1, 1, 1, 1, 1, 1}), ErrSingleClass, modelType)
		assert.ErrorIs(t, est.Fit(X, y[:3]), ErrInvalidInput, modelType)
		assert.ErrorIs(t, est.Fit(X, []float64{0, 2, 0, 1, 1, 1}), ErrNonBinaryLabel, modelType)

		require.NoError(t, est.Fit(X, y))
		_, err = est.PredictProba([][]float64{{1, 2}})
		assert.ErrorIs(t, err, ErrInvalidInput, modelType)
	}

	_, err := NewEstimator("SVC", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = NewEstimator("LogisticRegression", Params{"penalty": "l1"})
	assert.Error(t, err, "unknown hyperparameters are rejected")
	_, err = NewEstimator("LogisticRegression", Params{"C": -1})
	assert.Error(t, err)
	_, err = NewEstimator("RandomForestClassifier", Params{"n_estimators": 0})
	assert.Error(t, err)
	_, err = NewEstimator("RandomForestClassifier", Params{"max_features": "cube"})
	assert.Error(t, err)
}

func TestRandomForestDeterministic(t *testing.T) {
	X := [][]float64{{0, 5}, {1, 3}, {2, 8}, {3, 1}, {4, 4}, {5, 9}, {6, 2}, {7, 7}}
	y := []float64{0, 1, 0, 0, 1, 1, 0, 1}
	probe := [][]float64{{2.5, 6}, {6.5, 3}, {0, 0}}

	predict := func(jobs int) []float64 {
		est, err := NewEstimator("RandomForestClassifier", Params{
			"n_estimators": 20, "random_state": 42, "n_jobs": jobs, "max_features": 1,
		})
		require.NoError(t, err)
		require.NoError(t, est.Fit(X, y))
		p, err := est.PredictProba(probe)
		require.NoError(t, err)
		return p
	}

	first := predict(1)
	assert.Equal(t, first, predict(1))
	assert.Equal(t, first, predict(4), "worker count does not change the forest")
}

func TestFeatureCount(t *testing.T) {
	k, err := featureCount("sqrt", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, k)

	k, err = featureCount(50, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, k)

	k, err = featureCount("log2", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, k)
}

func TestClassifierFitAndScore(t *testing.T) {
	log, _ := quietLogger()
	X, y := separable()

	c, err := New("GaussianNB", nil, log)
	require.NoError(t, err)
	_, err = c.PredictProba(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, c.Fit(X, y))
	assert.True(t, c.Fitted())
	assert.Len(t, c.ScoresTrain, 4)
	assert.InDelta(t, 1.0, c.ScoresTrain[ROCAUC], 1e-12)
	assert.Nil(t, c.ScoresTest)

	p, err := c.PredictProba(X)
	require.NoError(t, err)
	scores, err := c.ScoreTest(y, p)
	require.NoError(t, err)
	assert.Equal(t, scores, c.ScoresTest)
}

func TestHashParams(t *testing.T) {
	a, err := HashParams(Params{"max_depth": 4, "n_estimators": 10})
	require.NoError(t, err)
	b, err := HashParams(Params{"n_estimators": 10, "max_depth": 4})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := HashParams(Params{"max_depth": 5, "n_estimators": 10})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	empty, err := HashParams(nil)
	require.NoError(t, err)
	again, err := HashParams(Params{})
	require.NoError(t, err)
	assert.Equal(t, empty, again)
}

func TestSaveResults(t *testing.T) {
	dir := t.TempDir()
	log, buf := quietLogger()
	X, y := separable()

	c, err := New("LogisticRegression", Params{"c": 2.0}, log)
	require.NoError(t, err)

	saved, err := c.SaveResults(dir)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Contains(t, buf.String(), "Model must be fitted first, skipping.")

	require.NoError(t, c.Fit(X, y))
	saved, err = c.SaveResults(dir)
	require.NoError(t, err)
	assert.False(t, saved, "test scores are required")
	_, err = os.Stat(ResultsPath(dir, "LogisticRegression"))
	assert.True(t, os.IsNotExist(err))

	p, err := c.PredictProba(X)
	require.NoError(t, err)
	_, err = c.ScoreTest(y, p)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		saved, err = c.SaveResults(dir)
		require.NoError(t, err)
		assert.True(t, saved)
	}

	raw, err := os.ReadFile(ResultsPath(dir, "LogisticRegression"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2, "results are appended")
	assert.True(t, strings.HasPrefix(lines[0], `["`))
	assert.Contains(t, lines[0], `"scores_train"`)

	results, err := LoadResults(dir, "LogisticRegression")
	require.NoError(t, err)
	require.Len(t, results, 2)
	hash, err := c.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, results[0].Hash)
	assert.True(t, HasRun(results, hash))
	assert.False(t, HasRun(results, "deadbeef"))
	assert.InDelta(t, 2.0, results[0].Params["c"], 1e-12)
	assert.InDelta(t, c.ScoresTest[LogLoss], results[1].ScoresTest[LogLoss], 1e-12)
}

func TestLoadResultsMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	results, err := LoadResults(dir, "GaussianNB")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, os.WriteFile(ResultsPath(dir, "GaussianNB"), []byte("[\"abc\"]\n"), 0o644))
	_, err = LoadResults(dir, "GaussianNB")
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	results := []Result{
		{Hash: "a", Record: Record{ScoresTest: Scores{ROCAUC: 0.6, LogLoss: 0.5}}},
		{Hash: "b", Record: Record{ScoresTest: Scores{ROCAUC: 0.8, LogLoss: 0.7}}},
		{Hash: "c", Record: Record{ScoresTest: Scores{LogLoss: 0.4}}},
	}

	best, ok := Best(results, ROCAUC)
	require.True(t, ok)
	assert.Equal(t, "b", best.Hash)

	best, ok = Best(results, LogLoss)
	require.True(t, ok)
	assert.Equal(t, "c", best.Hash, "lower log loss wins")

	_, ok = Best(results, F1)
	assert.False(t, ok)
}

func TestGrid(t *testing.T) {
	base := Params{"n_estimators": 10}
	points := Grid(base, map[string][]interface{}{
		"max_depth": {4, 8},
		"bootstrap": {true, false},
	})

	require.Len(t, points, 4)
	assert.Equal(t, Params{"n_estimators": 10, "bootstrap": true, "max_depth": 4}, points[0])
	assert.Equal(t, Params{"n_estimators": 10, "bootstrap": true, "max_depth": 8}, points[1])
	assert.Equal(t, Params{"n_estimators": 10, "bootstrap": false, "max_depth": 4}, points[2])
	assert.Len(t, base, 1, "base is not modified")

	single := Grid(base, nil)
	require.Len(t, single, 1)
	assert.Equal(t, base, single[0])
}
