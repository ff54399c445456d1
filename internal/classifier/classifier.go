package classifier

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-features/internal/metrics"
)

// Classifier pairs an estimator with its hyperparameters and the scores of
// its latest fit.
type Classifier struct {
	Type   string
	Params Params

	ScoresTrain Scores
	ScoresTest  Scores

	estimator Estimator
	fitted    bool
	log       logrus.FieldLogger
}

// New builds a classifier of modelType. Invalid types or hyperparameters
// fail here rather than at fit time.
func New(modelType string, params Params, log logrus.FieldLogger) (*Classifier, error) {
	if params == nil {
		params = Params{}
	}
	est, err := NewEstimator(modelType, params)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Classifier{
		Type:      modelType,
		Params:    params,
		estimator: est,
		log:       log.WithField("model", modelType),
	}, nil
}

// Fit trains the estimator and scores it on its own training data
func (c *Classifier) Fit(X [][]float64, y []float64) error {
	start := time.Now()
	if err := c.estimator.Fit(X, y); err != nil {
		metrics.RecordClassifierRun(c.Type, "failed")
		return fmt.Errorf("fit %s: %w", c.Type, err)
	}
	metrics.RecordFit(c.Type, time.Since(start).Seconds())
	c.fitted = true
	c.ScoresTest = nil

	probas, err := c.estimator.PredictProba(X)
	if err != nil {
		return err
	}
	scores, err := c.Score(y, probas)
	if err != nil {
		return err
	}
	c.ScoresTrain = scores
	metrics.RecordScores(c.Type, "train", scores)
	c.log.Debugf("Fitted on %d rows in %.2fs", len(X), time.Since(start).Seconds())
	return nil
}

// Fitted reports whether Fit has succeeded
func (c *Classifier) Fitted() bool {
	return c.fitted
}

// PredictProba returns the positive-class probability of each row
func (c *Classifier) PredictProba(X [][]float64) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	return c.estimator.PredictProba(X)
}

// Score evaluates probabilities against labels
func (c *Classifier) Score(y, probas []float64) (Scores, error) {
	return Evaluate(y, probas)
}

// ScoreTest evaluates held-out probabilities and keeps them as the test scores
func (c *Classifier) ScoreTest(y, probas []float64) (Scores, error) {
	scores, err := c.Score(y, probas)
	if err != nil {
		return nil, err
	}
	c.ScoresTest = scores
	metrics.RecordScores(c.Type, "test", scores)
	metrics.RecordClassifierRun(c.Type, "trained")
	return scores, nil
}

// Hash identifies the hyperparameters. Keys are serialized in sorted order,
// so equal parameter maps give equal hashes.
func (c *Classifier) Hash() (string, error) {
	return HashParams(c.Params)
}

// HashParams is the hex SHA-256 of the JSON encoding of params
func HashParams(params Params) (string, error) {
	if params == nil {
		params = Params{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("hash params: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
