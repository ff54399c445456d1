// Package classifier trains binary classifiers on the scaled feature matrix,
// scores them and keeps an append-only log of results per classifier type.
package classifier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Errors
var (
	ErrNotFitted      = errors.New("classifier: not fitted")
	ErrSingleClass    = errors.New("classifier: only one class present")
	ErrUnknownType    = errors.New("classifier: unknown type")
	ErrInvalidInput   = errors.New("classifier: invalid input")
	ErrNonBinaryLabel = errors.New("classifier: labels must be 0 or 1")
)

// Params is a flat mapping of hyperparameter name to value
type Params map[string]interface{}

// Estimator is the capability every backend provides
type Estimator interface {
	Fit(X [][]float64, y []float64) error
	// PredictProba returns the positive-class probability of each row
	PredictProba(X [][]float64) ([]float64, error)
}

// Factory builds an estimator from hyperparameters
type Factory func(params Params) (Estimator, error)

var factories = map[string]Factory{
	"GaussianNB":             newGaussianNB,
	"LogisticRegression":     newLogisticRegression,
	"RandomForestClassifier": newRandomForest,
}

// NewEstimator builds the estimator registered under modelType
func NewEstimator(modelType string, params Params) (Estimator, error) {
	factory, ok := factories[modelType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, modelType)
	}
	return factory(params)
}

// Types returns the registered classifier types, sorted
func Types() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// decodeParams overlays params onto out, which holds the defaults. Unknown
// keys are rejected; names match case-insensitively.
func decodeParams(params Params, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(params)); err != nil {
		return fmt.Errorf("invalid hyperparameters: %w", err)
	}
	return nil
}

// checkTraining validates a training set and returns its feature count
func checkTraining(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: empty training set", ErrInvalidInput)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows and %d labels", ErrInvalidInput, len(X), len(y))
	}
	width := len(X[0])
	var pos int
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, expected %d", ErrInvalidInput, i, len(row), width)
		}
		switch y[i] {
		case 1:
			pos++
		case 0:
		default:
			return 0, fmt.Errorf("%w: got %v", ErrNonBinaryLabel, y[i])
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, ErrSingleClass
	}
	return width, nil
}

func checkWidth(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrInvalidInput, i, len(row), width)
		}
	}
	return nil
}
