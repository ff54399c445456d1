package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// LogisticRegressionParams are the LogisticRegression hyperparameters
type LogisticRegressionParams struct {
	C            float64 `mapstructure:"C"`
	MaxIter      int     `mapstructure:"max_iter"`
	FitIntercept bool    `mapstructure:"fit_intercept"`
	Tol          float64 `mapstructure:"tol"`
}

// LogisticRegression minimizes C times the log loss plus half the squared
// L2 norm of the weights. The intercept is not penalized.
type LogisticRegression struct {
	params    LogisticRegressionParams
	weights   []float64
	intercept float64
}

func newLogisticRegression(params Params) (Estimator, error) {
	p := LogisticRegressionParams{C: 1, MaxIter: 100, FitIntercept: true, Tol: 1e-4}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.C <= 0 {
		return nil, fmt.Errorf("invalid hyperparameters: C must be positive, got %v", p.C)
	}
	if p.MaxIter <= 0 {
		return nil, fmt.Errorf("invalid hyperparameters: max_iter must be positive, got %d", p.MaxIter)
	}
	return &LogisticRegression{params: p}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + exp(z)) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Fit finds the weights with L-BFGS
func (lr *LogisticRegression) Fit(X [][]float64, y []float64) error {
	width, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	c := lr.params.C
	// x holds the weights followed by the intercept
	n := width + 1

	linear := func(x, row []float64) float64 {
		z := x[width]
		for j, v := range row {
			z += x[j] * v
		}
		return z
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var loss float64
			for i, row := range X {
				z := linear(x, row)
				loss += softplus(z) - y[i]*z
			}
			var reg float64
			for _, w := range x[:width] {
				reg += w * w
			}
			return c*loss + 0.5*reg
		},
		Grad: func(grad, x []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range X {
				r := c * (sigmoid(linear(x, row)) - y[i])
				for j, v := range row {
					grad[j] += r * v
				}
				grad[width] += r
			}
			for j := 0; j < width; j++ {
				grad[j] += x[j]
			}
			if !lr.params.FitIntercept {
				grad[width] = 0
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   lr.params.MaxIter,
		GradientThreshold: lr.params.Tol,
	}
	result, err := optimize.Minimize(problem, make([]float64, n), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	lr.weights = append([]float64(nil), result.X[:width]...)
	lr.intercept = result.X[width]
	return nil
}

// PredictProba returns the sigmoid of the linear predictor
func (lr *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if lr.weights == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(lr.weights)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		z := lr.intercept
		for j, v := range row {
			z += lr.weights[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

// Coefficients returns the fitted weights and intercept
func (lr *LogisticRegression) Coefficients() ([]float64, float64) {
	return append([]float64(nil), lr.weights...), lr.intercept
}
