package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GaussianNBParams are the GaussianNB hyperparameters
type GaussianNBParams struct {
	VarSmoothing float64 `mapstructure:"var_smoothing"`
}

// GaussianNB models each feature as an independent normal per class
type GaussianNB struct {
	params   GaussianNBParams
	width    int
	logPrior [2]float64
	mean     [2][]float64
	variance [2][]float64
}

func newGaussianNB(params Params) (Estimator, error) {
	p := GaussianNBParams{VarSmoothing: 1e-9}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return &GaussianNB{params: p}, nil
}

// Fit estimates class priors and per-class feature means and variances.
// Every variance is increased by var_smoothing times the largest feature
// variance.
func (nb *GaussianNB) Fit(X [][]float64, y []float64) error {
	width, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	nb.width = width

	var epsilon float64
	column := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, row := range X {
			column[i] = row[j]
		}
		_, v := stat.PopMeanVariance(column, nil)
		epsilon = math.Max(epsilon, v)
	}
	epsilon *= nb.params.VarSmoothing

	for class := 0; class < 2; class++ {
		var rows [][]float64
		for i, row := range X {
			if int(y[i]) == class {
				rows = append(rows, row)
			}
		}
		nb.logPrior[class] = math.Log(float64(len(rows)) / float64(len(X)))
		nb.mean[class] = make([]float64, width)
		nb.variance[class] = make([]float64, width)
		values := make([]float64, len(rows))
		for j := 0; j < width; j++ {
			for i, row := range rows {
				values[i] = row[j]
			}
			m, v := stat.PopMeanVariance(values, nil)
			nb.mean[class][j] = m
			nb.variance[class][j] = v + epsilon
		}
	}
	return nil
}

// PredictProba returns P(y=1 | x)
func (nb *GaussianNB) PredictProba(X [][]float64) ([]float64, error) {
	if nb.mean[0] == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, nb.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	jll := make([]float64, 2)
	for i, row := range X {
		for class := 0; class < 2; class++ {
			ll := nb.logPrior[class]
			for j, x := range row {
				v := nb.variance[class][j]
				d := x - nb.mean[class][j]
				ll -= 0.5*math.Log(2*math.Pi*v) + d*d/(2*v)
			}
			jll[class] = ll
		}
		out[i] = math.Exp(jll[1] - floats.LogSumExp(jll))
	}
	return out, nil
}
