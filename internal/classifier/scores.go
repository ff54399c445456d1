package classifier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Score names
const (
	ROCAUC   = "roc_auc_score"
	F1       = "f1_score"
	Accuracy = "accuracy_score"
	LogLoss  = "log_loss"
)

// Threshold turns a probability into a positive prediction
const Threshold = 0.5

const logLossEpsilon = 1e-15

// Scores maps score name to value
type Scores map[string]float64

// LowerIsBetter reports whether smaller values of the named score are better
func LowerIsBetter(name string) bool {
	return name == LogLoss
}

// Evaluate computes every score for labels y and probabilities p
func Evaluate(y, p []float64) (Scores, error) {
	if len(y) != len(p) {
		return nil, fmt.Errorf("%w: %d labels and %d probabilities", ErrInvalidInput, len(y), len(p))
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("%w: nothing to score", ErrInvalidInput)
	}
	auc, err := AUC(y, p)
	if err != nil {
		return nil, err
	}
	return Scores{
		ROCAUC:   auc,
		F1:       F1Score(y, p, Threshold),
		Accuracy: AccuracyScore(y, p, Threshold),
		LogLoss:  LogLossScore(y, p),
	}, nil
}

// AUC is the area under the ROC curve. Tied probabilities count half.
func AUC(y, p []float64) (float64, error) {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	scores := make([]float64, len(p))
	classes := make([]bool, len(p))
	var pos int
	for k, i := range idx {
		scores[k] = p[i]
		classes[k] = y[i] == 1
		if classes[k] {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, ErrSingleClass
	}
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

func confusion(y, p []float64, threshold float64) (tp, fp, fn, tn float64) {
	for i := range y {
		predicted := p[i] >= threshold
		actual := y[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted:
			fp++
		case actual:
			fn++
		default:
			tn++
		}
	}
	return
}

// F1Score is the harmonic mean of precision and recall; 0 when undefined
func F1Score(y, p []float64, threshold float64) float64 {
	tp, fp, fn, _ := confusion(y, p, threshold)
	if tp == 0 {
		return 0
	}
	return 2 * tp / (2*tp + fp + fn)
}

// AccuracyScore is the fraction of thresholded predictions that match y
func AccuracyScore(y, p []float64, threshold float64) float64 {
	tp, _, _, tn := confusion(y, p, threshold)
	return (tp + tn) / float64(len(y))
}

// LogLossScore is the mean binary cross-entropy with clipped probabilities
func LogLossScore(y, p []float64) float64 {
	var sum float64
	for i := range y {
		q := math.Min(math.Max(p[i], logLossEpsilon), 1-logLossEpsilon)
		sum -= y[i]*math.Log(q) + (1-y[i])*math.Log(1-q)
	}
	return sum / float64(len(y))
}
