package metrics

import "github.com/prometheus/client_golang/prometheus"

// Classifier metrics
var (
	ClassifierScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "classifier_score",
		Help:      "Latest classifier score by model, partition and metric",
	}, []string{"model", "split", "metric"})
	ClassifierFitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "classifier_fit_duration_seconds",
		Help:      "Classifier training duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"model"})
	ClassifierRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifier_runs_total",
		Help:      "Classifier runs by model and outcome",
	}, []string{"model", "outcome"})
)

// RecordScores sets score gauges for one model and partition.
// split should be one of: "train", "test"
func RecordScores(model, split string, scores map[string]float64) {
	for metric, value := range scores {
		ClassifierScore.WithLabelValues(model, split, metric).Set(value)
	}
}

// RecordFit records a classifier training duration.
func RecordFit(model string, durationSeconds float64) {
	ClassifierFitDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordClassifierRun records the outcome of a grid point.
// outcome should be one of: "trained", "skipped", "failed"
func RecordClassifierRun(model, outcome string) {
	ClassifierRunsTotal.WithLabelValues(model, outcome).Inc()
}
