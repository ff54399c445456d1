// Package metrics provides the Prometheus registry for pipeline instrumentation.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "race_features"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Pipeline metrics
var (
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
	StageSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_skipped_total",
		Help:      "Stages skipped because their outputs were already present",
	}, []string{"stage"})
	StageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_failures_total",
		Help:      "Stages that returned an error",
	}, []string{"stage"})
	TableRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "table_rows",
		Help:      "Row count of named tables at the last run",
	}, []string{"table"})
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Pipeline runs by command and status",
	}, []string{"command", "status"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(StageDuration)
		registry.MustRegister(StageSkippedTotal)
		registry.MustRegister(StageFailuresTotal)
		registry.MustRegister(TableRows)
		registry.MustRegister(RunsTotal)

		registry.MustRegister(ClassifierScore)
		registry.MustRegister(ClassifierFitDuration)
		registry.MustRegister(ClassifierRunsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordStage records a completed stage duration.
func RecordStage(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordStageSkipped records a memoized stage skip.
func RecordStageSkipped(stage string) {
	StageSkippedTotal.WithLabelValues(stage).Inc()
}

// RecordStageFailure records a stage error.
func RecordStageFailure(stage string) {
	StageFailuresTotal.WithLabelValues(stage).Inc()
}

// UpdateTableRows sets the row gauge for a table.
func UpdateTableRows(table string, rows int) {
	TableRows.WithLabelValues(table).Set(float64(rows))
}

// RecordRun records a finished command run.
// status should be one of: "success", "failed"
func RecordRun(command, status string) {
	RunsTotal.WithLabelValues(command, status).Inc()
}
