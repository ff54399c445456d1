package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for feature pipeline stages.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger logrus.FieldLogger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// WithRun returns a copy of the logger tagged with a run id.
func (pl *PipelineLogger) WithRun(runID string) *PipelineLogger {
	return &PipelineLogger{Entry: pl.WithField("run_id", runID)}
}

// LogStage logs a completed stage with its wall-clock duration.
func (pl *PipelineLogger) LogStage(message string, elapsed time.Duration) {
	pl.WithFields(logrus.Fields{
		"stage":           message,
		"elapsed_seconds": elapsed.Seconds(),
	}).Infof("%s - %.2fs", message, elapsed.Seconds())
}

// LogSkip logs a stage skipped because its outputs are already present.
func (pl *PipelineLogger) LogSkip(outputs []string) {
	pl.WithField("outputs", outputs).
		Infof("Feature(s) \"%s\" found in set, skipping call.", abbreviate(outputs))
}

// abbreviate names at most two outputs, eliding the rest
func abbreviate(names []string) string {
	if len(names) <= 2 {
		return strings.Join(names, ", ")
	}
	return names[0] + ", " + names[1] + ", ..."
}

// LogFilter logs the row counts around the observation filter.
func (pl *PipelineLogger) LogFilter(before, after int, droppedPercent float64) {
	pl.WithFields(logrus.Fields{
		"rows_before":     before,
		"rows_after":      after,
		"dropped_percent": droppedPercent,
	}).Infof("Data size %d > %d (-%.2f%%)", before, after, droppedPercent)
}

// LogFetch logs one entity table fetch.
func (pl *PipelineLogger) LogFetch(table string, rows int, elapsed time.Duration) {
	pl.WithFields(logrus.Fields{
		"table":           table,
		"rows":            rows,
		"elapsed_seconds": elapsed.Seconds(),
	}).Infof("> %s - %.2fs", table, elapsed.Seconds())
}

// LogSplit logs the sizes of the temporal partitions.
func (pl *PipelineLogger) LogSplit(cutoff time.Time, durationDays, trainRows, testRows int) {
	pl.WithFields(logrus.Fields{
		"cutoff":        cutoff.Format("2006-01-02"),
		"duration_days": durationDays,
		"train_rows":    trainRows,
		"test_rows":     testRows,
	}).Info("Split train/test")
}

// LogScores logs classifier scores for one partition.
func (pl *PipelineLogger) LogScores(model, hash, split string, scores map[string]float64) {
	fields := logrus.Fields{
		"model": model,
		"hash":  hash,
		"split": split,
	}
	parts := make([]string, 0, len(scores))
	for _, name := range sortedKeys(scores) {
		fields[name] = scores[name]
		parts = append(parts, fmt.Sprintf("%s=%.4f", name, scores[name]))
	}
	pl.WithFields(fields).Infof("%s %s scores: %s", model, split, strings.Join(parts, " "))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
