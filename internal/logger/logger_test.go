package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "debug", "development")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	buf.Reset()
	log = newLogger(buf, "loud", "production")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Contains(t, buf.String(), "Invalid log level 'loud'")
}

func TestPipelineLoggerStage(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogStage("Core features", 1500*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "pipeline", logEntry["component"])
	assert.Equal(t, "Core features - 1.50s", logEntry["msg"])
	assert.Equal(t, 1.5, logEntry["elapsed_seconds"])
}

func TestPipelineLoggerSkip(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogSkip([]string{"horse_n_wins", "horse_n_races"})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, `Feature(s) "horse_n_wins, horse_n_races" found in set, skipping call.`, logEntry["msg"])
}

func TestPipelineLoggerSkipAbbreviates(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogSkip([]string{"a", "b", "c", "d"})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, `Feature(s) "a, b, ..." found in set, skipping call.`, logEntry["msg"])
	assert.Len(t, logEntry["outputs"], 4)
}

func TestPipelineLoggerFilter(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogFilter(200, 150, 25)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "Data size 200 > 150 (-25.00%)", logEntry["msg"])
	assert.Equal(t, float64(200), logEntry["rows_before"])
}

func TestPipelineLoggerFetch(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log).WithRun("run-1")

	pl.LogFetch("races", 10, 250*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "> races - 0.25s", logEntry["msg"])
	assert.Equal(t, "run-1", logEntry["run_id"])
	assert.Equal(t, "races", logEntry["table"])
}

func TestPipelineLoggerSplit(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogSplit(time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC), 5, 90, 10)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "2020-01-10", logEntry["cutoff"])
	assert.Equal(t, float64(10), logEntry["test_rows"])
}

func TestPipelineLoggerScores(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPipelineLogger(log)

	pl.LogScores("GaussianNB", "abc", "test", map[string]float64{"accuracy_score": 0.75, "log_loss": 0.5})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "GaussianNB test scores: accuracy_score=0.7500 log_loss=0.5000", logEntry["msg"])
	assert.Equal(t, 0.75, logEntry["accuracy_score"])
	assert.Equal(t, "abc", logEntry["hash"])
}
