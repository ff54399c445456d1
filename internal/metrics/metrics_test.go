package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordStage(t *testing.T) {
	InitRegistry()

	before := testutil.CollectAndCount(StageDuration)
	RecordStage("metrics_test_stage", 0.25)
	assert.Equal(t, before+1, testutil.CollectAndCount(StageDuration))
}

func TestRecordStageSkipped(t *testing.T) {
	InitRegistry()

	RecordStageSkipped("metrics_test_skip")
	RecordStageSkipped("metrics_test_skip")
	assert.Equal(t, 2.0, testutil.ToFloat64(StageSkippedTotal.WithLabelValues("metrics_test_skip")))
}

func TestUpdateTableRows(t *testing.T) {
	tests := []struct {
		name string
		rows int
	}{
		{name: "empty", rows: 0},
		{name: "populated", rows: 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateTableRows("metrics_test_table", tt.rows)
			assert.Equal(t, float64(tt.rows), testutil.ToFloat64(TableRows.WithLabelValues("metrics_test_table")))
		})
	}
}

func TestRecordScores(t *testing.T) {
	RecordScores("GaussianNB", "test", map[string]float64{"roc_auc_score": 0.7, "log_loss": 0.6})

	assert.Equal(t, 0.7, testutil.ToFloat64(ClassifierScore.WithLabelValues("GaussianNB", "test", "roc_auc_score")))
	assert.Equal(t, 0.6, testutil.ToFloat64(ClassifierScore.WithLabelValues("GaussianNB", "test", "log_loss")))
}

func TestRecordRuns(t *testing.T) {
	RecordRun("metrics_test", "success")
	RecordClassifierRun("metrics_test_model", "skipped")

	assert.Equal(t, 1.0, testutil.ToFloat64(RunsTotal.WithLabelValues("metrics_test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ClassifierRunsTotal.WithLabelValues("metrics_test_model", "skipped")))
}

func TestMetricsHandler(t *testing.T) {
	RecordStageFailure("metrics_test_failure")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `race_features_stage_failures_total{stage="metrics_test_failure"} 1`))
}

func TestPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, Push(srv.URL, "race_features", "run-1"))
	assert.Equal(t, "/metrics/job/race_features/run_id/run-1", gotPath)
}

func testPushClient() *PushClient {
	cfg := DefaultPushClientConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 1000
	cfg.CircuitBreakerMax = 2
	return NewPushClient(cfg)
}

func TestPushRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, PushWith(testPushClient(), srv.URL, "race_features", "run-2"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPushClientCircuitBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testPushClient()
	for i := 0; i < 2; i++ {
		assert.Error(t, PushWith(client, srv.URL, "race_features", ""))
	}
	err := PushWith(client, srv.URL, "race_features", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestPushDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	assert.Error(t, PushWith(testPushClient(), srv.URL, "race_features", ""))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func BenchmarkRecordStage(b *testing.B) {
	InitRegistry()
	for i := 0; i < b.N; i++ {
		RecordStage("bench", 0.1)
	}
}
