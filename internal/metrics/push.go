package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	defaultPushClient     *PushClient
	defaultPushClientOnce sync.Once
)

// Push sends the registry to a Prometheus pushgateway, grouped by run id.
func Push(url, job, runID string) error {
	defaultPushClientOnce.Do(func() {
		defaultPushClient = NewPushClient(DefaultPushClientConfig())
	})
	return PushWith(defaultPushClient, url, job, runID)
}

// PushWith is Push over a caller-provided HTTP client
func PushWith(client push.HTTPDoer, url, job, runID string) error {
	pusher := push.New(url, job).Gatherer(GetRegistry()).Client(client)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
