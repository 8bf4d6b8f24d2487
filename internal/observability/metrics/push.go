package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the run's metrics to a Pushgateway, grouped by run ID.
// It is a no-op when metrics are disabled or url is empty.
func Push(ctx context.Context, url, runID string) error {
	if !enabled || url == "" {
		return nil
	}

	pusher := push.New(url, jobName).
		Gatherer(registry).
		Grouping("run_id", runID)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
