package agent

import (
	"context"
	"fmt"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// observe captures the snapshot the rest of the cycle works from.
func (c *Controller) observe(ctx context.Context, _ *cycleState) (update, error) {
	metrics, err := c.snapshots.GetMetrics(ctx)
	if err != nil {
		return update{}, fmt.Errorf("observe: metrics: %w", err)
	}
	banks, err := c.snapshots.GetBankHealth(ctx)
	if err != nil {
		return update{}, fmt.Errorf("observe: bank health: %w", err)
	}
	errLogs, err := c.snapshots.GetErrorLogs(ctx, 10)
	if err != nil {
		return update{}, fmt.Errorf("observe: error logs: %w", err)
	}
	anomalies := c.snapshots.DetectAnomalies(metrics)

	snapshot := domain.Snapshot{
		Metrics:    metrics,
		BankHealth: banks,
		ErrorLogs:  errLogs,
		Anomalies:  anomalies,
	}

	c.think(domain.StageObserve, fmt.Sprintf(
		"Observing: success rate %.1f%%, latency %.0fms, %d anomalies detected",
		metrics.SuccessRate, metrics.AvgLatency, len(anomalies)))

	return update{snapshot: &snapshot}, nil
}
