package services

import (
	"context"
	"time"

	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// TelemetryService pushes the current metrics and bank health to connected
// dashboards on a fixed cadence, independent of the agent's decision loop.
type TelemetryService interface {
	Run(ctx context.Context) error
}

type telemetryService struct {
	log       *logger.Logger
	snapshots SnapshotService
	notifier  OpsNotifier
	interval  time.Duration
}

func NewTelemetryService(log *logger.Logger, snapshots SnapshotService, notifier OpsNotifier, interval time.Duration) TelemetryService {
	if interval <= 0 {
		interval = time.Second
	}
	return &telemetryService{
		log:       log.With("service", "TelemetryService"),
		snapshots: snapshots,
		notifier:  notifier,
		interval:  interval,
	}
}

func (s *telemetryService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			metrics, err := s.snapshots.GetMetrics(ctx)
			if err == nil {
				s.notifier.Metrics(metrics)
			}
			banks, err := s.snapshots.GetBankHealth(ctx)
			if err == nil {
				s.notifier.Banks(banks)
			}
		}
	}
}
