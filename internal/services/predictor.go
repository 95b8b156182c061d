package services

import (
	"context"
	"fmt"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// PredictorService estimates per-bank failure risk from current health
// telemetry. Heuristic rather than learned: the serving model sits behind
// the same interface, so swapping one in is a wiring change.
type PredictorService interface {
	GetFailurePredictions(ctx context.Context) (map[string]domain.FailurePrediction, error)
}

type predictorService struct {
	log       *logger.Logger
	snapshots SnapshotService
}

func NewPredictorService(log *logger.Logger, snapshots SnapshotService) PredictorService {
	return &predictorService{
		log:       log.With("service", "PredictorService"),
		snapshots: snapshots,
	}
}

func (s *predictorService) GetFailurePredictions(ctx context.Context) (map[string]domain.FailurePrediction, error) {
	banks, err := s.snapshots.GetBankHealth(ctx)
	if err != nil {
		return nil, err
	}

	predictions := make(map[string]domain.FailurePrediction, len(banks))
	for _, b := range banks {
		predictions[b.Name] = predictBank(b)
	}
	return predictions, nil
}

func predictBank(b domain.BankHealth) domain.FailurePrediction {
	risk := 0.0
	reason := "Healthy"

	if b.SuccessRate < 100 {
		risk += (100 - b.SuccessRate) / 25
	}
	if b.SuccessRate < 95 {
		reason = fmt.Sprintf("Success rate degraded to %.1f%%", b.SuccessRate)
	}

	switch {
	case b.AvgLatency > 400:
		risk += 0.25
		reason = fmt.Sprintf("Latency critical at %.0fms", b.AvgLatency)
	case b.AvgLatency > 250:
		risk += 0.1
		if reason == "Healthy" {
			reason = fmt.Sprintf("Latency elevated at %.0fms", b.AvgLatency)
		}
	}

	switch b.Status {
	case domain.BankDown:
		risk += 0.5
		reason = "Bank marked down"
	case domain.BankDegraded:
		risk += 0.2
		if reason == "Healthy" {
			reason = "Bank marked degraded"
		}
	}

	if risk > 1 {
		risk = 1
	}
	if risk < 0.15 {
		reason = "Healthy"
	}
	return domain.FailurePrediction{Risk: risk, Reason: reason}
}
