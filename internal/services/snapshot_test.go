package services

import (
	"context"
	"testing"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

func TestDetectAnomalies_HealthyMetrics(t *testing.T) {
	s := NewSnapshotService(logger.NewNop(), nil)

	anomalies := s.DetectAnomalies(domain.SystemMetrics{
		SuccessRate: 99.5, AvgLatency: 150, ErrorRate: 0.3,
	})
	if len(anomalies) != 0 {
		t.Fatalf("healthy metrics should yield no anomalies, got %+v", anomalies)
	}
}

func TestDetectAnomalies_SeverityEscalation(t *testing.T) {
	s := NewSnapshotService(logger.NewNop(), nil)

	medium := s.DetectAnomalies(domain.SystemMetrics{SuccessRate: 97, AvgLatency: 150, ErrorRate: 0.3})
	if len(medium) != 1 || medium[0].Type != "success_rate_drop" || medium[0].Severity != "medium" {
		t.Fatalf("expected one medium success_rate_drop, got %+v", medium)
	}

	high := s.DetectAnomalies(domain.SystemMetrics{SuccessRate: 94, AvgLatency: 150, ErrorRate: 0.3})
	if len(high) != 1 || high[0].Severity != "high" {
		t.Fatalf("success rate under 95 should be high severity, got %+v", high)
	}
}

func TestDetectAnomalies_AllThreeTypes(t *testing.T) {
	s := NewSnapshotService(logger.NewNop(), nil)

	anomalies := s.DetectAnomalies(domain.SystemMetrics{
		SuccessRate: 90, AvgLatency: 450, ErrorRate: 6,
	})
	if len(anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d: %+v", len(anomalies), anomalies)
	}
	for _, a := range anomalies {
		if a.Severity != "high" {
			t.Fatalf("all values are past high thresholds, got %+v", a)
		}
	}
}

func TestGetMetrics_FallsBackWithoutRedis(t *testing.T) {
	s := NewSnapshotService(logger.NewNop(), nil)

	m, err := s.GetMetrics(context.Background())
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if m.SuccessRate != 99.5 {
		t.Fatalf("expected synthetic baseline, got %+v", m)
	}

	banks, err := s.GetBankHealth(context.Background())
	if err != nil || len(banks) != 4 {
		t.Fatalf("expected 4 default banks, got %d (err=%v)", len(banks), err)
	}
}
