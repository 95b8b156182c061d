package services

import (
	"context"
	"testing"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

func memRecord(id string, improvement float64, anomalyTypes ...string) domain.MemoryRecord {
	var pattern []domain.Anomaly
	for _, typ := range anomalyTypes {
		pattern = append(pattern, domain.Anomaly{Type: typ})
	}
	return domain.MemoryRecord{ID: id, AnomalyPattern: pattern, Improvement: improvement, Outcome: "success"}
}

func TestRecallSimilarPatterns_RanksByOverlap(t *testing.T) {
	s := NewMemoryService(logger.NewNop(), nil)
	ctx := context.Background()

	_ = s.StoreMemory(ctx, memRecord("a", 6, "latency_spike"))
	_ = s.StoreMemory(ctx, memRecord("b", 8, "latency_spike", "success_rate_drop"))
	_ = s.StoreMemory(ctx, memRecord("c", 12, "error_rate_spike"))

	got, err := s.RecallSimilarPatterns(ctx, []domain.Anomaly{
		{Type: "latency_spike"}, {Type: "success_rate_drop"},
	}, 3)
	if err != nil {
		t.Fatalf("recall failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != "b" {
		t.Fatalf("highest overlap should rank first, got %s", got[0].ID)
	}
}

func TestRecallSimilarPatterns_EmptyPattern(t *testing.T) {
	s := NewMemoryService(logger.NewNop(), nil)
	got, err := s.RecallSimilarPatterns(context.Background(), nil, 3)
	if err != nil || got != nil {
		t.Fatalf("empty pattern should recall nothing, got %v (err=%v)", got, err)
	}
}

func TestRecallSimilarPatterns_HonorsLimit(t *testing.T) {
	s := NewMemoryService(logger.NewNop(), nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		_ = s.StoreMemory(ctx, memRecord(id, 6, "latency_spike"))
	}

	got, err := s.RecallSimilarPatterns(ctx, []domain.Anomaly{{Type: "latency_spike"}}, 2)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 records, got %d (err=%v)", len(got), err)
	}
}
