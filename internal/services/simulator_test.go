package services

import (
	"testing"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

func txn(bank, status string, latency float64) domain.Transaction {
	return domain.Transaction{Bank: bank, Status: status, LatencyMS: latency, Timestamp: time.Now().UTC()}
}

func TestComputeMetrics(t *testing.T) {
	window := []domain.Transaction{
		txn("hdfc", "success", 100),
		txn("hdfc", "success", 200),
		txn("icici", "failed", 300),
		txn("icici", "success", 400),
	}
	m := computeMetrics(window)
	if m.SuccessRate != 75 {
		t.Fatalf("success rate: got %v, want 75", m.SuccessRate)
	}
	if m.AvgLatency != 250 {
		t.Fatalf("avg latency: got %v, want 250", m.AvgLatency)
	}
	if m.ErrorRate != 25 {
		t.Fatalf("error rate: got %v, want 25", m.ErrorRate)
	}
	if m.TransactionVolume != 4 {
		t.Fatalf("volume: got %v, want 4", m.TransactionVolume)
	}
}

func TestComputeBankHealth_StatusThresholds(t *testing.T) {
	banks := []domain.BankHealth{
		{Name: "hdfc", Weight: 40},
		{Name: "icici", Weight: 30},
		{Name: "sbi", Weight: 30},
	}

	var window []domain.Transaction
	// hdfc: 50% success -> down; icici: 80% -> degraded; sbi: 100% -> healthy.
	for i := 0; i < 10; i++ {
		status := "success"
		if i%2 == 0 {
			status = "failed"
		}
		window = append(window, txn("hdfc", status, 200))
	}
	for i := 0; i < 10; i++ {
		status := "success"
		if i%5 == 0 {
			status = "failed"
		}
		window = append(window, txn("icici", status, 150))
	}
	for i := 0; i < 10; i++ {
		window = append(window, txn("sbi", "success", 120))
	}

	out := computeBankHealth(banks, window)
	byName := map[string]domain.BankHealth{}
	for _, b := range out {
		byName[b.Name] = b
	}

	if byName["hdfc"].Status != domain.BankDown {
		t.Fatalf("hdfc at 50%% should be down, got %s", byName["hdfc"].Status)
	}
	if byName["icici"].Status != domain.BankDegraded {
		t.Fatalf("icici at 80%% should be degraded, got %s", byName["icici"].Status)
	}
	if byName["sbi"].Status != domain.BankHealthy {
		t.Fatalf("sbi at 100%% should be healthy, got %s", byName["sbi"].Status)
	}
}

func TestTriggerScenario_UnknownName(t *testing.T) {
	s := NewSimulatorService(logger.NewNop(), nil, nil, nil)
	if err := s.TriggerScenario("nope"); err == nil {
		t.Fatalf("unknown scenario must error")
	}
	if err := s.TriggerScenario("hdfc_timeout"); err != nil {
		t.Fatalf("built-in scenario should trigger: %v", err)
	}
}

func TestLoadScenarios_MissingFileUsesDefaults(t *testing.T) {
	scenarios := LoadScenarios(logger.NewNop(), "/does/not/exist.yaml")
	for _, name := range []string{"hdfc_timeout", "visa_degradation", "system_overload", "bank_outage"} {
		if _, ok := scenarios[name]; !ok {
			t.Fatalf("default scenario %s missing", name)
		}
	}
}
