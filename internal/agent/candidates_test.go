package agent

import (
	"testing"

	"github.com/stitchfin/payops-agent/internal/domain"
)

func bank(name string, successRate float64) domain.BankHealth {
	return domain.BankHealth{Name: name, DisplayName: name, SuccessRate: successRate}
}

func TestGenerateCandidates_CatalogShape(t *testing.T) {
	snapshot := domain.Snapshot{BankHealth: []domain.BankHealth{
		bank("hdfc", 72), bank("icici", 98), bank("sbi", 96),
	}}
	hyp := domain.Hypothesis{Text: "HDFC degraded", RiskScore: 0.8}

	candidates := generateCandidates(snapshot, hyp)
	if len(candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(candidates))
	}

	keys := make(map[domain.ActionKey]bool)
	for _, cand := range candidates {
		keys[cand.ActionKey] = true
	}
	for _, want := range []domain.ActionKey{
		domain.ActionMonitorIncrease,
		domain.ActionRetryConfigAdjust,
		domain.ActionReroute,
		domain.ActionAlert,
	} {
		if !keys[want] {
			t.Fatalf("catalog missing %s", want)
		}
	}
}

func TestRerouteParams_PicksWorstAndBest(t *testing.T) {
	params, _ := rerouteParams([]domain.BankHealth{
		bank("hdfc", 72), bank("icici", 98), bank("sbi", 96), bank("axis", 91),
	})
	if params["from"] != "hdfc" {
		t.Fatalf("worst bank should be hdfc, got %v", params["from"])
	}
	if params["to"] != "icici" {
		t.Fatalf("best healthy target should be icici, got %v", params["to"])
	}
	if params["percentage"] != 100 {
		t.Fatalf("expected full reroute, got %v", params["percentage"])
	}
}

func TestRerouteParams_FallsBackToBestOfRest(t *testing.T) {
	// Nobody above 95, but 88 is still a workable target.
	params, _ := rerouteParams([]domain.BankHealth{
		bank("hdfc", 70), bank("icici", 88), bank("sbi", 85),
	})
	if params["to"] != "icici" {
		t.Fatalf("expected best-of-rest icici, got %v", params["to"])
	}
}

func TestRerouteParams_NoHealthyAlternative(t *testing.T) {
	params, _ := rerouteParams([]domain.BankHealth{
		bank("hdfc", 60), bank("icici", 70), bank("sbi", 65),
	})
	if params["no_healthy_alternative"] != true {
		t.Fatalf("expected no_healthy_alternative flag, got %v", params)
	}
	if params["percentage"] != 0 {
		t.Fatalf("no-alternative reroute must move no traffic, got %v", params["percentage"])
	}
}

func TestGenerateCandidates_SingleBankStillFourCandidates(t *testing.T) {
	snapshot := domain.Snapshot{BankHealth: []domain.BankHealth{bank("hdfc", 50)}}
	candidates := generateCandidates(snapshot, domain.Hypothesis{RiskScore: 0.5})

	if len(candidates) != 4 {
		t.Fatalf("catalog must always hold 4 candidates, got %d", len(candidates))
	}
	var reroute *domain.CandidateAction
	for i := range candidates {
		if candidates[i].ActionKey == domain.ActionReroute {
			reroute = &candidates[i]
		}
	}
	if reroute == nil {
		t.Fatalf("reroute slot missing from catalog")
	}
	if reroute.Params["no_healthy_alternative"] != true {
		t.Fatalf("single-bank reroute must carry the no-alternative marker, got %v", reroute.Params)
	}
}

func TestSeverityForRisk(t *testing.T) {
	if got := severityForRisk(0.8); got != domain.SeverityCritical {
		t.Fatalf("risk 0.8: got %s", got)
	}
	if got := severityForRisk(0.5); got != domain.SeverityWarning {
		t.Fatalf("risk 0.5: got %s", got)
	}
	if got := severityForRisk(0.2); got != domain.SeverityInfo {
		t.Fatalf("risk 0.2: got %s", got)
	}
}
