package policy

import (
	"testing"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

func TestPredictUtility_UntrainedReportsFlag(t *testing.T) {
	l := NewLinearLearner(logger.NewNop())

	u, trained := l.PredictUtility(domain.PolicyContext{RiskScore: 0.8, BankHealthScore: 40}, ActionReroute)
	if trained {
		t.Fatalf("expected trained=false before any update")
	}
	if u != 0 {
		t.Fatalf("expected zero utility before training, got %v", u)
	}
}

func TestUpdatePolicy_SetsTrained(t *testing.T) {
	l := NewLinearLearner(logger.NewNop())
	ctx := domain.PolicyContext{RiskScore: 0.5, BankHealthScore: 80}

	l.UpdatePolicy(ctx, ActionMonitor, 10)

	if _, trained := l.PredictUtility(ctx, ActionMonitor); !trained {
		t.Fatalf("expected trained=true after one update")
	}
}

func TestUpdatePolicy_SeparatesGoodAndBadActions(t *testing.T) {
	l := NewLinearLearner(logger.NewNop())
	ctx := domain.PolicyContext{RiskScore: 0.9, BankHealthScore: 20}

	for i := 0; i < 5; i++ {
		l.UpdatePolicy(ctx, ActionReroute, 100.0)
		l.UpdatePolicy(ctx, ActionMonitor, -20.0)
	}

	reroute, _ := l.PredictUtility(ctx, ActionReroute)
	monitor, _ := l.PredictUtility(ctx, ActionMonitor)
	if reroute <= monitor {
		t.Fatalf("expected reroute utility (%v) > monitor utility (%v)", reroute, monitor)
	}
}

func TestPredictUtility_DistinguishesContexts(t *testing.T) {
	l := NewLinearLearner(logger.NewNop())
	highRisk := domain.PolicyContext{RiskScore: 0.9, BankHealthScore: 20}
	lowRisk := domain.PolicyContext{RiskScore: 0.1, BankHealthScore: 95}

	for i := 0; i < 20; i++ {
		l.UpdatePolicy(highRisk, ActionReroute, 100)
		l.UpdatePolicy(highRisk, ActionMonitor, -50)
		l.UpdatePolicy(lowRisk, ActionMonitor, 10)
		l.UpdatePolicy(lowRisk, ActionReroute, -20)
	}

	if hi, _ := l.PredictUtility(highRisk, ActionReroute); hi <= 0 {
		t.Fatalf("expected positive reroute utility under high risk, got %v", hi)
	}
	hiMon, _ := l.PredictUtility(highRisk, ActionMonitor)
	hiRer, _ := l.PredictUtility(highRisk, ActionReroute)
	if hiRer <= hiMon {
		t.Fatalf("expected reroute preferred under high risk: reroute=%v monitor=%v", hiRer, hiMon)
	}
}
