package agent

import (
	"testing"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

func TestRequiresApproval_AutoApprovedActions(t *testing.T) {
	g := NewGuardrails()
	for _, key := range []domain.ActionKey{
		domain.ActionRetryConfigAdjust,
		domain.ActionMonitorIncrease,
		domain.ActionContinueMonitoring,
		domain.ActionAlert,
	} {
		iv := domain.Intervention{ActionKey: key}
		if g.RequiresApproval(iv, 0.95) {
			t.Fatalf("%s should never require approval, even at high risk", key)
		}
	}
}

func TestRequiresApproval_AlwaysReviewActions(t *testing.T) {
	g := NewGuardrails()

	iv := domain.Intervention{ActionKey: domain.ActionReroute}
	if !g.RequiresApproval(iv, 0.1) {
		t.Fatalf("reroute should require approval without auto_approve")
	}

	iv.AutoApprove = true
	if g.RequiresApproval(iv, 0.39) {
		t.Fatalf("auto_approve reroute under risk threshold should skip review")
	}
	if !g.RequiresApproval(iv, 0.4) {
		t.Fatalf("auto_approve reroute at risk 0.4 should still require review")
	}

	if !g.RequiresApproval(domain.Intervention{ActionKey: domain.ActionEmergencyShutdown, AutoApprove: true}, 0.9) {
		t.Fatalf("emergency shutdown at high risk must require review")
	}
}

func TestRequiresApproval_HighRiskUnclassified(t *testing.T) {
	g := NewGuardrails()
	iv := domain.Intervention{ActionKey: domain.ActionKey("custom-action")}
	if g.RequiresApproval(iv, 0.59) {
		t.Fatalf("risk below 0.6 should not trigger review")
	}
	if !g.RequiresApproval(iv, 0.6) {
		t.Fatalf("risk at 0.6 should trigger review")
	}
}

func TestRequiresApproval_RateLimitWindow(t *testing.T) {
	g := NewGuardrails()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	iv := domain.Intervention{ActionKey: domain.ActionKey("custom-action")}
	for i := 0; i < 5; i++ {
		g.RecordAutoApproved()
	}
	if !g.RequiresApproval(iv, 0.1) {
		t.Fatalf("5 actions inside the window should force review")
	}

	// Slide past the window and the limiter should release.
	current = current.Add(61 * time.Second)
	if g.RequiresApproval(iv, 0.1) {
		t.Fatalf("rate limit should clear once recorded actions age out")
	}
}

func TestValidateAction_Reroute(t *testing.T) {
	g := NewGuardrails()

	cases := []struct {
		name   string
		params map[string]any
		valid  bool
	}{
		{"ok", map[string]any{"from": "hdfc", "to": "icici", "percentage": 100}, true},
		{"same bank", map[string]any{"from": "hdfc", "to": "hdfc", "percentage": 50}, false},
		{"missing to", map[string]any{"from": "hdfc"}, false},
		{"percentage too high", map[string]any{"from": "hdfc", "to": "icici", "percentage": 101}, false},
		{"percentage negative", map[string]any{"from": "hdfc", "to": "icici", "percentage": -1}, false},
	}
	for _, tc := range cases {
		iv := domain.Intervention{ActionKey: domain.ActionReroute, Params: tc.params}
		if ok, reason := g.ValidateAction(iv); ok != tc.valid {
			t.Fatalf("%s: valid=%t (want %t), reason=%q", tc.name, ok, tc.valid, reason)
		}
	}
}

func TestValidateAction_RetryAndSuppress(t *testing.T) {
	g := NewGuardrails()

	iv := domain.Intervention{ActionKey: domain.ActionRetryConfigAdjust, Params: map[string]any{"max_retries": 11}}
	if ok, _ := g.ValidateAction(iv); ok {
		t.Fatalf("max_retries 11 should be invalid")
	}
	iv.Params["max_retries"] = 10
	if ok, reason := g.ValidateAction(iv); !ok {
		t.Fatalf("max_retries 10 should be valid, got %q", reason)
	}

	sup := domain.Intervention{ActionKey: domain.ActionSuppress, Params: map[string]any{"duration_minutes": 121}}
	if ok, _ := g.ValidateAction(sup); ok {
		t.Fatalf("suppression over 120 minutes should be invalid")
	}
	sup.Params["duration_minutes"] = 120
	if ok, _ := g.ValidateAction(sup); !ok {
		t.Fatalf("suppression at 120 minutes should be valid")
	}
}

func TestCalculateRiskScore(t *testing.T) {
	g := NewGuardrails()

	iv := domain.Intervention{ActionKey: domain.ActionReroute}
	if got := g.CalculateRiskScore(iv, domain.Snapshot{}); got < 0.699 || got > 0.701 {
		t.Fatalf("reroute with clean snapshot: got %v, want 0.7", got)
	}

	snapshot := domain.Snapshot{Anomalies: []domain.Anomaly{
		{Severity: "high"}, {Severity: "high"}, {Severity: "low"}, {Severity: "medium"},
	}}
	// 0.3 base + 0.4 reroute + 0.2 many anomalies + 0.2 two highs, clamped.
	if got := g.CalculateRiskScore(iv, snapshot); got != 1.0 {
		t.Fatalf("expected clamp at 1.0, got %v", got)
	}

	monitor := domain.Intervention{ActionKey: domain.ActionMonitorIncrease}
	if got := g.CalculateRiskScore(monitor, domain.Snapshot{}); got != 0.3 {
		t.Fatalf("monitor base risk: got %v, want 0.3", got)
	}
}

func TestRollbackAction(t *testing.T) {
	g := NewGuardrails()

	rb := g.RollbackAction(domain.Intervention{
		ActionKey: domain.ActionReroute,
		Params:    map[string]any{"from": "hdfc", "to": "icici", "percentage": 100},
	})
	if rb == nil {
		t.Fatalf("reroute should have a rollback")
	}
	if rb.Params["from"] != "icici" || rb.Params["to"] != "hdfc" {
		t.Fatalf("rollback should invert the route, got %v", rb.Params)
	}

	if g.RollbackAction(domain.Intervention{ActionKey: domain.ActionAlert}) != nil {
		t.Fatalf("alert has no rollback")
	}
}
