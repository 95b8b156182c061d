package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// Guardrails decide when an intervention needs a human, whether it is
// structurally sound, and how to undo it.
type Guardrails struct {
	mu            sync.Mutex
	recentActions []time.Time
	now           func() time.Time

	autoApproveRiskThreshold float64
	approvalRiskThreshold    float64
	maxActionsPerWindow      int
	rateWindow               time.Duration
}

// Actions that never need a human.
var autoApproveActions = map[domain.ActionKey]bool{
	domain.ActionRetryConfigAdjust:  true,
	domain.ActionMonitorIncrease:    true,
	domain.ActionContinueMonitoring: true,
	domain.ActionAlert:              true,
}

// Actions that always go through review unless explicitly marked
// auto-approvable under low risk.
var alwaysReviewActions = map[domain.ActionKey]bool{
	domain.ActionReroute:           true,
	domain.ActionSuppress:          true,
	domain.ActionEmergencyShutdown: true,
}

var actionRiskWeights = map[domain.ActionKey]float64{
	domain.ActionReroute:            0.4,
	domain.ActionSuppress:           0.3,
	domain.ActionRetryConfigAdjust:  0.1,
	domain.ActionAlert:              0.0,
	domain.ActionMonitorIncrease:    0.0,
	domain.ActionContinueMonitoring: 0.0,
}

const unknownActionRiskWeight = 0.2

func NewGuardrails() *Guardrails {
	return &Guardrails{
		now:                      time.Now,
		autoApproveRiskThreshold: 0.4,
		approvalRiskThreshold:    0.6,
		maxActionsPerWindow:      5,
		rateWindow:               time.Minute,
	}
}

// RequiresApproval reports whether the intervention needs a human decision
// before execution.
func (g *Guardrails) RequiresApproval(iv domain.Intervention, riskScore float64) bool {
	if autoApproveActions[iv.ActionKey] {
		return false
	}
	if alwaysReviewActions[iv.ActionKey] {
		if iv.AutoApprove && riskScore < g.autoApproveRiskThreshold {
			return false
		}
		return true
	}
	if riskScore >= g.approvalRiskThreshold {
		return true
	}
	return g.rateLimited()
}

// ValidateAction runs structural checks. Invalid interventions must never
// reach an executor.
func (g *Guardrails) ValidateAction(iv domain.Intervention) (bool, string) {
	switch iv.ActionKey {
	case domain.ActionReroute:
		from := paramString(iv.Params, "from")
		to := paramString(iv.Params, "to")
		if from == "" || to == "" {
			return false, "reroute requires 'from' and 'to' banks"
		}
		if from == to {
			return false, "cannot reroute traffic to the same bank"
		}
		pct := paramInt(iv.Params, "percentage", 100)
		if pct < 0 || pct > 100 {
			return false, "percentage must be between 0 and 100"
		}
	case domain.ActionRetryConfigAdjust:
		maxRetries := paramInt(iv.Params, "max_retries", 2)
		if maxRetries < 0 || maxRetries > 10 {
			return false, "max retries must be between 0 and 10"
		}
	case domain.ActionSuppress:
		duration := paramInt(iv.Params, "duration_minutes", 30)
		if duration > 120 {
			return false, "suppression duration cannot exceed 120 minutes"
		}
	}
	return true, ""
}

// CalculateRiskScore is an independent estimate used where the Reason-stage
// risk is unavailable (e.g. externally submitted interventions).
func (g *Guardrails) CalculateRiskScore(iv domain.Intervention, snapshot domain.Snapshot) float64 {
	risk := 0.3
	if w, ok := actionRiskWeights[iv.ActionKey]; ok {
		risk += w
	} else {
		risk += unknownActionRiskWeight
	}
	if len(snapshot.Anomalies) > 3 {
		risk += 0.2
	}
	for _, a := range snapshot.Anomalies {
		if a.Severity == "high" {
			risk += 0.1
		}
	}
	if risk > 1.0 {
		risk = 1.0
	}
	return risk
}

// RollbackAction derives the inverse of an intervention where one exists.
// Never invoked by the controller itself; exposed for recovery workflows.
func (g *Guardrails) RollbackAction(iv domain.Intervention) *domain.Intervention {
	switch iv.ActionKey {
	case domain.ActionReroute:
		return &domain.Intervention{
			Type:        domain.ActionTypeRollback,
			ActionKey:   domain.ActionReroute,
			Description: fmt.Sprintf("Rollback: route traffic back to %s", paramString(iv.Params, "from")),
			Params: map[string]any{
				"from":       paramString(iv.Params, "to"),
				"to":         paramString(iv.Params, "from"),
				"percentage": paramInt(iv.Params, "percentage", 100),
			},
		}
	case domain.ActionRetryConfigAdjust:
		return &domain.Intervention{
			Type:        domain.ActionTypeRollback,
			ActionKey:   domain.ActionRetryConfigAdjust,
			Description: "Rollback: reset retry config to defaults",
			Params: map[string]any{
				"max_retries":        2,
				"backoff_multiplier": 1.0,
			},
		}
	}
	return nil
}

// RecordAutoApproved feeds the rate limiter. Only executed auto-approved
// actions count toward the window.
func (g *Guardrails) RecordAutoApproved() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recentActions = append(g.recentActions, g.now())
}

func (g *Guardrails) rateLimited() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.rateWindow)
	kept := g.recentActions[:0]
	for _, t := range g.recentActions {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.recentActions = kept
	return len(g.recentActions) >= g.maxActionsPerWindow
}

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

func paramInt(params map[string]any, key string, defaultVal int) int {
	if params == nil {
		return defaultVal
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}

func paramFloat(params map[string]any, key string, defaultVal float64) float64 {
	if params == nil {
		return defaultVal
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultVal
}

func paramBool(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	b, _ := params[key].(bool)
	return b
}
