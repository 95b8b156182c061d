package agent

import (
	"fmt"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// generateCandidates builds the fixed action catalog for one Decide pass.
// Parameters are computed fresh from the snapshot so a reroute always targets
// the currently worst bank.
func generateCandidates(snapshot domain.Snapshot, hypothesis domain.Hypothesis) []domain.CandidateAction {
	candidates := []domain.CandidateAction{
		{
			ID:          "monitor",
			Type:        domain.ActionTypeMonitor,
			ActionKey:   domain.ActionMonitorIncrease,
			Description: "Increase monitoring frequency and continue observing",
			Params:      map[string]any{"interval_seconds": 2},
		},
		{
			ID:          "retry",
			Type:        domain.ActionTypeRetry,
			ActionKey:   domain.ActionRetryConfigAdjust,
			Description: "Increase retry attempts with exponential backoff",
			Params: map[string]any{
				"max_retries":        5,
				"backoff_multiplier": 1.5,
			},
		},
	}

	params, desc := rerouteParams(snapshot.BankHealth)
	candidates = append(candidates, domain.CandidateAction{
		ID:          "reroute",
		Type:        domain.ActionTypeReroute,
		ActionKey:   domain.ActionReroute,
		Description: desc,
		Params:      params,
	})

	candidates = append(candidates, domain.CandidateAction{
		ID:          "alert",
		Type:        domain.ActionTypeAlert,
		ActionKey:   domain.ActionAlert,
		Description: "Escalate to the on-call payments engineer",
		Params: map[string]any{
			"message":  fmt.Sprintf("Agent assessment (risk %.2f): %s", hypothesis.RiskScore, hypothesis.Text),
			"severity": string(severityForRisk(hypothesis.RiskScore)),
		},
	})

	return candidates
}

// rerouteParams identifies the worst-performing bank and the best healthy
// alternative. The catalog always carries the reroute slot: when no viable
// target exists the payload is marked so the decision layer swaps in an
// alert instead.
func rerouteParams(banks []domain.BankHealth) (map[string]any, string) {
	if len(banks) == 0 {
		return noAlternativeParams(""), "No alternative routes known"
	}

	worst := banks[0]
	for _, b := range banks[1:] {
		if b.SuccessRate < worst.SuccessRate {
			worst = b
		}
	}

	// Prefer a genuinely healthy target; fall back to the best of the rest.
	var best *domain.BankHealth
	var bestAny *domain.BankHealth
	for i := range banks {
		b := &banks[i]
		if b.Name == worst.Name {
			continue
		}
		if bestAny == nil || b.SuccessRate > bestAny.SuccessRate {
			bestAny = b
		}
		if b.SuccessRate > 95 && (best == nil || b.SuccessRate > best.SuccessRate) {
			best = b
		}
	}
	if best == nil {
		best = bestAny
	}

	if best == nil || best.SuccessRate < 80 {
		return noAlternativeParams(worst.Name),
			fmt.Sprintf("No healthy alternative to %s available", worst.DisplayName)
	}

	params := map[string]any{
		"from":       worst.Name,
		"to":         best.Name,
		"percentage": 100,
	}
	desc := fmt.Sprintf("Reroute traffic from %s (%.1f%% success) to %s (%.1f%% success)",
		worst.DisplayName, worst.SuccessRate, best.DisplayName, best.SuccessRate)
	return params, desc
}

func noAlternativeParams(name string) map[string]any {
	return map[string]any{
		"from":                   name,
		"to":                     name,
		"percentage":             0,
		"no_healthy_alternative": true,
	}
}

func severityForRisk(risk float64) domain.AlertSeverity {
	switch {
	case risk >= 0.7:
		return domain.SeverityCritical
	case risk >= 0.4:
		return domain.SeverityWarning
	default:
		return domain.SeverityInfo
	}
}
