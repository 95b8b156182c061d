package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// coldStartRiskThreshold decides between retry and monitor before the policy
// model has any signal.
const coldStartRiskThreshold = 0.6

// decide picks one action from the candidate catalog, applies dedupe and
// guardrails, and either stages it for execution or parks it for approval.
func (c *Controller) decide(ctx context.Context, st *cycleState) update {
	pctx := domain.PolicyContext{
		RiskScore:       st.hypothesis.RiskScore,
		BankHealthScore: averageBankHealth(st.snapshot.BankHealth),
	}

	candidates := generateCandidates(st.snapshot, st.hypothesis)
	chosen := c.selectCandidate(candidates, pctx)

	// A reroute with no viable target is worse than escalating.
	if chosen.ActionKey == domain.ActionReroute && paramBool(chosen.Params, "no_healthy_alternative") {
		c.think(domain.StageDecide, "No healthy reroute target; escalating instead")
		chosen = findCandidate(candidates, domain.ActionAlert)
	}

	// An equivalent intervention already waiting on a human means acting
	// again would double-apply. Fall back to watching.
	if c.isDuplicatePending(chosen) {
		c.think(domain.StageDecide, "Equivalent intervention already pending approval; continuing to monitor")
		chosen = domain.CandidateAction{
			ID:          "continue",
			Type:        domain.ActionTypeMonitor,
			ActionKey:   domain.ActionContinueMonitoring,
			Description: "Continue monitoring while a pending intervention awaits approval",
			Params:      map[string]any{},
		}
	}

	iv := &domain.Intervention{
		Timestamp:   time.Now().UTC(),
		Type:        chosen.Type,
		ActionKey:   chosen.ActionKey,
		Description: chosen.Description,
		Params:      chosen.Params,
	}
	arm := policyKeyForAction(iv.ActionKey)

	if ok, why := c.guardrails.ValidateAction(*iv); !ok {
		c.log.Warn("intervention failed validation", "action", iv.ActionKey, "reason", why)
		c.think(domain.StageDecide, "Discarded invalid intervention: "+why)
		rejected := true
		return update{rejected: &rejected, policyAction: &arm, policyContext: &pctx}
	}

	if c.guardrails.RequiresApproval(*iv, st.hypothesis.RiskScore) {
		iv.ID = c.history.NextID()
		iv.RequiresApproval = true

		deferred := true
		requires := true
		u := update{
			intervention:     iv,
			policyAction:     &arm,
			policyContext:    &pctx,
			requiresApproval: &requires,
			deferred:         &deferred,
		}
		st.apply(u)

		approval := domain.PendingApproval{
			InterventionID: iv.ID,
			Intervention:   *iv,
			Status:         domain.ApprovalPending,
			RiskScore:      st.hypothesis.RiskScore,
			Hypothesis:     st.hypothesis.Text,
			CreatedAt:      time.Now().UTC(),
		}
		c.pending.Add(approval, *st)
		c.notifier.ApprovalRequired(approval)
		c.think(domain.StageDecide, fmt.Sprintf("Deferred for approval (risk %.2f): %s", st.hypothesis.RiskScore, iv.Description))
		return update{}
	}

	c.think(domain.StageDecide, "Selected action: "+iv.Description)
	return update{intervention: iv, policyAction: &arm, policyContext: &pctx}
}

// selectCandidate scores the catalog with the policy learner and keeps the
// best strictly positive utility. Untrained models and uniformly unpromising
// scores fall back to a fixed heuristic.
func (c *Controller) selectCandidate(candidates []domain.CandidateAction, pctx domain.PolicyContext) domain.CandidateAction {
	var (
		best        *domain.CandidateAction
		bestUtility float64
	)
	for i := range candidates {
		cand := &candidates[i]
		utility, trained := c.learner.PredictUtility(pctx, policyKeyForAction(cand.ActionKey))
		if !trained {
			continue
		}
		if utility > 0 && (best == nil || utility > bestUtility) {
			best, bestUtility = cand, utility
		}
	}
	if best != nil {
		c.log.Debug("policy selected action", "action", best.ActionKey, "utility", bestUtility)
		return *best
	}

	if pctx.RiskScore > coldStartRiskThreshold {
		return findCandidate(candidates, domain.ActionRetryConfigAdjust)
	}
	return findCandidate(candidates, domain.ActionMonitorIncrease)
}

func findCandidate(candidates []domain.CandidateAction, key domain.ActionKey) domain.CandidateAction {
	for _, cand := range candidates {
		if cand.ActionKey == key {
			return cand
		}
	}
	// The catalog always carries monitor; reaching here means a programming
	// error upstream, so degrade to the first entry.
	return candidates[0]
}

// isDuplicatePending reports whether an equivalent intervention (same action
// key and parameters) is already parked in the approval queue.
func (c *Controller) isDuplicatePending(cand domain.CandidateAction) bool {
	key := dedupeKey(cand.ActionKey, cand.Params)
	for _, p := range c.pending.Pending() {
		if dedupeKey(p.Intervention.ActionKey, p.Intervention.Params) == key {
			return true
		}
	}
	return false
}

func dedupeKey(action domain.ActionKey, params map[string]any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", params))
	}
	return string(action) + ":" + string(raw)
}

func averageBankHealth(banks []domain.BankHealth) float64 {
	if len(banks) == 0 {
		return 100
	}
	var sum float64
	for _, b := range banks {
		sum += b.SuccessRate
	}
	return sum / float64(len(banks))
}
