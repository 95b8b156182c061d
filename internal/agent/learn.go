package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stitchfin/payops-agent/internal/domain"
)

const (
	executionFailurePenalty = -50.0
	memoryImprovementBar    = 5.0
)

// learn computes the reward for an executed intervention, feeds the policy
// learner, and archives notable successes in long-term memory. Cycles that
// acted on nothing close without a policy update.
func (c *Controller) learn(ctx context.Context, st *cycleState) {
	if st.intervention == nil || st.outcome == nil {
		c.think(domain.StageLearn, "Cycle complete; nothing to learn from")
		return
	}

	reward, gain := c.measureReward(ctx, st)
	c.learner.UpdatePolicy(st.policyContext, st.policyAction, reward)

	if st.outcome.success && gain > memoryImprovementBar {
		record := domain.MemoryRecord{
			ID:             uuid.NewString(),
			AnomalyPattern: st.snapshot.Anomalies,
			Hypothesis:     st.hypothesis.Text,
			Intervention:   *st.intervention,
			Outcome:        "success",
			Improvement:    gain,
			StoredAt:       time.Now().UTC(),
		}
		if err := c.memory.StoreMemory(ctx, record); err != nil {
			c.log.Warn("memory store failed", "error", err)
		}
	}

	c.think(domain.StageLearn, fmt.Sprintf(
		"Reward %.2f for %s (success-rate delta %.2f)", reward, st.policyAction, gain))
}

// measureReward waits out the grace period, re-reads the metrics and scores
// the intervention: improvement pays, latency regressions and disruptive
// actions cost. A failed execution pays a flat penalty on top of whatever
// the metrics did, so a failure during a slide scores worse than a failure
// while stable.
func (c *Controller) measureReward(ctx context.Context, st *cycleState) (reward, gain float64) {
	if c.opts.RewardGrace > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.opts.RewardGrace):
		}
	}

	before := st.snapshot.Metrics
	after, err := c.snapshots.GetMetrics(ctx)
	if err != nil {
		c.log.Warn("post-action metrics unavailable, assuming no change", "error", err)
		after = before
	}

	gain = after.SuccessRate - before.SuccessRate
	latencyPenalty := after.AvgLatency - before.AvgLatency
	if latencyPenalty < 0 {
		latencyPenalty = 0
	}

	reward = 2*gain - latencyPenalty/10 - actionCosts[st.policyAction]
	if !st.outcome.success {
		reward += executionFailurePenalty
	}
	return reward, gain
}
