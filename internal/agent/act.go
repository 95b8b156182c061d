package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// act executes the staged intervention and records the result. Execution
// failure is an outcome, not a cycle error: the Learn stage punishes it.
func (c *Controller) act(ctx context.Context, st *cycleState) update {
	iv := st.intervention
	if iv.ID == "" {
		iv.ID = c.history.NextID()
	}
	iv.Timestamp = time.Now().UTC()

	err := c.execute(ctx, *iv)
	iv.Success = err == nil
	if err != nil {
		c.log.Error("intervention execution failed", "id", iv.ID, "action", iv.ActionKey, "error", err)
	}

	if !st.requiresApproval && iv.ActionKey != domain.ActionContinueMonitoring {
		c.guardrails.RecordAutoApproved()
	}

	c.history.Append(*iv)
	c.notifier.Intervention(*iv)
	c.think(domain.StageAct, fmt.Sprintf("Executed %s (success=%t): %s", iv.ActionKey, iv.Success, iv.Description))

	return update{outcome: &outcome{success: iv.Success}}
}

func (c *Controller) execute(ctx context.Context, iv domain.Intervention) error {
	switch iv.ActionKey {
	case domain.ActionMonitorIncrease, domain.ActionContinueMonitoring:
		// Observation-only: the loop itself is the monitor.
		return nil
	case domain.ActionRetryConfigAdjust:
		return c.actions.AdjustRetryConfig(ctx,
			paramInt(iv.Params, "max_retries", 2),
			paramFloat(iv.Params, "backoff_multiplier", 1.0))
	case domain.ActionReroute:
		return c.actions.SwitchGateway(ctx,
			paramString(iv.Params, "from"),
			paramString(iv.Params, "to"),
			paramInt(iv.Params, "percentage", 100))
	case domain.ActionAlert:
		return c.actions.SendAlert(ctx,
			paramString(iv.Params, "message"),
			domain.AlertSeverity(paramString(iv.Params, "severity")))
	case domain.ActionSuppress:
		minutes := paramInt(iv.Params, "duration_minutes", 30)
		return c.actions.SuppressPaymentMethod(ctx,
			paramString(iv.Params, "method"),
			time.Duration(minutes)*time.Minute)
	default:
		return fmt.Errorf("no executor for action %q", iv.ActionKey)
	}
}
