package agent

import (
	"context"
	"sync"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
	"github.com/stitchfin/payops-agent/internal/policy"
)

// Options tune the control loop. Zero values take the production defaults.
type Options struct {
	LoopInterval time.Duration
	ErrorBackoff time.Duration
	RewardGrace  time.Duration
}

func (o Options) withDefaults() Options {
	if o.LoopInterval <= 0 {
		o.LoopInterval = 5 * time.Second
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = 10 * time.Second
	}
	// RewardGrace may legitimately be zero in tests.
	if o.RewardGrace < 0 {
		o.RewardGrace = 0
	}
	return o
}

// Controller runs the observe/reason/decide/act/learn loop and owns the
// approval queue and intervention history.
type Controller struct {
	log        *logger.Logger
	snapshots  SnapshotProvider
	predictor  FailurePredictor
	memory     Memory
	oracle     Oracle
	actions    Actions
	learner    policy.Learner
	guardrails *Guardrails
	notifier   Notifier
	pending    *PendingStore
	history    *HistoryStore
	opts       Options

	// cycleMu serializes decision cycles against approval-triggered
	// executions so two interventions never act concurrently.
	cycleMu sync.Mutex
}

func NewController(
	log *logger.Logger,
	snapshots SnapshotProvider,
	predictor FailurePredictor,
	memory Memory,
	oracle Oracle,
	actions Actions,
	learner policy.Learner,
	guardrails *Guardrails,
	notifier Notifier,
	opts Options,
) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Controller{
		log:        log.With("service", "AgentController"),
		snapshots:  snapshots,
		predictor:  predictor,
		memory:     memory,
		oracle:     oracle,
		actions:    actions,
		learner:    learner,
		guardrails: guardrails,
		notifier:   notifier,
		pending:    NewPendingStore(),
		history:    NewHistoryStore(200),
		opts:       opts.withDefaults(),
	}
}

// RunLoop runs decision cycles until the context is canceled. A panic inside
// one cycle is contained; the loop backs off and continues.
func (c *Controller) RunLoop(ctx context.Context) error {
	c.log.Info("agent loop starting", "interval", c.opts.LoopInterval)
	for {
		err := c.safeCycle(ctx)
		delay := c.opts.LoopInterval
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("agent loop stopping")
				return ctx.Err()
			}
			c.log.Error("decision cycle failed", "error", err)
			delay = c.opts.ErrorBackoff
		}
		select {
		case <-ctx.Done():
			c.log.Info("agent loop stopping")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Controller) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("decision cycle panicked", "panic", r)
		}
	}()
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.runCycle(ctx)
}

// runCycle drives one pass through the stage machine. Approvals still
// waiting from earlier cycles are re-announced so a reconnecting operator
// dashboard cannot miss them.
func (c *Controller) runCycle(ctx context.Context) error {
	for _, p := range c.pending.Pending() {
		c.notifier.ApprovalRequired(p)
	}

	st := &cycleState{}
	stage := domain.StageObserve
	for {
		var u update
		var err error
		switch stage {
		case domain.StageObserve:
			u, err = c.observe(ctx, st)
		case domain.StageReason:
			u = c.reason(ctx, st)
		case domain.StageDecide:
			u = c.decide(ctx, st)
		case domain.StageAct:
			u = c.act(ctx, st)
		case domain.StageLearn:
			c.learn(ctx, st)
			return nil
		}
		if err != nil {
			return err
		}
		st.apply(u)
		stage = nextStage(stage, st)
	}
}

// ApproveIntervention executes a deferred intervention and runs the learning
// step on the cycle state captured when it was parked. Returns false when no
// pending intervention has that ID.
func (c *Controller) ApproveIntervention(ctx context.Context, interventionID, approvedBy string) bool {
	entry, ok := c.pending.Remove(interventionID)
	if !ok {
		return false
	}

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	st := entry.state
	st.intervention.ApprovedBy = approvedBy
	c.log.Info("intervention approved", "id", interventionID, "approved_by", approvedBy)

	st.apply(c.act(ctx, &st))
	c.learn(ctx, &st)
	return true
}

// RejectIntervention discards a deferred intervention. The rejected record is
// appended to history (success=false) so the timeline stays complete.
func (c *Controller) RejectIntervention(interventionID string) bool {
	entry, ok := c.pending.Remove(interventionID)
	if !ok {
		return false
	}

	iv := *entry.state.intervention
	iv.Success = false
	c.history.Append(iv)
	c.log.Info("intervention rejected", "id", interventionID, "action", iv.ActionKey)
	c.think(domain.StageDecide, "Operator rejected intervention: "+iv.Description)
	return true
}

// Pending returns the approval queue, oldest first.
func (c *Controller) Pending() []domain.PendingApproval {
	return c.pending.Pending()
}

// RecentInterventions returns up to limit history records, newest first.
func (c *Controller) RecentInterventions(limit int) []domain.Intervention {
	return c.history.Recent(limit)
}

func (c *Controller) think(stage domain.Stage, content string) {
	c.notifier.Thought(domain.AgentThought{
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Content:   content,
	})
}

// policyKeyForAction collapses catalog action keys onto the learner's arms.
func policyKeyForAction(key domain.ActionKey) string {
	switch key {
	case domain.ActionRetryConfigAdjust:
		return policy.ActionRetry
	case domain.ActionReroute:
		return policy.ActionReroute
	case domain.ActionAlert:
		return policy.ActionAlert
	default:
		return policy.ActionMonitor
	}
}

// actionCosts penalize disruptive actions in the reward signal, keyed by
// policy arm.
var actionCosts = map[string]float64{
	policy.ActionMonitor: 0,
	policy.ActionRetry:   5,
	policy.ActionAlert:   10,
	policy.ActionReroute: 20,
}
