package agent

import (
	"github.com/stitchfin/payops-agent/internal/domain"
)

// cycleState is the mutable context threaded through one decision cycle.
// Stages never write it directly: each stage returns an update and the
// controller merges it before advancing.
type cycleState struct {
	snapshot    domain.Snapshot
	hypothesis  domain.Hypothesis
	predictions map[string]domain.FailurePrediction

	intervention     *domain.Intervention
	policyAction     string
	policyContext    domain.PolicyContext
	requiresApproval bool
	deferred         bool // parked in the pending-approval store
	rejected         bool // failed structural validation

	outcome *outcome
}

type outcome struct {
	success bool
}

// update is a partial cycle-state delta. Nil fields are left untouched.
type update struct {
	snapshot         *domain.Snapshot
	hypothesis       *domain.Hypothesis
	predictions      map[string]domain.FailurePrediction
	intervention     *domain.Intervention
	policyAction     *string
	policyContext    *domain.PolicyContext
	requiresApproval *bool
	deferred         *bool
	rejected         *bool
	outcome          *outcome
}

func (st *cycleState) apply(u update) {
	if u.snapshot != nil {
		st.snapshot = *u.snapshot
	}
	if u.hypothesis != nil {
		st.hypothesis = *u.hypothesis
	}
	if u.predictions != nil {
		st.predictions = u.predictions
	}
	if u.intervention != nil {
		st.intervention = u.intervention
	}
	if u.policyAction != nil {
		st.policyAction = *u.policyAction
	}
	if u.policyContext != nil {
		st.policyContext = *u.policyContext
	}
	if u.requiresApproval != nil {
		st.requiresApproval = *u.requiresApproval
	}
	if u.deferred != nil {
		st.deferred = *u.deferred
	}
	if u.rejected != nil {
		st.rejected = *u.rejected
	}
	if u.outcome != nil {
		st.outcome = u.outcome
	}
}

// interventionThreshold is the risk bar above which the loop moves from
// Reason to Decide even without detected anomalies. Deliberately low: early
// intervention is cheaper than a missed incident.
const interventionThreshold = 0.15

// nextStage is the pure transition function of the stage machine.
func nextStage(current domain.Stage, st *cycleState) domain.Stage {
	switch current {
	case domain.StageObserve:
		return domain.StageReason
	case domain.StageReason:
		if len(st.snapshot.Anomalies) > 0 || st.hypothesis.RiskScore > interventionThreshold {
			return domain.StageDecide
		}
		return domain.StageLearn
	case domain.StageDecide:
		if st.intervention != nil && !st.requiresApproval && !st.deferred && !st.rejected {
			return domain.StageAct
		}
		return domain.StageLearn
	case domain.StageAct:
		return domain.StageLearn
	default:
		return domain.StageLearn
	}
}
