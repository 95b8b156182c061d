package domain

import "time"

type Stage string

const (
	StageObserve Stage = "observe"
	StageReason  Stage = "reason"
	StageDecide  Stage = "decide"
	StageAct     Stage = "act"
	StageLearn   Stage = "learn"
)

type ActionType string

const (
	ActionTypeMonitor  ActionType = "monitor"
	ActionTypeRetry    ActionType = "retry"
	ActionTypeReroute  ActionType = "reroute"
	ActionTypeSuppress ActionType = "suppress"
	ActionTypeAlert    ActionType = "alert"
	ActionTypeRollback ActionType = "rollback"
)

// ActionKey identifies a concrete executable action. The candidate catalog
// only ever emits the first five; suppress and emergency-shutdown exist so
// guardrails can classify interventions submitted by external workflows.
type ActionKey string

const (
	ActionMonitorIncrease    ActionKey = "monitor-increase"
	ActionContinueMonitoring ActionKey = "continue-monitoring"
	ActionRetryConfigAdjust  ActionKey = "retry-config-adjust"
	ActionReroute            ActionKey = "reroute"
	ActionAlert              ActionKey = "alert"
	ActionSuppress           ActionKey = "suppress"
	ActionEmergencyShutdown  ActionKey = "emergency-shutdown"
)

type HypothesisSource string

const (
	SourceOracle   HypothesisSource = "oracle"
	SourceFallback HypothesisSource = "fallback"
)

// Hypothesis is the Reason stage's risk assessment. RiskScore is always
// clamped to [0,1].
type Hypothesis struct {
	Text      string           `json:"text"`
	RiskScore float64          `json:"risk_score"`
	Source    HypothesisSource `json:"source"`
}

// CandidateAction is one entry of the fixed action catalog, generated fresh
// each Decide stage with parameters computed from the current snapshot.
type CandidateAction struct {
	ID          string         `json:"id"`
	Type        ActionType     `json:"type"`
	ActionKey   ActionKey      `json:"action_key"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params"`
}

// PolicyContext is the situational feature vector the policy learner scores
// actions against. Captured at Decide time and reused verbatim at Learn time.
type PolicyContext struct {
	RiskScore       float64 `json:"risk_score"`        // [0,1]
	BankHealthScore float64 `json:"bank_health_score"` // [0,100]
}

// Intervention is the record of a corrective action taken (or deferred).
type Intervention struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Type             ActionType     `json:"type"`
	ActionKey        ActionKey      `json:"action_key"`
	Description      string         `json:"description"`
	Params           map[string]any `json:"params,omitempty"`
	Success          bool           `json:"success"`
	RequiresApproval bool           `json:"requires_approval"`
	AutoApprove      bool           `json:"auto_approve"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PendingApproval is an intervention parked for a human decision.
type PendingApproval struct {
	InterventionID string         `json:"intervention_id"`
	Intervention   Intervention   `json:"intervention"`
	Status         ApprovalStatus `json:"status"`
	RiskScore      float64        `json:"risk_score"`
	Hypothesis     string         `json:"hypothesis"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MemoryRecord is a stored association between an anomaly pattern and the
// intervention that resolved it.
type MemoryRecord struct {
	ID             string       `json:"id"`
	AnomalyPattern []Anomaly    `json:"anomaly_pattern"`
	Hypothesis     string       `json:"hypothesis"`
	Intervention   Intervention `json:"intervention"`
	Outcome        string       `json:"outcome"` // success, failure, partial
	Improvement    float64      `json:"improvement"`
	StoredAt       time.Time    `json:"stored_at"`
}

// AgentThought is a free-text trace of the agent's reasoning, emitted per
// stage for the operator dashboard.
type AgentThought struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
	Content   string    `json:"content"`
}

// BankSummary is the compact bank view included in the oracle context bundle.
type BankSummary struct {
	Name        string     `json:"name"`
	Status      BankStatus `json:"status"`
	SuccessRate float64    `json:"success_rate"`
}

// ContextBundle is the bounded context handed to the reasoning oracle.
type ContextBundle struct {
	Metrics      SystemMetrics                `json:"metrics"`
	Anomalies    []Anomaly                    `json:"anomalies"`      // at most 5
	Banks        []BankSummary                `json:"bank_health"`    // at most 5
	RecentErrors []ErrorLog                   `json:"recent_errors"`  // at most 10
	Predictions  map[string]FailurePrediction `json:"ml_predictions"` // per bank
	Memories     []string                     `json:"relevant_memories"`
}

// OracleResult is the structured outcome of a reasoning-oracle call.
type OracleResult struct {
	Hypothesis     string   `json:"hypothesis"`
	Severity       float64  `json:"severity"`
	Patterns       []string `json:"patterns"`
	MemoryAnalysis string   `json:"memory_analysis"`
}
