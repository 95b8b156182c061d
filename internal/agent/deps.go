package agent

import (
	"context"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
)

// SnapshotProvider supplies the observed system state. Implementations are
// expected to degrade to sensible defaults when their backing store is down;
// the controller treats returned errors as cycle failures.
type SnapshotProvider interface {
	GetMetrics(ctx context.Context) (domain.SystemMetrics, error)
	GetBankHealth(ctx context.Context) ([]domain.BankHealth, error)
	GetErrorLogs(ctx context.Context, limit int) ([]domain.ErrorLog, error)
	DetectAnomalies(metrics domain.SystemMetrics) []domain.Anomaly
}

// FailurePredictor exposes per-bank failure-risk estimates from the serving
// model.
type FailurePredictor interface {
	GetFailurePredictions(ctx context.Context) (map[string]domain.FailurePrediction, error)
}

// Memory is the agent's long-term pattern store.
type Memory interface {
	RecallSimilarPatterns(ctx context.Context, pattern []domain.Anomaly, limit int) ([]domain.MemoryRecord, error)
	StoreMemory(ctx context.Context, record domain.MemoryRecord) error
}

// Oracle turns a context bundle into a hypothesis. Implementations bound the
// call with their own timeout and return errors wrapping
// errors.ErrOracleTimeout or errors.ErrOracleParse from internal/pkg/errors.
type Oracle interface {
	ReasonAboutState(ctx context.Context, bundle domain.ContextBundle) (domain.OracleResult, error)
}

// Actions are the side-effecting executors. At-least-once execution with
// idempotent semantics is assumed of implementations; a nil error means the
// action took effect.
type Actions interface {
	SwitchGateway(ctx context.Context, fromBank, toBank string, percentage int) error
	AdjustRetryConfig(ctx context.Context, maxRetries int, backoffMultiplier float64) error
	SendAlert(ctx context.Context, message string, severity domain.AlertSeverity) error
	SuppressPaymentMethod(ctx context.Context, method string, duration time.Duration) error
}

// Notifier is the synchronous event sink the controller emits to. Delivery
// guarantees are the sink's concern, not the controller's.
type Notifier interface {
	Thought(t domain.AgentThought)
	Intervention(record domain.Intervention)
	ApprovalRequired(p domain.PendingApproval)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Thought(domain.AgentThought)            {}
func (NopNotifier) Intervention(domain.Intervention)       {}
func (NopNotifier) ApprovalRequired(domain.PendingApproval) {}
