package policy

import (
	"sync"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// Canonical action keys the learner scores. Every catalog action maps onto
// one of these four arms.
const (
	ActionMonitor = "monitor"
	ActionRetry   = "retry"
	ActionReroute = "reroute"
	ActionAlert   = "alert"
)

// Actions enumerates the arms in one-hot encoding order.
var Actions = []string{ActionMonitor, ActionRetry, ActionReroute, ActionAlert}

// Learner predicts the expected reward of an action in a context and learns
// from observed rewards, one online step per outcome.
type Learner interface {
	// PredictUtility returns the model's point prediction and whether the
	// model has been trained at all. Callers must not treat an untrained
	// zero as a real score.
	PredictUtility(ctx domain.PolicyContext, action string) (float64, bool)
	// UpdatePolicy performs a single incremental gradient step toward the
	// observed reward. Safe for concurrent callers.
	UpdatePolicy(ctx domain.PolicyContext, action string, reward float64)
}

// LinearLearner is an online linear regression over
// [risk_score, bank_health/100, one-hot(action)]. No replay buffer: each
// update is one SGD step, which assumes moderate reward noise and slow
// context drift.
type LinearLearner struct {
	mu           sync.Mutex
	log          *logger.Logger
	weights      []float64
	bias         float64
	learningRate float64
	trained      bool
}

func NewLinearLearner(log *logger.Logger) *LinearLearner {
	return &LinearLearner{
		log:          log.With("service", "PolicyLearner"),
		weights:      make([]float64, 2+len(Actions)),
		learningRate: 0.01,
	}
}

func encode(ctx domain.PolicyContext, action string) []float64 {
	features := make([]float64, 2+len(Actions))
	features[0] = ctx.RiskScore
	features[1] = ctx.BankHealthScore / 100.0
	for i, a := range Actions {
		if a == action {
			features[2+i] = 1
			break
		}
	}
	return features
}

func (l *LinearLearner) predict(features []float64) float64 {
	sum := l.bias
	for i, w := range l.weights {
		sum += w * features[i]
	}
	return sum
}

func (l *LinearLearner) PredictUtility(ctx domain.PolicyContext, action string) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.trained {
		return 0, false
	}
	return l.predict(encode(ctx, action)), true
}

func (l *LinearLearner) UpdatePolicy(ctx domain.PolicyContext, action string, reward float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	features := encode(ctx, action)
	residual := l.predict(features) - reward
	for i := range l.weights {
		l.weights[i] -= l.learningRate * residual * features[i]
	}
	l.bias -= l.learningRate * residual
	l.trained = true

	l.log.Debug("policy updated", "action", action, "reward", reward)
}
