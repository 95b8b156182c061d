package services

import (
	"context"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/sse"
)

// OpsNotifier pushes agent and telemetry events onto the dashboard stream.
// Satisfies the controller's notifier dependency.
type OpsNotifier interface {
	Thought(t domain.AgentThought)
	Intervention(record domain.Intervention)
	ApprovalRequired(p domain.PendingApproval)

	Metrics(m domain.SystemMetrics)
	Banks(banks []domain.BankHealth)
	ScenarioTriggered(name string)
}

type opsNotifier struct {
	emit SSEEmitter
}

func NewOpsNotifier(emit SSEEmitter) OpsNotifier {
	return &opsNotifier{emit: emit}
}

func (n *opsNotifier) send(event sse.SSEEvent, data any) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.OpsChannel,
		Event:   event,
		Data:    data,
	})
}

func (n *opsNotifier) Thought(t domain.AgentThought) {
	n.send(sse.SSEEventAgentThought, t)
}

func (n *opsNotifier) Intervention(record domain.Intervention) {
	n.send(sse.SSEEventIntervention, record)
}

func (n *opsNotifier) ApprovalRequired(p domain.PendingApproval) {
	n.send(sse.SSEEventApprovalRequired, p)
}

func (n *opsNotifier) Metrics(m domain.SystemMetrics) {
	n.send(sse.SSEEventMetricsUpdate, m)
}

func (n *opsNotifier) Banks(banks []domain.BankHealth) {
	n.send(sse.SSEEventBankHealth, map[string]any{"banks": banks})
}

func (n *opsNotifier) ScenarioTriggered(name string) {
	n.send(sse.SSEEventScenarioTrigger, map[string]any{"scenario": name})
}
