package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

type SSEEvent string

const (
	SSEEventAgentThought     SSEEvent = "thought"
	SSEEventIntervention     SSEEvent = "intervention"
	SSEEventApprovalRequired SSEEvent = "approval_required"
	SSEEventMetricsUpdate    SSEEvent = "metrics"
	SSEEventBankHealth       SSEEvent = "banks"
	SSEEventScenarioTrigger  SSEEvent = "scenario_triggered"
)

// OpsChannel is the single broadcast channel every dashboard client joins.
const OpsChannel = "ops"

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

type SSEClient struct {
	ID       uuid.UUID
	Outbound chan SSEMessage
	done     chan struct{}
}

// SSEHub fans operational events out to every connected dashboard.
type SSEHub struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	clients map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:  log.With("component", "SSEHub"),
		clients: make(map[*SSEClient]bool),
	}
}

func (hub *SSEHub) NewSSEClient() *SSEClient {
	client := &SSEClient{
		ID:       uuid.New(),
		Outbound: make(chan SSEMessage, 32),
		done:     make(chan struct{}),
	}
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()

	hub.logger.Debug("SSE client connected", "clientID", client.ID)
	return client
}

func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		msg.Channel = OpsChannel
	}
	for c := range hub.clients {
		select {
		case c.Outbound <- msg:
		default:
			hub.logger.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID)
		}
	}
}

// ClientCount reports connected dashboards.
func (hub *SSEHub) ClientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("SSE client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			jsonBytes, err := json.Marshal(msg)
			if err != nil {
				hub.logger.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\n", msg.Event)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", string(jsonBytes))
			flusher.Flush()
		}
	}
}

func (hub *SSEHub) CloseClient(client *SSEClient) {
	hub.mu.Lock()
	delete(hub.clients, client)
	hub.mu.Unlock()

	close(client.done)
	close(client.Outbound)
	hub.logger.Debug("SSE client disconnected", "clientID", client.ID)
}
