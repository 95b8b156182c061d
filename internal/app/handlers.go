package app

import (
	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/handlers"
	"github.com/stitchfin/payops-agent/internal/server"
	"github.com/stitchfin/payops-agent/internal/sse"
)

type Handlers struct {
	Agent     *handlers.AgentHandler
	Simulator *handlers.SimulatorHandler
	SSE       *handlers.SSEHandler
}

func wireHandlers(svc Services, hub *sse.SSEHub) Handlers {
	return Handlers{
		Agent:     handlers.NewAgentHandler(svc.Controller, svc.Snapshots),
		Simulator: handlers.NewSimulatorHandler(svc.Simulator),
		SSE:       handlers.NewSSEHandler(hub),
	}
}

func wireRouter(h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AgentHandler:     h.Agent,
		SimulatorHandler: h.Simulator,
		SSEHandler:       h.SSE,
	})
}
