package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/handlers"
)

type RouterConfig struct {
	AgentHandler     *handlers.AgentHandler
	SimulatorHandler *handlers.SimulatorHandler
	SSEHandler       *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// SSE
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	api := router.Group("/api")
	{
		// Observability
		api.GET("/metrics", cfg.AgentHandler.GetMetrics)
		api.GET("/banks", cfg.AgentHandler.GetBanks)
		api.GET("/errors", cfg.AgentHandler.GetErrors)

		// Interventions
		api.GET("/interventions", cfg.AgentHandler.GetInterventions)
		api.GET("/interventions/pending", cfg.AgentHandler.GetPending)
		api.POST("/interventions/:id/approve", cfg.AgentHandler.Approve)
		api.POST("/interventions/:id/reject", cfg.AgentHandler.Reject)

		// Simulator
		api.GET("/simulator/scenarios", cfg.SimulatorHandler.ListScenarios)
		api.POST("/simulator/start", cfg.SimulatorHandler.Start)
		api.POST("/simulator/stop", cfg.SimulatorHandler.Stop)
		api.POST("/simulator/scenario/:name", cfg.SimulatorHandler.TriggerScenario)
		api.POST("/simulator/custom", cfg.SimulatorHandler.TriggerCustom)
	}

	return router
}
