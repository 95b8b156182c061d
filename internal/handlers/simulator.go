package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/services"
)

type SimulatorHandler struct {
	sim services.SimulatorService
}

func NewSimulatorHandler(sim services.SimulatorService) *SimulatorHandler {
	return &SimulatorHandler{sim: sim}
}

// GET /api/simulator/scenarios
func (h *SimulatorHandler) ListScenarios(c *gin.Context) {
	scenarios := h.sim.Scenarios()
	out := make([]gin.H, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, gin.H{
			"name":        sc.Name,
			"description": sc.Description,
			"duration":    sc.Duration.String(),
		})
	}
	RespondOK(c, gin.H{"scenarios": out, "running": h.sim.Running()})
}

// POST /api/simulator/start
func (h *SimulatorHandler) Start(c *gin.Context) {
	h.sim.Start()
	RespondOK(c, gin.H{"running": true})
}

// POST /api/simulator/stop
func (h *SimulatorHandler) Stop(c *gin.Context) {
	h.sim.Stop()
	RespondOK(c, gin.H{"running": false})
}

// POST /api/simulator/scenario/:name
func (h *SimulatorHandler) TriggerScenario(c *gin.Context) {
	name := c.Param("name")
	if err := h.sim.TriggerScenario(name); err != nil {
		RespondError(c, http.StatusNotFound, "scenario_not_found", err)
		return
	}
	RespondOK(c, gin.H{"triggered": name})
}

type customScenarioRequest struct {
	Name            string  `json:"name"`
	DurationSeconds int     `json:"duration_seconds"`
	Bank            string  `json:"bank"`
	SuccessRate     float64 `json:"success_rate"`
	LatencyMS       float64 `json:"latency_ms"`
	ErrorCode       string  `json:"error_code"`
}

// POST /api/simulator/custom
func (h *SimulatorHandler) TriggerCustom(c *gin.Context) {
	var req customScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_scenario", err)
		return
	}
	if req.SuccessRate < 0 || req.SuccessRate > 100 {
		RespondError(c, http.StatusBadRequest, "invalid_scenario",
			fmt.Errorf("success_rate must be between 0 and 100"))
		return
	}
	if req.Name == "" {
		req.Name = "custom"
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 60
	}

	h.sim.TriggerCustom(services.Scenario{
		Name:     req.Name,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
		Effects: []services.ScenarioEffect{{
			Bank:        req.Bank,
			SuccessRate: req.SuccessRate,
			LatencyMS:   req.LatencyMS,
			ErrorCode:   req.ErrorCode,
		}},
	})
	RespondOK(c, gin.H{"triggered": req.Name})
}
