package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/agent"
	"github.com/stitchfin/payops-agent/internal/services"
)

type AgentHandler struct {
	ctrl      *agent.Controller
	snapshots services.SnapshotService
}

func NewAgentHandler(ctrl *agent.Controller, snapshots services.SnapshotService) *AgentHandler {
	return &AgentHandler{ctrl: ctrl, snapshots: snapshots}
}

// GET /api/metrics
func (h *AgentHandler) GetMetrics(c *gin.Context) {
	metrics, err := h.snapshots.GetMetrics(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "metrics_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"metrics": metrics})
}

// GET /api/banks
func (h *AgentHandler) GetBanks(c *gin.Context) {
	banks, err := h.snapshots.GetBankHealth(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "banks_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"banks": banks})
}

// GET /api/errors
func (h *AgentHandler) GetErrors(c *gin.Context) {
	logs, err := h.snapshots.GetErrorLogs(c.Request.Context(), 20)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "errors_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"errors": logs})
}

// GET /api/interventions
func (h *AgentHandler) GetInterventions(c *gin.Context) {
	RespondOK(c, gin.H{"interventions": h.ctrl.RecentInterventions(20)})
}

// GET /api/interventions/pending
func (h *AgentHandler) GetPending(c *gin.Context) {
	RespondOK(c, gin.H{"pending": h.ctrl.Pending()})
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// POST /api/interventions/:id/approve
func (h *AgentHandler) Approve(c *gin.Context) {
	id := c.Param("id")

	var req approveRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	if req.ApprovedBy == "" {
		req.ApprovedBy = "operator"
	}

	if !h.ctrl.ApproveIntervention(c.Request.Context(), id, req.ApprovedBy) {
		RespondError(c, http.StatusNotFound, "intervention_not_found",
			fmt.Errorf("no pending intervention %q", id))
		return
	}
	RespondOK(c, gin.H{"approved": id})
}

// POST /api/interventions/:id/reject
func (h *AgentHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if !h.ctrl.RejectIntervention(id) {
		RespondError(c, http.StatusNotFound, "intervention_not_found",
			fmt.Errorf("no pending intervention %q", id))
		return
	}
	RespondOK(c, gin.H{"rejected": id})
}
