package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/agent"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
	"github.com/stitchfin/payops-agent/internal/policy"
	"github.com/stitchfin/payops-agent/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	snapshots := services.NewSnapshotService(log, nil)
	predictor := services.NewPredictorService(log, snapshots)
	memory := services.NewMemoryService(log, nil)
	oracle := services.NewOracleService(log, nil, 0)
	actions := services.NewActionService(log, nil, nil)

	ctrl := agent.NewController(
		log, snapshots, predictor, memory, oracle, actions,
		policy.NewLinearLearner(log), agent.NewGuardrails(), nil,
		agent.Options{},
	)

	h := NewAgentHandler(ctrl, snapshots)
	router := gin.New()
	router.GET("/api/metrics", h.GetMetrics)
	router.GET("/api/interventions/pending", h.GetPending)
	router.POST("/api/interventions/:id/approve", h.Approve)
	router.POST("/api/interventions/:id/reject", h.Reject)
	return router
}

func TestGetMetrics_OK(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApprove_UnknownInterventionReturns404(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interventions/int-000042/approve", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReject_UnknownInterventionReturns404(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interventions/int-000042/reject", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetPending_EmptyQueue(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/interventions/pending", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
