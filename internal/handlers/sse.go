package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stitchfin/payops-agent/internal/sse"
)

type SSEHandler struct {
	hub *sse.SSEHub
}

func NewSSEHandler(hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// GET /sse/stream
func (h *SSEHandler) Stream(c *gin.Context) {
	client := h.hub.NewSSEClient()
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
