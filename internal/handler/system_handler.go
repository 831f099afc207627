package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vigilexam/vigil-backend/internal/response"
)

// SystemHandler handles liveness endpoints.
type SystemHandler struct{}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
