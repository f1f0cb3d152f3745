package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/api/dto"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
)

// HealthHandler handles liveness and diagnostic health requests.
type HealthHandler struct {
	agent   *agent.Agent
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(a *agent.Agent, version string) *HealthHandler {
	return &HealthHandler{agent: a, version: version}
}

// Live godoc
// @Summary      Health check
// @Description  Returns server health and version
// @Tags         global
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "healthy",
		Version: h.version,
	})
}

// Agent godoc
// @Summary      Agent health information
// @Description  Returns version, build, platform, environment and capabilities
// @Tags         agent
// @Produce      json
// @Success      200 {object} dto.AgentHealthResponse
// @Router       /api/v1/agent/health [get]
func (h *HealthHandler) Agent(c *gin.Context) {
	c.JSON(http.StatusOK, h.agent.HealthInformation(middleware.TraceID(c)))
}
