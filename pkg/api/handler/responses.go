package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/api/dto"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
)

// ResponseHandler serves results that were offloaded to the response store.
type ResponseHandler struct {
	agent *agent.Agent
}

// NewResponseHandler creates a new ResponseHandler.
func NewResponseHandler(a *agent.Agent) *ResponseHandler {
	return &ResponseHandler{agent: a}
}

// Get godoc
// @Summary      Fetch an offloaded result
// @Description  Returns the stored result referenced by a result_location
// @Tags         agent
// @Produce      json
// @Param        id path string true "Response id from result_location"
// @Success      200 {string} binary "gzip-compressed JSON result"
// @Failure      404 {object} dto.ErrorResponse
// @Router       /api/v1/agent/responses/{id} [get]
func (h *ResponseHandler) Get(c *gin.Context) {
	id := c.Param("id")

	data, err := h.agent.ReadResponse(agent.ResponseKeyPrefix + id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:     "response not found: " + id,
				ErrorType: "not_found",
				TraceID:   middleware.TraceID(c),
			})
			return
		}
		writeError(c, err, middleware.TraceID(c))
		return
	}

	// Stored payloads are gzip-compressed JSON; serve them as written.
	c.Header("Content-Encoding", "gzip")
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
