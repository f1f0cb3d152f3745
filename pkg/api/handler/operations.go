package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/api/dto"
	"github.com/lumber-labs/lumber-agent/pkg/api/middleware"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// OperationHandler handles operation execution requests.
type OperationHandler struct {
	agent             *agent.Agent
	compressThreshold int
	log               *slog.Logger
}

// NewOperationHandler creates a new OperationHandler. Responses for
// compression-enabled operations larger than compressThreshold bytes are
// gzipped; zero disables compression.
func NewOperationHandler(a *agent.Agent, compressThreshold int, log *slog.Logger) *OperationHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OperationHandler{agent: a, compressThreshold: compressThreshold, log: log}
}

// Execute godoc
// @Summary      Execute an operation
// @Description  Run a command sequence against a proxy client of the given connection type
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        connection_type path string true "Connection type"
// @Param        operation_name path string true "Operation name, used for logging"
// @Param        request body dto.ExecuteRequest true "Credentials and operation"
// @Success      200 {object} dto.ExecuteResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Router       /api/v1/agent/execute/{connection_type}/{operation_name} [post]
func (h *OperationHandler) Execute(c *gin.Context) {
	connectionType := c.Param("connection_type")
	operationName := c.Param("operation_name")

	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.WrapError(types.ErrBadRequest, err, "invalid request body"), middleware.TraceID(c))
		return
	}
	op := &req.Operation
	if op.TraceID == "" {
		op.TraceID = middleware.TraceID(c)
	}
	c.Header(types.TraceIDHeader, op.TraceID)

	result, err := h.agent.ExecuteOperation(c.Request.Context(), connectionType, operationName, op, req.Credentials)
	if err != nil {
		writeError(c, err, op.TraceID)
		return
	}

	switch result.Kind {
	case types.ResultBinary:
		c.Data(http.StatusOK, "application/octet-stream", result.Bytes)
	case types.ResultLocation:
		c.JSON(http.StatusOK, dto.ExecuteResponse{ResultLocation: result.Location, TraceID: op.TraceID})
	default:
		h.writeStructured(c, op, result.Payload)
	}
}

func (h *OperationHandler) writeStructured(c *gin.Context, op *types.Operation, payload json.RawMessage) {
	body, err := json.Marshal(dto.ExecuteResponse{Result: payload, TraceID: op.TraceID})
	if err != nil {
		writeError(c, types.WrapError(types.ErrInvocation, err, "failed to encode response"), op.TraceID)
		return
	}

	if op.CompressResponse && h.compressThreshold > 0 && len(body) > h.compressThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err == nil && zw.Close() == nil {
			c.Header("Content-Encoding", "gzip")
			c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
			return
		}
		// Compression failed; fall through to the plain response.
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
