package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/api/dto"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// statusForKind maps the error taxonomy onto HTTP status codes: the caller's
// fault, the upstream's fault, or a failure while executing the commands.
func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.ErrBadRequest:
		return http.StatusBadRequest
	case types.ErrConnection:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeError(c *gin.Context, err error, traceID string) {
	kind := types.KindOf(err)
	message := err.Error()
	var agentErr *types.AgentError
	if errors.As(err, &agentErr) {
		message = agentErr.Message
	}
	c.JSON(statusForKind(kind), dto.ErrorResponse{
		Error:     message,
		ErrorType: string(kind),
		Cause:     types.CauseOf(err),
		TraceID:   traceID,
	})
}
