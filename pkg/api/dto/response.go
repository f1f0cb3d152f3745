package dto

import (
	"encoding/json"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
)

// ExecuteResponse is the envelope for a successful operation. Exactly one of
// Result and ResultLocation is set.
type ExecuteResponse struct {
	Result         json.RawMessage `json:"result,omitempty"`
	ResultLocation string          `json:"result_location,omitempty"`
	TraceID        string          `json:"trace_id,omitempty"`
}

// ErrorResponse is the structured error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
	Cause     string `json:"cause,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// HealthResponse is the response for the liveness probes.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// AgentHealthResponse is the diagnostic health report.
type AgentHealthResponse = agent.HealthInfo

// NetworkTestResponse wraps a network check result.
type NetworkTestResponse struct {
	Result  map[string]any `json:"result"`
	TraceID string         `json:"trace_id,omitempty"`
}
