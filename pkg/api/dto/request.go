package dto

import "github.com/lumber-labs/lumber-agent/pkg/types"

// ExecuteRequest is the request body for executing an operation.
type ExecuteRequest struct {
	// Credentials configure the proxy client; contents depend on the
	// connection type and are never logged.
	Credentials map[string]any  `json:"credentials,omitempty"`
	Operation   types.Operation `json:"operation" binding:"required"`
}
