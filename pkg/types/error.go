package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies agent failures so callers can tell a connection-phase
// failure apart from an execution-phase one and decide whether reconnecting
// is worth a retry.
type ErrorKind string

const (
	ErrBadRequest          ErrorKind = "bad_request"
	ErrConnection          ErrorKind = "connection"
	ErrUnknownTarget       ErrorKind = "unknown_target"
	ErrUnknownMethod       ErrorKind = "unknown_method"
	ErrUnresolvedReference ErrorKind = "unresolved_reference"
	ErrRecursionLimit      ErrorKind = "recursion_limit"
	ErrInvocation          ErrorKind = "invocation"
)

// AgentError is the single error type surfaced to callers. Cause preserves
// the original driver error for diagnostics while Kind stays normalized.
type AgentError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AgentError) Unwrap() error { return e.Cause }

// NewAgentError builds an AgentError with a formatted message.
func NewAgentError(kind ErrorKind, format string, args ...any) *AgentError {
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error. Errors that
// already carry a kind pass through unchanged so the original classification
// is not clobbered by outer layers.
func WrapError(kind ErrorKind, err error, format string, args ...any) *AgentError {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf extracts the error kind, defaulting to invocation for errors raised
// by driver code that never passed through the agent's own constructors.
func KindOf(err error) ErrorKind {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Kind
	}
	return ErrInvocation
}

// CauseOf returns the underlying driver error message, if any.
func CauseOf(err error) string {
	var agentErr *AgentError
	if errors.As(err, &agentErr) && agentErr.Cause != nil {
		return agentErr.Cause.Error()
	}
	return ""
}
