package proxy

import (
	"fmt"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// Argument coercion helpers shared by the proxy client implementations.
// JSON numbers arrive as float64; these normalize to what drivers expect.

// StringArg returns the positional argument at index i as a string.
func StringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", types.NewAgentError(types.ErrBadRequest, "missing required argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", types.NewAgentError(types.ErrBadRequest, "argument %d must be a string, got %T", i, args[i])
	}
	return s, nil
}

// StringKwarg returns a keyword argument as a string, or def when absent.
func StringKwarg(kwargs map[string]any, key, def string) (string, error) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", types.NewAgentError(types.ErrBadRequest, "kwarg %q must be a string, got %T", key, v)
	}
	return s, nil
}

// IntKwarg returns a keyword argument as an int, or def when absent.
func IntKwarg(kwargs map[string]any, key string, def int) (int, error) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, types.NewAgentError(types.ErrBadRequest, "kwarg %q must be a number, got %T", key, v)
	}
}

// MapKwarg returns a keyword argument as a map, or nil when absent.
func MapKwarg(kwargs map[string]any, key string) (map[string]any, error) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, types.NewAgentError(types.ErrBadRequest, "kwarg %q must be an object, got %T", key, v)
	}
	return m, nil
}

// BoolKwarg returns a keyword argument as a bool, or def when absent.
func BoolKwarg(kwargs map[string]any, key string, def bool) (bool, error) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, types.NewAgentError(types.ErrBadRequest, "kwarg %q must be a boolean, got %T", key, v)
	}
	return b, nil
}

// CredentialString reads a required string entry from the credentials map.
func CredentialString(credentials map[string]any, key string) (string, error) {
	v, ok := credentials[key]
	if !ok {
		return "", fmt.Errorf("missing credential %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("credential %q must be a string, got %T", key, v)
	}
	return s, nil
}
