package interp

import (
	"context"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// resolveValue turns one argument value into a concrete runtime value.
// References read from the environment, inline calls execute (without their
// store/next fields), containers resolve bottom-up, scalars and byte arrays
// pass through. depth counts nesting levels against the configured maximum.
func (it *Interpreter) resolveValue(ctx context.Context, env *Env, v types.Value, depth int) (any, error) {
	if depth > it.maxDepth {
		return nil, types.NewAgentError(types.ErrRecursionLimit,
			"argument nesting exceeds the maximum depth of %d", it.maxDepth)
	}
	switch v.Kind {
	case types.KindScalar:
		return v.Scalar, nil
	case types.KindBytes:
		return v.Data, nil
	case types.KindReference:
		value, ok := env.Get(v.Ref)
		if !ok {
			return nil, types.NewAgentError(types.ErrUnresolvedReference, "%s not found in context", v.Ref)
		}
		return value, nil
	case types.KindCall:
		call := *v.Call
		call.Store, call.Next = "", nil
		return it.executeSingle(ctx, env, &call, nil, false, depth+1)
	case types.KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			resolved, err := it.resolveValue(ctx, env, item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case types.KindMap:
		out := make(map[string]any, len(v.Map))
		for key, item := range v.Map {
			resolved, err := it.resolveValue(ctx, env, item, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	default:
		return nil, types.NewAgentError(types.ErrBadRequest, "unknown argument kind: %d", v.Kind)
	}
}

func (it *Interpreter) resolveArgs(ctx context.Context, env *Env, args []types.Value, depth int) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		resolved, err := it.resolveValue(ctx, env, arg, depth)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (it *Interpreter) resolveKwargs(ctx context.Context, env *Env, kwargs map[string]types.Value, depth int) (map[string]any, error) {
	if len(kwargs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(kwargs))
	for key, value := range kwargs {
		resolved, err := it.resolveValue(ctx, env, value, depth)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}
