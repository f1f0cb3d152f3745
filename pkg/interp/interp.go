package interp

import (
	"context"
	"log/slog"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// DefaultMaxDepth bounds nested call-argument resolution. The command tree
// arrives per request and cannot contain cycles, but a hostile or buggy
// payload could still nest deep enough to exhaust the stack.
const DefaultMaxDepth = 50

// Interpreter executes operation command lists against an environment.
// Commands run strictly in order on one goroutine: later commands may read
// variables stored by earlier ones, and most wrapped drivers (cursors,
// sessions) are not safe for concurrent use.
type Interpreter struct {
	maxDepth int
	log      *slog.Logger
}

func New(maxDepth int, log *slog.Logger) *Interpreter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter{maxDepth: maxDepth, log: log}
}

// Execute runs the commands in order and returns the value produced by the
// last one (or by the terminal link of its chain). An empty command list
// yields nil without touching any target. The first error aborts the rest;
// nothing is retried and side effects already performed are not undone.
func (it *Interpreter) Execute(ctx context.Context, env *Env, commands []types.Command) (any, error) {
	var last any
	for i := range commands {
		result, err := it.executeChain(ctx, env, &commands[i])
		if err != nil {
			return nil, err
		}
		last = result
	}
	return last, nil
}

// executeChain runs a command and every `next` link after it, feeding each
// result in as the implicit target of the following link.
func (it *Interpreter) executeChain(ctx context.Context, env *Env, cmd *types.Command) (any, error) {
	var (
		result     any
		target     any
		haveTarget bool
	)
	for link := cmd; link != nil; link = link.Next {
		r, err := it.executeSingle(ctx, env, link, target, haveTarget, 0)
		if err != nil {
			return nil, err
		}
		result = r
		target, haveTarget = r, true
	}
	return result, nil
}

// executeSingle resolves the target, arguments and method of one command and
// invokes it. When haveTarget is set the command's own target is ignored:
// that is how chained links bind to the previous result.
func (it *Interpreter) executeSingle(ctx context.Context, env *Env, cmd *types.Command, target any, haveTarget bool, depth int) (any, error) {
	if !haveTarget {
		name := cmd.Target
		if name == "" {
			name = types.ContextVarClient
		}
		v, ok := env.Get(name)
		if !ok {
			return nil, types.NewAgentError(types.ErrUnknownTarget, "%s not found in context", name)
		}
		target = v
	}

	args, err := it.resolveArgs(ctx, env, cmd.Args, depth)
	if err != nil {
		return nil, err
	}
	kwargs, err := it.resolveKwargs(ctx, env, cmd.Kwargs, depth)
	if err != nil {
		return nil, err
	}

	method, err := resolveMethod(target, cmd.Method)
	if err != nil {
		return nil, err
	}

	result, err := method(ctx, args, kwargs)
	if err != nil {
		return nil, types.WrapError(types.ErrInvocation, err, "calling %s failed", cmd.Method)
	}

	if cmd.Store != "" {
		env.Set(cmd.Store, result)
	}
	return result, nil
}

// resolveMethod searches the target's own method registry first, then the
// wrapped delegate's. Extension methods on the proxy win over same-named
// driver methods.
func resolveMethod(target any, name string) (proxy.Callable, error) {
	if resolver, ok := target.(proxy.MethodResolver); ok {
		if fn, ok := resolver.Callable(name); ok {
			return fn, nil
		}
	}
	if delegator, ok := target.(proxy.Delegator); ok {
		if resolver, ok := delegator.WrappedDelegate().(proxy.MethodResolver); ok {
			if fn, ok := resolver.Callable(name); ok {
				return fn, nil
			}
		}
	}
	return nil, types.NewAgentError(types.ErrUnknownMethod, "failed to resolve method %s", name)
}
