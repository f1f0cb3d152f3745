package proxy

import "context"

// Callable is a bound method on a call target, invoked with the resolved
// positional and keyword arguments of a command.
type Callable func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// MethodResolver is the capability the interpreter requires from any call
// target: method lookup by name. Values returned by client methods (cursors,
// sessions) implement it too so they can be used as targets of later
// commands.
type MethodResolver interface {
	HasMethod(name string) bool
	Callable(name string) (Callable, bool)
}

// Delegator is implemented by proxy clients that adapt an underlying driver
// object. Method lookup falls through to the delegate when the proxy itself
// does not define the method, so integrations can add extension methods
// while still exposing the full driver surface.
type Delegator interface {
	WrappedDelegate() any
}

// Client is a connected proxy client produced by the Factory.
type Client interface {
	MethodResolver
	Close() error
}

// MethodMap is an explicit method registry built at client construction
// time. It is the building block for every proxy client and for the objects
// they hand out.
type MethodMap map[string]Callable

func (m MethodMap) HasMethod(name string) bool {
	_, ok := m[name]
	return ok
}

func (m MethodMap) Callable(name string) (Callable, bool) {
	fn, ok := m[name]
	return fn, ok
}
