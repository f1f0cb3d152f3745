package interp

import "github.com/lumber-labs/lumber-agent/pkg/types"

// Env holds the variable bindings of a single operation. A fresh Env is
// created per execution, seeded with the active client and the helper
// namespace, and discarded with the operation, so variables never leak
// across requests.
type Env struct {
	vars map[string]any
}

// NewEnv seeds an environment with the client bound to `_client` and the
// helper namespace bound to `__utils`.
func NewEnv(client any) *Env {
	return &Env{vars: map[string]any{
		types.ContextVarClient: client,
		types.ContextVarUtils:  Utils{},
	}}
}

func (e *Env) Get(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds a value, overwriting any prior binding of the same name.
// Rebinding is allowed: last write wins.
func (e *Env) Set(name string, value any) {
	e.vars[name] = value
}
