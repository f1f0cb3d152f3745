package interp

import (
	"context"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
)

// Utils is the fixed helper namespace bound to the `__utils` target. It
// exists purely to shape data into composite results; it performs no I/O and
// must not grow arbitrary code-execution helpers.
type Utils struct{}

func (Utils) HasMethod(name string) bool {
	_, ok := utilMethods[name]
	return ok
}

func (Utils) Callable(name string) (proxy.Callable, bool) {
	fn, ok := utilMethods[name]
	return fn, ok
}

var utilMethods = proxy.MethodMap{
	// build_dict assembles a mapping from already-resolved keyword
	// arguments, e.g. combining fetched rows and descriptions into one
	// payload without a dedicated command type.
	"build_dict": func(_ context.Context, _ []any, kwargs map[string]any) (any, error) {
		out := make(map[string]any, len(kwargs))
		for key, value := range kwargs {
			out[key] = value
		}
		return out, nil
	},
}
