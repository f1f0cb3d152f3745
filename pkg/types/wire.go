package types

// Attribute names and marker values of the wire protocol. Argument values and
// serialized results use `__type__` tagged objects so non-JSON types survive
// the round trip between the caller and the agent.
const (
	AttrReference = "__reference__"
	AttrType      = "__type__"
	AttrData      = "__data__"

	TypeCall     = "call"
	TypeBytes    = "bytes"
	TypeDatetime = "datetime"

	// ContextVarClient is the variable holding the active proxy client, the
	// default target for commands.
	ContextVarClient = "_client"

	// ContextVarUtils is the variable holding the helper namespace used for
	// calls like `__utils.build_dict()`.
	ContextVarUtils = "__utils"

	// TraceIDHeader carries the request trace id back in every response,
	// including binary ones that have no JSON envelope.
	TraceIDHeader = "X-Agent-Trace-Id"
)
