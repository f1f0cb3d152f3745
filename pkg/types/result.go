package types

import "encoding/json"

// ResultKind discriminates how an operation result travels back to the
// caller: inline JSON, raw bytes, or a location the caller fetches from the
// response store.
type ResultKind int

const (
	ResultStructured ResultKind = iota
	ResultBinary
	ResultLocation
)

// Result is the tagged outcome of a successful operation. The transport
// layer branches on Kind instead of inspecting runtime types.
type Result struct {
	Kind     ResultKind
	Payload  json.RawMessage // structured result, already serialized
	Bytes    []byte          // binary result
	Location string          // response store id for offloaded results
}
