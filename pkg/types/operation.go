package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Command is a single method-invocation step. Target names a variable in the
// execution context (defaults to the active client), Store binds the result
// back into the context, and Next chains a follow-up call on the result.
type Command struct {
	Target string           `json:"target,omitempty"`
	Method string           `json:"method"`
	Args   []Value          `json:"args,omitempty"`
	Kwargs map[string]Value `json:"kwargs,omitempty"`
	Store  string           `json:"store,omitempty"`
	Next   *Command         `json:"next,omitempty"`
}

// Operation is one request's full command list plus its correlation id.
type Operation struct {
	TraceID string `json:"trace_id,omitempty"`

	// SkipCache requests a dedicated client for this operation instead of a
	// cached one; the client is closed when the operation finishes.
	SkipCache bool `json:"skip_cache,omitempty"`

	// CompressResponse allows the agent to gzip large structured results.
	CompressResponse bool `json:"compress_response,omitempty"`

	Commands []Command `json:"commands"`
}

// ValueKind discriminates the argument union.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindList
	KindMap
	KindReference
	KindCall
	KindBytes
)

// Value is one argument in a command: a plain JSON literal, a reference to a
// context variable, an inline call whose result becomes the argument, or a
// base64-encoded byte array. The shape is decided once, at decode time.
type Value struct {
	Kind   ValueKind
	Scalar any
	List   []Value
	Map    map[string]Value
	Ref    string
	Call   *Command
	Data   []byte
}

// Scalar wraps a plain literal.
func Scalar(v any) Value { return Value{Kind: KindScalar, Scalar: v} }

// Reference wraps a context-variable reference.
func Reference(name string) Value { return Value{Kind: KindReference, Ref: name} }

// CallValue wraps an inline call.
func CallValue(cmd *Command) Value { return Value{Kind: KindCall, Call: cmd} }

// Bytes wraps a raw byte array.
func Bytes(data []byte) Value { return Value{Kind: KindBytes, Data: data} }

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty argument value")
	}
	switch trimmed[0] {
	case '{':
		return v.unmarshalObject(trimmed)
	case '[':
		var items []Value
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		v.Kind, v.List = KindList, items
		return nil
	default:
		v.Kind = KindScalar
		return json.Unmarshal(trimmed, &v.Scalar)
	}
}

func (v *Value) unmarshalObject(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if ref, ok := raw[AttrReference]; ok {
		v.Kind = KindReference
		return json.Unmarshal(ref, &v.Ref)
	}
	if tag, ok := raw[AttrType]; ok {
		var kind string
		if err := json.Unmarshal(tag, &kind); err != nil {
			return err
		}
		switch kind {
		case TypeCall:
			cmd := &Command{}
			if err := json.Unmarshal(data, cmd); err != nil {
				return err
			}
			v.Kind, v.Call = KindCall, cmd
			return nil
		case TypeBytes:
			var encoded string
			if d, ok := raw[AttrData]; ok {
				if err := json.Unmarshal(d, &encoded); err != nil {
					return err
				}
			}
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return fmt.Errorf("decode bytes argument: %w", err)
			}
			v.Kind, v.Data = KindBytes, decoded
			return nil
		}
	}
	m := make(map[string]Value, len(raw))
	for key, val := range raw {
		var entry Value
		if err := json.Unmarshal(val, &entry); err != nil {
			return err
		}
		m[key] = entry
	}
	v.Kind, v.Map = KindMap, m
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindScalar:
		return json.Marshal(v.Scalar)
	case KindList:
		return json.Marshal(v.List)
	case KindMap:
		return json.Marshal(v.Map)
	case KindReference:
		return json.Marshal(map[string]string{AttrReference: v.Ref})
	case KindCall:
		return json.Marshal(struct {
			Type string `json:"__type__"`
			*Command
		}{Type: TypeCall, Command: v.Call})
	case KindBytes:
		return json.Marshal(map[string]string{
			AttrType: TypeBytes,
			AttrData: base64.StdEncoding.EncodeToString(v.Data),
		})
	default:
		return nil, fmt.Errorf("unknown value kind: %d", v.Kind)
	}
}
