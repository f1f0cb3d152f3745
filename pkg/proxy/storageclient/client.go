// Package storageclient exposes an object store through the proxy client
// capability. The filesystem backend serves agents that mount a shared
// volume; the command surface mirrors the blob-store integrations so callers
// do not care which backend is active.
package storageclient

import (
	"context"
	"errors"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

type Client struct {
	store   storage.ReaderWriter
	methods proxy.MethodMap
}

// New builds a client rooted at the "root_dir" credential.
func New(_ context.Context, credentials map[string]any) (proxy.Client, error) {
	rootDir, err := proxy.CredentialString(credentials, "root_dir")
	if err != nil {
		return nil, err
	}
	return NewWithStore(storage.NewFSReaderWriter(rootDir)), nil
}

// NewWithStore wires an existing store; used by tests and embedded setups.
func NewWithStore(store storage.ReaderWriter) *Client {
	c := &Client{store: store}
	c.methods = proxy.MethodMap{
		"write":        c.write,
		"read":         c.read,
		"delete":       c.delete,
		"list_objects": c.listObjects,
	}
	return c
}

func (c *Client) HasMethod(name string) bool {
	return c.methods.HasMethod(name)
}

func (c *Client) Callable(name string) (proxy.Callable, bool) {
	return c.methods.Callable(name)
}

func (c *Client) Close() error { return nil }

func (c *Client) write(_ context.Context, args []any, _ map[string]any) (any, error) {
	key, err := proxy.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, types.NewAgentError(types.ErrBadRequest, "missing required argument 1")
	}
	var data []byte
	switch v := args[1].(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, types.NewAgentError(types.ErrBadRequest, "object content must be a string or bytes, got %T", args[1])
	}
	return nil, c.store.Write(key, data)
}

// read returns the raw object bytes: the binary-response path on the wire.
func (c *Client) read(_ context.Context, args []any, _ map[string]any) (any, error) {
	key, err := proxy.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	data, err := c.store.Read(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.NewAgentError(types.ErrInvocation, "object not found: %s", key)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) delete(_ context.Context, args []any, _ map[string]any) (any, error) {
	key, err := proxy.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err := c.store.Delete(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.NewAgentError(types.ErrInvocation, "object not found: %s", key)
		}
		return nil, err
	}
	return nil, nil
}

func (c *Client) listObjects(_ context.Context, _ []any, kwargs map[string]any) (any, error) {
	prefix, err := proxy.StringKwarg(kwargs, "prefix", "")
	if err != nil {
		return nil, err
	}
	objects, err := c.store.List(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(objects))
	for i, obj := range objects {
		out[i] = map[string]any{
			"key":           obj.Key,
			"size":          obj.Size,
			"last_modified": obj.LastModified,
		}
	}
	return map[string]any{"objects": out}, nil
}
