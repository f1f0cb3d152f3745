package storageclient

import (
	"context"
	"errors"
	"testing"

	"github.com/lumber-labs/lumber-agent/pkg/storage"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

func call(t *testing.T, c *Client, method string, args []any, kwargs map[string]any) (any, error) {
	t.Helper()
	fn, ok := c.Callable(method)
	if !ok {
		t.Fatalf("method %s not found", method)
	}
	return fn(context.Background(), args, kwargs)
}

func TestWriteReadDelete(t *testing.T) {
	c := NewWithStore(storage.NewFSReaderWriter(t.TempDir()))

	if _, err := call(t, c, "write", []any{"logs/a.txt", "hello"}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := call(t, c, "read", []any{"logs/a.txt"}, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data, ok := got.([]byte)
	if !ok {
		t.Fatalf("read returned %T, want []byte", got)
	}
	if string(data) != "hello" {
		t.Fatalf("read returned %q", data)
	}

	if _, err := call(t, c, "delete", []any{"logs/a.txt"}, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := call(t, c, "read", []any{"logs/a.txt"}, nil); err == nil {
		t.Fatal("read after delete should fail")
	}
}

func TestWriteBytes(t *testing.T) {
	c := NewWithStore(storage.NewFSReaderWriter(t.TempDir()))
	payload := []byte{0x1f, 0x8b, 0x00}

	if _, err := call(t, c, "write", []any{"bin/blob", payload}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := call(t, c, "read", []any{"bin/blob"}, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got.([]byte)) != string(payload) {
		t.Fatal("payload mismatch")
	}
}

func TestListObjects(t *testing.T) {
	c := NewWithStore(storage.NewFSReaderWriter(t.TempDir()))
	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := call(t, c, "write", []any{key, "x"}, nil); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}

	got, err := call(t, c, "list_objects", nil, map[string]any{"prefix": "a/"})
	if err != nil {
		t.Fatalf("list_objects: %v", err)
	}
	objects := got.(map[string]any)["objects"].([]any)
	if len(objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(objects))
	}
	first := objects[0].(map[string]any)
	if first["key"] != "a/1" {
		t.Fatalf("first key %v", first["key"])
	}
	if first["size"] != int64(1) {
		t.Fatalf("first size %v", first["size"])
	}
}

func TestBadArguments(t *testing.T) {
	c := NewWithStore(storage.NewFSReaderWriter(t.TempDir()))

	_, err := call(t, c, "write", []any{"key"}, nil)
	var agentErr *types.AgentError
	if !errors.As(err, &agentErr) || agentErr.Kind != types.ErrBadRequest {
		t.Fatalf("write without content: %v", err)
	}

	_, err = call(t, c, "write", []any{"key", 42.0}, nil)
	if !errors.As(err, &agentErr) || agentErr.Kind != types.ErrBadRequest {
		t.Fatalf("write with number content: %v", err)
	}
}

func TestReadMissingIsInvocationError(t *testing.T) {
	c := NewWithStore(storage.NewFSReaderWriter(t.TempDir()))
	_, err := call(t, c, "read", []any{"nope"}, nil)
	var agentErr *types.AgentError
	if !errors.As(err, &agentErr) || agentErr.Kind != types.ErrInvocation {
		t.Fatalf("got %v", err)
	}
}
