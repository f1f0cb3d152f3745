package sqlite

import (
	"context"
	"reflect"
	"testing"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
)

func newTestClient(t *testing.T) proxy.Client {
	t.Helper()
	client, err := New(context.Background(), map[string]any{"path": ":memory:"})
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func call(t *testing.T, target proxy.MethodResolver, name string, args []any, kwargs map[string]any) any {
	t.Helper()
	fn, ok := target.Callable(name)
	if !ok {
		t.Fatalf("method %s not found", name)
	}
	result, err := fn(context.Background(), args, kwargs)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return result
}

func TestMissingPathCredential(t *testing.T) {
	if _, err := New(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error for missing path credential")
	}
}

func TestCursorLifecycle(t *testing.T) {
	client := newTestClient(t)
	cursor := call(t, client, "cursor", nil, nil).(*Cursor)

	call(t, cursor, "execute", []any{"CREATE TABLE logs (id INTEGER, msg TEXT)"}, nil)
	call(t, cursor, "execute", []any{"INSERT INTO logs VALUES (1, 'a'), (2, 'b'), (3, 'c')"}, nil)
	call(t, cursor, "execute", []any{"SELECT id, msg FROM logs ORDER BY id"}, nil)

	if rc := call(t, cursor, "rowcount", nil, nil); rc != 3 {
		t.Fatalf("rowcount: got %v, want 3", rc)
	}

	first := call(t, cursor, "fetchone", nil, nil)
	if !reflect.DeepEqual(first, []any{int64(1), "a"}) {
		t.Fatalf("fetchone: got %v", first)
	}

	batch := call(t, cursor, "fetchmany", []any{float64(1)}, nil).([]any)
	if len(batch) != 1 || !reflect.DeepEqual(batch[0], []any{int64(2), "b"}) {
		t.Fatalf("fetchmany: got %v", batch)
	}

	rest := call(t, cursor, "fetchall", nil, nil).([]any)
	if len(rest) != 1 || !reflect.DeepEqual(rest[0], []any{int64(3), "c"}) {
		t.Fatalf("fetchall: got %v", rest)
	}

	// drained cursor
	if row := call(t, cursor, "fetchone", nil, nil); row != nil {
		t.Fatalf("expected nil after drain, got %v", row)
	}

	desc := call(t, cursor, "description", nil, nil).([]any)
	if len(desc) != 2 {
		t.Fatalf("description: got %v", desc)
	}
	if name := desc[0].(map[string]any)["name"]; name != "id" {
		t.Fatalf("first column: got %v", name)
	}
}

func TestExecuteQueryExtension(t *testing.T) {
	client := newTestClient(t)
	cursor := call(t, client, "cursor", nil, nil).(*Cursor)
	call(t, cursor, "execute", []any{"CREATE TABLE t (v TEXT)"}, nil)
	call(t, cursor, "execute", []any{"INSERT INTO t VALUES ('x')"}, nil)

	result := call(t, client, "execute_query", []any{"SELECT v FROM t"}, nil).(map[string]any)
	if result["rowcount"] != 1 {
		t.Fatalf("rowcount: got %v", result["rowcount"])
	}
	records := result["records"].([]any)
	if !reflect.DeepEqual(records[0], []any{"x"}) {
		t.Fatalf("records: got %v", records)
	}
}

func TestDelegatePing(t *testing.T) {
	client := newTestClient(t)
	delegator, ok := client.(proxy.Delegator)
	if !ok {
		t.Fatalf("client must expose a wrapped delegate")
	}
	delegate := delegator.WrappedDelegate().(proxy.MethodResolver)
	if client.HasMethod("ping") {
		t.Fatalf("ping should live on the delegate only")
	}
	fn, ok := delegate.Callable("ping")
	if !ok {
		t.Fatalf("delegate missing ping")
	}
	if _, err := fn(context.Background(), nil, nil); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestQueryParameters(t *testing.T) {
	client := newTestClient(t)
	cursor := call(t, client, "cursor", nil, nil).(*Cursor)
	call(t, cursor, "execute", []any{"CREATE TABLE p (n INTEGER)"}, nil)
	call(t, cursor, "execute", []any{"INSERT INTO p VALUES (?), (?)", float64(1), float64(2)}, nil)
	call(t, cursor, "execute", []any{"SELECT n FROM p WHERE n > ?", float64(1)}, nil)
	rows := call(t, cursor, "fetchall", nil, nil).([]any)
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], []any{int64(2)}) {
		t.Fatalf("got %v", rows)
	}
}
