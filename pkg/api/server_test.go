package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/lumber-labs/lumber-agent/pkg/agent"
	"github.com/lumber-labs/lumber-agent/pkg/interp"
	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

type stubClient struct {
	methods proxy.MethodMap
}

func newStubClient() *stubClient {
	c := &stubClient{}
	c.methods = proxy.MethodMap{
		"echo": func(_ context.Context, args []any, _ map[string]any) (any, error) {
			return args[0], nil
		},
		"blob": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return []byte("raw bytes"), nil
		},
		"fail": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return nil, errors.New("driver exploded")
		},
	}
	return c
}

func (c *stubClient) HasMethod(name string) bool { return c.methods.HasMethod(name) }

func (c *stubClient) Callable(name string) (proxy.Callable, bool) { return c.methods.Callable(name) }

func (c *stubClient) Close() error { return nil }

func newTestServer(t *testing.T, cfg Config, agentOpts agent.Options) *Server {
	t.Helper()
	factory := proxy.NewFactory(nil)
	factory.Register("stub", func(_ context.Context, _ map[string]any) (proxy.Client, error) {
		return newStubClient(), nil
	})
	factory.Register("broken", func(_ context.Context, _ map[string]any) (proxy.Client, error) {
		return nil, errors.New("refused")
	})
	a := agent.New(factory, interp.New(0, nil), agentOpts, nil)
	return NewServer(cfg, a, nil)
}

func executeBody(method string, args ...any) string {
	values := make([]any, len(args))
	copy(values, args)
	body, _ := json.Marshal(map[string]any{
		"operation": map[string]any{
			"trace_id": "trc_test",
			"commands": []map[string]any{
				{"method": method, "args": values},
			},
		},
	})
	return string(body)
}

func doRequest(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestExecuteOperation(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{})

	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op",
		executeBody("echo", "hello"), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(types.TraceIDHeader); got != "trc_test" {
		t.Fatalf("trace header %q", got)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["result"] != "hello" {
		t.Fatalf("result %v", resp["result"])
	}
	if resp["trace_id"] != "trc_test" {
		t.Fatalf("trace_id %v", resp["trace_id"])
	}
}

func TestExecuteBinaryResponse(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{})

	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op",
		executeBody("blob"), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("content type %q", ct)
	}
	if w.Body.String() != "raw bytes" {
		t.Fatalf("body %q", w.Body.String())
	}
	if got := w.Header().Get(types.TraceIDHeader); got != "trc_test" {
		t.Fatalf("trace header %q", got)
	}
}

func TestExecuteErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantType   string
	}{
		{
			"malformed body",
			"/api/v1/agent/execute/stub/test_op",
			"{not json",
			http.StatusBadRequest,
			"bad_request",
		},
		{
			"unknown connection type",
			"/api/v1/agent/execute/nope/test_op",
			executeBody("echo", "x"),
			http.StatusBadRequest,
			"bad_request",
		},
		{
			"constructor failure",
			"/api/v1/agent/execute/broken/test_op",
			executeBody("echo", "x"),
			http.StatusBadGateway,
			"connection",
		},
		{
			"method failure",
			"/api/v1/agent/execute/stub/test_op",
			executeBody("fail"),
			http.StatusUnprocessableEntity,
			"invocation",
		},
		{
			"unknown method",
			"/api/v1/agent/execute/stub/test_op",
			executeBody("nope"),
			http.StatusUnprocessableEntity,
			"unknown_method",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status %d, want %d, body: %s", w.Code, tc.wantStatus, w.Body.String())
			}
			var resp map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if resp["error_type"] != tc.wantType {
				t.Fatalf("error_type %v, want %s", resp["error_type"], tc.wantType)
			}
			if resp["error"] == "" {
				t.Fatal("missing error message")
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "secret"}, agent.Options{})

	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op",
		executeBody("echo", "secured"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op",
		executeBody("echo", "secured"), map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with api key, got %d", w.Code)
	}
}

func TestOffloadedResponseRoundTrip(t *testing.T) {
	store := storage.NewFSReaderWriter(t.TempDir())
	srv := newTestServer(t, Config{}, agent.Options{Store: store, OffloadThreshold: 64})

	big := strings.Repeat("x", 500)
	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op",
		executeBody("echo", big), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	location, _ := resp["result_location"].(string)
	if location == "" {
		t.Fatalf("missing result_location: %v", resp)
	}
	if _, ok := resp["result"]; ok {
		t.Fatal("offloaded response should not carry an inline result")
	}

	id := strings.TrimPrefix(location, agent.ResponseKeyPrefix)
	w = doRequest(srv, http.MethodGet, "/api/v1/agent/responses/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch returned %d", w.Code)
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("content encoding %q", enc)
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	var got string
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}
	if got != big {
		t.Fatal("offloaded payload mismatch")
	}
}

func TestResponseNotFound(t *testing.T) {
	store := storage.NewFSReaderWriter(t.TempDir())
	srv := newTestServer(t, Config{}, agent.Options{Store: store, OffloadThreshold: 64})

	w := doRequest(srv, http.MethodGet, "/api/v1/agent/responses/missing.json.gz", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCompressedResponse(t *testing.T) {
	srv := newTestServer(t, Config{CompressThreshold: 32}, agent.Options{})

	body, _ := json.Marshal(map[string]any{
		"operation": map[string]any{
			"trace_id":          "trc_gz",
			"compress_response": true,
			"commands": []map[string]any{
				{"method": "echo", "args": []any{strings.Repeat("y", 200)}},
			},
		},
	})
	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op", string(body), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("content encoding %q", enc)
	}

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatal(err)
	}
	if resp["result"] != strings.Repeat("y", 200) {
		t.Fatal("compressed payload mismatch")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{Version: "1.2.3"}, agent.Options{})

	for _, path := range []string{"/health", "/healthz"} {
		w := doRequest(srv, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, w.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["status"] != "healthy" {
			t.Fatalf("expected healthy status, got %v", resp)
		}
		if resp["version"] != "1.2.3" {
			t.Fatalf("version %v", resp["version"])
		}
	}
}

func TestAgentHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{Version: "1.2.3", Build: "7"})

	w := doRequest(srv, http.MethodGet, "/api/v1/agent/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("agent health returned %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["version"] != "1.2.3" || resp["build"] != "7" {
		t.Fatalf("got %v", resp)
	}
	caps, _ := resp["capabilities"].([]any)
	if len(caps) != 2 {
		t.Fatalf("capabilities %v", caps)
	}
	if resp["trace_id"] == "" {
		t.Fatal("missing trace_id")
	}
}

func TestNetworkParamValidation(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{})

	w := doRequest(srv, http.MethodGet, "/api/v1/test/network/open?host=localhost&port=text", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error_type"] != "bad_request" {
		t.Fatalf("error_type %v", resp["error_type"])
	}
}

func TestTraceIDGeneratedWhenAbsent(t *testing.T) {
	srv := newTestServer(t, Config{}, agent.Options{})

	body, _ := json.Marshal(map[string]any{
		"operation": map[string]any{
			"commands": []map[string]any{
				{"method": "echo", "args": []any{"x"}},
			},
		},
	})
	w := doRequest(srv, http.MethodPost, "/api/v1/agent/execute/stub/test_op", string(body), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get(types.TraceIDHeader), "trc_") {
		t.Fatalf("trace header %q", w.Header().Get(types.TraceIDHeader))
	}
}
