package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/lumber-labs/lumber-agent/pkg/interp"
	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

type echoClient struct {
	methods proxy.MethodMap
	closed  bool
}

func newEchoClient() *echoClient {
	c := &echoClient{}
	c.methods = proxy.MethodMap{
		"echo": func(_ context.Context, args []any, _ map[string]any) (any, error) {
			return args[0], nil
		},
		"blob": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return []byte{0xca, 0xfe}, nil
		},
		"stream": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return io.NopCloser(strings.NewReader("streamed")), nil
		},
		"fail": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return nil, errors.New("driver exploded")
		},
	}
	return c
}

func (c *echoClient) HasMethod(name string) bool { return c.methods.HasMethod(name) }

func (c *echoClient) Callable(name string) (proxy.Callable, bool) { return c.methods.Callable(name) }
func (c *echoClient) Close() error {
	c.closed = true
	return nil
}

func newTestAgent(t *testing.T, opts Options) (*Agent, *[]*echoClient) {
	t.Helper()
	var built []*echoClient
	factory := proxy.NewFactory(nil)
	factory.Register("echo", func(_ context.Context, _ map[string]any) (proxy.Client, error) {
		c := newEchoClient()
		built = append(built, c)
		return c, nil
	})
	return New(factory, interp.New(0, nil), opts, nil), &built
}

func op(commands ...types.Command) *types.Operation {
	return &types.Operation{TraceID: "trc_test", Commands: commands}
}

func TestExecuteStructuredResult(t *testing.T) {
	a, _ := newTestAgent(t, Options{})
	result, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "echo", Args: []types.Value{types.Scalar("hi")}}), nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Kind != types.ResultStructured {
		t.Fatalf("kind %v", result.Kind)
	}
	var got string
	if err := json.Unmarshal(result.Payload, &got); err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Fatalf("payload %q", got)
	}
}

func TestExecuteBinaryResult(t *testing.T) {
	a, _ := newTestAgent(t, Options{})
	result, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "blob"}), nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Kind != types.ResultBinary {
		t.Fatalf("kind %v", result.Kind)
	}
	if !bytes.Equal(result.Bytes, []byte{0xca, 0xfe}) {
		t.Fatalf("bytes %x", result.Bytes)
	}
}

func TestExecuteStreamResult(t *testing.T) {
	a, _ := newTestAgent(t, Options{})
	result, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "stream"}), nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Kind != types.ResultBinary || string(result.Bytes) != "streamed" {
		t.Fatalf("got kind %v bytes %q", result.Kind, result.Bytes)
	}
}

func TestExecuteFailureDisposesCachedClient(t *testing.T) {
	a, built := newTestAgent(t, Options{})

	_, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "fail"}), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(*built) != 1 || !(*built)[0].closed {
		t.Fatal("failed operation should dispose the cached client")
	}

	// The next operation gets a fresh client.
	if _, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "echo", Args: []types.Value{types.Scalar(1.0)}}), nil); err != nil {
		t.Fatalf("execute after dispose: %v", err)
	}
	if len(*built) != 2 {
		t.Fatalf("built %d clients, want 2", len(*built))
	}
}

func TestSkipCacheClosesClientAfterUse(t *testing.T) {
	a, built := newTestAgent(t, Options{})
	operation := op(types.Command{Method: "echo", Args: []types.Value{types.Scalar("x")}})
	operation.SkipCache = true

	if _, err := a.ExecuteOperation(context.Background(), "echo", "test_op", operation, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(*built) != 1 || !(*built)[0].closed {
		t.Fatal("skip_cache client should be closed after the operation")
	}
}

func TestLargeResultOffloaded(t *testing.T) {
	store := storage.NewFSReaderWriter(t.TempDir())
	a, _ := newTestAgent(t, Options{Store: store, OffloadThreshold: 64})

	big := strings.Repeat("x", 200)
	result, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "echo", Args: []types.Value{types.Scalar(big)}}), nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Kind != types.ResultLocation {
		t.Fatalf("kind %v", result.Kind)
	}
	if !strings.HasPrefix(result.Location, ResponseKeyPrefix) || !strings.HasSuffix(result.Location, ".json.gz") {
		t.Fatalf("location %q", result.Location)
	}

	compressed, err := a.ReadResponse(result.Location)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
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

func TestSmallResultStaysInline(t *testing.T) {
	store := storage.NewFSReaderWriter(t.TempDir())
	a, _ := newTestAgent(t, Options{Store: store, OffloadThreshold: 1 << 20})

	result, err := a.ExecuteOperation(context.Background(), "echo", "test_op",
		op(types.Command{Method: "echo", Args: []types.Value{types.Scalar("small")}}), nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Kind != types.ResultStructured {
		t.Fatalf("kind %v", result.Kind)
	}
}

func TestHealthInformation(t *testing.T) {
	os.Setenv("AGENT_REGION", "us-east-1")
	os.Setenv("AGENT_API_KEY", "hunter2")
	defer os.Unsetenv("AGENT_REGION")
	defer os.Unsetenv("AGENT_API_KEY")

	a, _ := newTestAgent(t, Options{Version: "1.2.3", Build: "42"})
	info := a.HealthInformation("trc_h")

	if info.Version != "1.2.3" || info.Build != "42" {
		t.Fatalf("version %s build %s", info.Version, info.Build)
	}
	if info.TraceID != "trc_h" {
		t.Fatalf("trace id %s", info.TraceID)
	}
	if info.Env["AGENT_REGION"] != "us-east-1" {
		t.Fatalf("env %v", info.Env)
	}
	if info.Env["AGENT_API_KEY"] != "****" {
		t.Fatal("secret env values should be redacted")
	}
	if info.Env["go_version"] == "" {
		t.Fatal("missing go_version")
	}
	if len(info.Capabilities) != 1 || info.Capabilities[0] != "echo" {
		t.Fatalf("capabilities %v", info.Capabilities)
	}
}
