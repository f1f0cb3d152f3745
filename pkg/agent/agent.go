// Package agent ties the execution pipeline together: it obtains a proxy
// client for the requested connection type, interprets the operation's
// commands against it and shapes the outcome for the transport layer.
package agent

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/lumber-labs/lumber-agent/pkg/interp"
	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/serde"
	"github.com/lumber-labs/lumber-agent/pkg/storage"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// ResponseKeyPrefix is where offloaded results live in the response store.
const ResponseKeyPrefix = "responses/"

// Agent executes operations. It is safe for concurrent use: per-operation
// state lives in the interpreter environment, and the client factory
// serializes access to its cache.
type Agent struct {
	factory          *proxy.Factory
	interpreter      *interp.Interpreter
	store            storage.ReaderWriter
	offloadThreshold int
	version          string
	build            string
	log              *slog.Logger
}

// Options configures optional agent behavior.
type Options struct {
	// Store receives results larger than OffloadThreshold. Nil disables
	// offloading and every result is returned inline.
	Store            storage.ReaderWriter
	OffloadThreshold int
	Version          string
	Build            string
}

func New(factory *proxy.Factory, interpreter *interp.Interpreter, opts Options, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		factory:          factory,
		interpreter:      interpreter,
		store:            opts.Store,
		offloadThreshold: opts.OffloadThreshold,
		version:          opts.Version,
		build:            opts.Build,
		log:              log,
	}
}

// ExecuteOperation runs one operation against a client of the given
// connection type. Credentials select (and if needed construct) the client;
// after a failed execution the client is discarded so a poisoned connection
// is not reused.
func (a *Agent) ExecuteOperation(ctx context.Context, connectionType, operationName string, op *types.Operation, credentials map[string]any) (*types.Result, error) {
	log := a.log.With(
		"connection_type", connectionType,
		"operation_name", operationName,
		"trace_id", op.TraceID,
	)
	log.Info("executing operation", "commands", len(op.Commands))

	client, err := a.factory.Get(ctx, connectionType, credentials, op.SkipCache)
	if err != nil {
		return nil, err
	}
	if op.SkipCache {
		// Uncached clients belong to this operation alone.
		defer func() {
			if cerr := client.Close(); cerr != nil {
				log.Warn("failed to close client", "error", cerr)
			}
		}()
	}

	env := interp.NewEnv(client)
	value, err := a.interpreter.Execute(ctx, env, op.Commands)
	if err != nil {
		if !op.SkipCache {
			a.factory.Dispose(connectionType, credentials)
		}
		log.Error("operation failed", "error", err, "error_type", types.KindOf(err))
		return nil, err
	}
	return a.shapeResult(value)
}

// shapeResult decides how a raw result travels back: binary values go as-is,
// structured values are serialized and, when large and a store is present,
// offloaded and replaced by their location.
func (a *Agent) shapeResult(value any) (*types.Result, error) {
	switch v := value.(type) {
	case []byte:
		return &types.Result{Kind: types.ResultBinary, Bytes: v}, nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if closer, ok := v.(io.Closer); ok {
			_ = closer.Close()
		}
		if err != nil {
			return nil, types.WrapError(types.ErrInvocation, err, "failed to read result stream")
		}
		return &types.Result{Kind: types.ResultBinary, Bytes: data}, nil
	}

	payload, err := serde.Marshal(value)
	if err != nil {
		return nil, types.WrapError(types.ErrInvocation, err, "failed to serialize result")
	}

	if a.store != nil && a.offloadThreshold > 0 && len(payload) > a.offloadThreshold {
		key, err := a.offload(payload)
		if err != nil {
			return nil, err
		}
		a.log.Info("result offloaded to response store", "key", key, "size", len(payload))
		return &types.Result{Kind: types.ResultLocation, Location: key}, nil
	}
	return &types.Result{Kind: types.ResultStructured, Payload: payload}, nil
}

// offload gzips the serialized payload and writes it under a fresh key.
func (a *Agent) offload(payload []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", types.WrapError(types.ErrInvocation, err, "failed to compress result")
	}
	if err := zw.Close(); err != nil {
		return "", types.WrapError(types.ErrInvocation, err, "failed to compress result")
	}
	key := ResponseKeyPrefix + uuid.NewString() + ".json.gz"
	if err := a.store.Write(key, buf.Bytes()); err != nil {
		return "", types.WrapError(types.ErrInvocation, err, "failed to store result")
	}
	return key, nil
}

// ReadResponse fetches a previously offloaded result. The returned bytes are
// still gzip-compressed; the transport serves them with the matching
// Content-Encoding.
func (a *Agent) ReadResponse(key string) ([]byte, error) {
	if a.store == nil {
		return nil, types.NewAgentError(types.ErrBadRequest, "response store is not configured")
	}
	return a.store.Read(key)
}

// ConnectionTypes lists the registered integrations.
func (a *Agent) ConnectionTypes() []string {
	return a.factory.ConnectionTypes()
}

// Close releases every pooled client.
func (a *Agent) Close() error {
	return a.factory.Close()
}
