package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// Constructor builds a connected proxy client from a credentials map.
// Construction may perform network I/O (opening the driver connection).
type Constructor func(ctx context.Context, credentials map[string]any) (Client, error)

// Factory maps connection-type strings to client constructors and caches
// constructed clients per (connection type, credentials) so connections are
// pooled across operations. Operation environments are never shared; only
// the underlying client is.
type Factory struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	cache        map[string]Client
	log          *slog.Logger
}

func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{
		constructors: make(map[string]Constructor),
		cache:        make(map[string]Client),
		log:          log,
	}
}

// Register adds a constructor for a connection type. Later registrations
// overwrite earlier ones.
func (f *Factory) Register(connectionType string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[connectionType] = ctor
}

// ConnectionTypes returns the registered connection types, sorted.
func (f *Factory) ConnectionTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a client for the connection type, reusing a cached one unless
// skipCache is set. Construction failures surface as connection errors so
// callers can tell "could not connect" from "a command failed".
func (f *Factory) Get(ctx context.Context, connectionType string, credentials map[string]any, skipCache bool) (Client, error) {
	f.mu.Lock()
	ctor, ok := f.constructors[connectionType]
	f.mu.Unlock()
	if !ok {
		return nil, types.NewAgentError(types.ErrBadRequest,
			"connection type not supported by this agent: %s", connectionType)
	}

	if skipCache {
		client, err := ctor(ctx, credentials)
		if err != nil {
			return nil, types.WrapError(types.ErrConnection, err, "failed to create %s client", connectionType)
		}
		return client, nil
	}

	key := cacheKey(connectionType, credentials)
	f.mu.Lock()
	if client, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return client, nil
	}
	f.mu.Unlock()

	// Construct outside the lock: opening a connection may block on the
	// network and must not stall unrelated connection types.
	client, err := ctor(ctx, credentials)
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "failed to create %s client", connectionType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[key]; ok {
		// Lost the race; keep the cached one.
		_ = client.Close()
		return cached, nil
	}
	f.cache[key] = client
	f.log.Debug("cached proxy client", "connection_type", connectionType)
	return client, nil
}

// Dispose evicts and closes the cached client for the given credentials.
// Called after a failed operation: some drivers keep failing on a connection
// once it has raised, so a poisoned client must not be reused.
func (f *Factory) Dispose(connectionType string, credentials map[string]any) {
	key := cacheKey(connectionType, credentials)
	f.mu.Lock()
	client, ok := f.cache[key]
	if ok {
		delete(f.cache, key)
	}
	f.mu.Unlock()
	if ok {
		if err := client.Close(); err != nil {
			f.log.Warn("failed to close disposed client", "connection_type", connectionType, "error", err)
		}
	}
}

// Close closes every cached client.
func (f *Factory) Close() error {
	f.mu.Lock()
	clients := make([]Client, 0, len(f.cache))
	for _, c := range f.cache {
		clients = append(clients, c)
	}
	f.cache = make(map[string]Client)
	f.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func cacheKey(connectionType string, credentials map[string]any) string {
	// map keys marshal in sorted order, so the digest is deterministic
	encoded, err := json.Marshal(credentials)
	if err != nil {
		encoded = []byte("{}")
	}
	sum := sha256.Sum256(encoded)
	return connectionType + ":" + hex.EncodeToString(sum[:])
}
