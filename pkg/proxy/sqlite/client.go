// Package sqlite adapts database/sql with the go-sqlite3 driver to the proxy
// client capability. It exposes a DBAPI-style cursor surface so callers can
// drive it with the same command sequences they use against other warehouse
// integrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
)

type Client struct {
	db       *sql.DB
	methods  proxy.MethodMap
	delegate proxy.MethodMap
}

// New opens the database named by the "path" credential (":memory:" is
// accepted) and verifies the connection.
func New(ctx context.Context, credentials map[string]any) (proxy.Client, error) {
	path, err := proxy.CredentialString(credentials, "path")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	c := &Client{db: db}
	c.methods = proxy.MethodMap{
		"cursor": c.cursor,
		// extension method: one round trip for the common
		// execute + fetchall + describe sequence
		"execute_query": c.executeQuery,
	}
	c.delegate = proxy.MethodMap{
		"ping": func(ctx context.Context, _ []any, _ map[string]any) (any, error) {
			return nil, db.PingContext(ctx)
		},
	}
	return c, nil
}

func (c *Client) HasMethod(name string) bool {
	return c.methods.HasMethod(name)
}

func (c *Client) Callable(name string) (proxy.Callable, bool) {
	return c.methods.Callable(name)
}

func (c *Client) WrappedDelegate() any { return c.delegate }

func (c *Client) Close() error { return c.db.Close() }

func (c *Client) cursor(_ context.Context, _ []any, _ map[string]any) (any, error) {
	return newCursor(c.db), nil
}

func (c *Client) executeQuery(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	cur := newCursor(c.db)
	if _, err := cur.execute(ctx, args, kwargs); err != nil {
		return nil, err
	}
	rows, err := cur.fetchAll(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"records":     rows,
		"description": cur.description(),
		"rowcount":    cur.rowcount,
	}, nil
}
