package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/serde"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// Cursor mimics a DBAPI cursor over database/sql: execute materializes the
// full result set, fetch methods walk it. Cursors are returned by the
// client's cursor() method and become command targets via store bindings.
type Cursor struct {
	db      *sql.DB
	methods proxy.MethodMap

	cols     []columnInfo
	rows     []any
	pos      int
	rowcount int
}

type columnInfo struct {
	name   string
	dbType string
}

func newCursor(db *sql.DB) *Cursor {
	c := &Cursor{db: db}
	c.methods = proxy.MethodMap{
		"execute":   c.execute,
		"fetchall":  c.fetchAll,
		"fetchone":  c.fetchOne,
		"fetchmany": c.fetchMany,
		"description": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return c.description(), nil
		},
		"rowcount": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return c.rowcount, nil
		},
		"close": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			c.rows, c.cols, c.pos, c.rowcount = nil, nil, 0, 0
			return nil, nil
		},
	}
	return c
}

func (c *Cursor) HasMethod(name string) bool {
	return c.methods.HasMethod(name)
}

func (c *Cursor) Callable(name string) (proxy.Callable, bool) {
	return c.methods.Callable(name)
}

func (c *Cursor) execute(ctx context.Context, args []any, _ map[string]any) (any, error) {
	query, err := proxy.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	params := args[1:]

	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	cols := make([]columnInfo, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = columnInfo{name: ct.Name(), dbType: ct.DatabaseTypeName()}
	}

	var fetched [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		fetched = append(fetched, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	c.cols = cols
	c.rows = serde.Rows(fetched)
	c.pos = 0
	c.rowcount = len(c.rows)
	return nil, nil
}

func (c *Cursor) fetchAll(_ context.Context, _ []any, _ map[string]any) (any, error) {
	remaining := c.rows[c.pos:]
	c.pos = len(c.rows)
	return remaining, nil
}

func (c *Cursor) fetchOne(_ context.Context, _ []any, _ map[string]any) (any, error) {
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, nil
}

func (c *Cursor) fetchMany(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	size := 1
	if len(args) > 0 {
		n, ok := args[0].(float64)
		if !ok {
			return nil, types.NewAgentError(types.ErrBadRequest, "fetchmany size must be a number, got %T", args[0])
		}
		size = int(n)
	} else if n, err := proxy.IntKwarg(kwargs, "size", 1); err != nil {
		return nil, err
	} else {
		size = n
	}
	if size < 0 {
		size = 0
	}
	end := c.pos + size
	if end > len(c.rows) {
		end = len(c.rows)
	}
	batch := c.rows[c.pos:end]
	c.pos = end
	return batch, nil
}

// description reports column metadata for the last executed query.
func (c *Cursor) description() []any {
	out := make([]any, len(c.cols))
	for i, col := range c.cols {
		out[i] = map[string]any{"name": col.name, "type": col.dbType}
	}
	return out
}
