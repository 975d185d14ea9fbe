package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Database talks to the managed database platform's REST and RPC
// endpoints (PostgREST dialect)
type Database struct {
	c *Client
}

// NewDatabase creates a database API on top of c
func NewDatabase(c *Client) *Database {
	return &Database{c: c}
}

var returnRepresentation = http.Header{"Prefer": {"return=representation"}}

func tablePath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// RPC invokes a stored procedure and decodes its result into out
func (d *Database) RPC(ctx context.Context, fn string, params any, out any) error {
	if strings.TrimSpace(fn) == "" {
		return fmt.Errorf("rpc function name cannot be empty")
	}
	if params == nil {
		params = map[string]any{}
	}
	return d.c.call(ctx, request{
		op:     "rpc " + fn,
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + url.PathEscape(fn),
		body:   params,
	}, out)
}

// Select reads rows of a table; query holds PostgREST filters
func (d *Database) Select(ctx context.Context, table string, query url.Values, out any) error {
	return d.c.call(ctx, request{
		op:     "select " + table,
		method: http.MethodGet,
		path:   tablePath(table),
		query:  query,
	}, out)
}

// Insert creates a row and decodes the canonical record into out
func (d *Database) Insert(ctx context.Context, table string, row any, out any) error {
	return d.single(ctx, request{
		op:      "insert " + table,
		method:  http.MethodPost,
		path:    tablePath(table),
		body:    row,
		headers: returnRepresentation,
	}, out)
}

// Update patches the row with the given id and decodes the canonical
// record into out (when non-nil)
func (d *Database) Update(ctx context.Context, table, id string, patch any, out any) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	return d.single(ctx, request{
		op:      "update " + table,
		method:  http.MethodPatch,
		path:    tablePath(table),
		query:   idFilter(id),
		body:    patch,
		headers: returnRepresentation,
	}, out)
}

// Delete removes the row with the given id
func (d *Database) Delete(ctx context.Context, table, id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	return d.c.call(ctx, request{
		op:     "delete " + table,
		method: http.MethodDelete,
		path:   tablePath(table),
		query:  idFilter(id),
	}, nil)
}

// single decodes a one-element representation array into out
func (d *Database) single(ctx context.Context, r request, out any) error {
	raw, err := d.c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	var rows []json.RawMessage
	if err := decodeInto(r.op, raw, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &Error{Op: r.op, Kind: KindUnsuccessful, Message: "no rows affected"}
	}
	return decodeInto(r.op, rows[0], out)
}
