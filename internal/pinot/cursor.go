// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pinot

import (
	"context"
	"errors"
	"strings"
)

// ErrNoResult is returned by Cursor accessors before a successful Execute.
var ErrNoResult = errors.New("no query has been executed")

// Cursor executes a query and exposes its result.
type Cursor struct {
	client *Client
	resp   *Response
	cols   []Column
	rows   [][]any
}

// Execute runs sql on the broker. Broker exceptions and partial server
// responses are reported as errors, so a nil error always means a complete
// result. The cursor is returned to allow cur.Execute(ctx, q).FetchAll()-style
// chaining after the error check.
func (cur *Cursor) Execute(ctx context.Context, sql string) (*Cursor, error) {
	cur.resp, cur.cols, cur.rows = nil, nil, nil

	if strings.TrimSpace(sql) == "" {
		return cur, errors.New("query is empty")
	}

	resp, err := cur.client.post(ctx, sql)
	if err != nil {
		return cur, err
	}
	if len(resp.Exceptions) > 0 {
		return cur, &QueryError{SQL: sql, Exceptions: resp.Exceptions}
	}
	if resp.NumServersResponded < resp.NumServersQueried {
		return cur, &PartialResponseError{
			SQL:       sql,
			Queried:   resp.NumServersQueried,
			Responded: resp.NumServersResponded,
		}
	}

	cur.resp = resp
	cur.cols = resp.columns()
	if resp.ResultTable != nil {
		cur.rows = make([][]any, 0, len(resp.ResultTable.Rows))
		for _, raw := range resp.ResultTable.Rows {
			row := make([]any, len(cur.cols))
			for i := range cur.cols {
				if i < len(raw) {
					row[i] = coerce(raw[i], cur.cols[i].Type)
				}
			}
			cur.rows = append(cur.rows, row)
		}
	}
	return cur, nil
}

// Description returns the result columns of the last execution.
func (cur *Cursor) Description() ([]Column, error) {
	if cur.resp == nil {
		return nil, ErrNoResult
	}
	return cur.cols, nil
}

// FetchAll returns every row of the last execution.
func (cur *Cursor) FetchAll() ([][]any, error) {
	if cur.resp == nil {
		return nil, ErrNoResult
	}
	return cur.rows, nil
}

// Stats returns execution statistics of the last execution.
func (cur *Cursor) Stats() (Stats, error) {
	if cur.resp == nil {
		return Stats{}, ErrNoResult
	}
	return cur.resp.stats(), nil
}

// RequestID returns the request id of the last successful execution.
func (cur *Cursor) RequestID() string {
	if cur.resp == nil {
		return ""
	}
	return cur.resp.RequestID
}
