// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pinot

import (
	"encoding/json"
	"strings"
)

// Response is the subset of the broker's JSON answer that the client uses.
type Response struct {
	ResultTable *ResultTable `json:"resultTable"`
	Exceptions  []Exception  `json:"exceptions"`

	NumServersQueried     int   `json:"numServersQueried"`
	NumServersResponded   int   `json:"numServersResponded"`
	NumSegmentsQueried    int   `json:"numSegmentsQueried"`
	NumSegmentsProcessed  int   `json:"numSegmentsProcessed"`
	NumSegmentsMatched    int   `json:"numSegmentsMatched"`
	NumDocsScanned        int64 `json:"numDocsScanned"`
	TotalDocs             int64 `json:"totalDocs"`
	TimeUsedMs            int64 `json:"timeUsedMs"`
	NumGroupsLimitReached bool  `json:"numGroupsLimitReached"`

	// RequestID is the X-Request-Id the client sent; it is not part of the payload.
	RequestID string `json:"-"`
}

// ResultTable holds the schema and rows of a successful query.
type ResultTable struct {
	DataSchema DataSchema          `json:"dataSchema"`
	Rows       [][]json.RawMessage `json:"rows"`
}

// DataSchema lists column names and Pinot data types, index aligned.
type DataSchema struct {
	ColumnNames     []string `json:"columnNames"`
	ColumnDataTypes []string `json:"columnDataTypes"`
}

// Exception is one entry of the broker's exceptions list.
type Exception struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// Column describes one result column.
type Column struct {
	Name string
	Type string
}

// Stats summarizes how the broker executed a query.
type Stats struct {
	ServersQueried     int
	ServersResponded   int
	SegmentsQueried    int
	SegmentsProcessed  int
	SegmentsMatched    int
	DocsScanned        int64
	TotalDocs          int64
	TimeUsedMs         int64
	GroupsLimitReached bool
}

func (r *Response) stats() Stats {
	return Stats{
		ServersQueried:     r.NumServersQueried,
		ServersResponded:   r.NumServersResponded,
		SegmentsQueried:    r.NumSegmentsQueried,
		SegmentsProcessed:  r.NumSegmentsProcessed,
		SegmentsMatched:    r.NumSegmentsMatched,
		DocsScanned:        r.NumDocsScanned,
		TotalDocs:          r.TotalDocs,
		TimeUsedMs:         r.TimeUsedMs,
		GroupsLimitReached: r.NumGroupsLimitReached,
	}
}

func (r *Response) columns() []Column {
	if r.ResultTable == nil {
		return nil
	}
	schema := r.ResultTable.DataSchema
	cols := make([]Column, len(schema.ColumnNames))
	for i, name := range schema.ColumnNames {
		cols[i] = Column{Name: name}
		if i < len(schema.ColumnDataTypes) {
			cols[i].Type = schema.ColumnDataTypes[i]
		}
	}
	return cols
}

// coerce converts a raw JSON cell into a Go value according to the Pinot type.
// Unknown types fall back to the generic JSON decoding.
func coerce(raw json.RawMessage, pinotType string) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	t := strings.ToUpper(pinotType)
	if base, ok := strings.CutSuffix(t, "_ARRAY"); ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return decodeGeneric(raw)
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = coerce(item, base)
		}
		return out
	}

	switch t {
	case "INT", "LONG":
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			if i, err := n.Int64(); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	case "FLOAT", "DOUBLE", "BIG_DECIMAL":
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
		// BIG_DECIMAL and special floats ("NaN", "Infinity") arrive as strings.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := json.Number(s).Float64(); err == nil {
				return f
			}
			return s
		}
	case "BOOLEAN":
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	case "STRING", "JSON", "BYTES", "TIMESTAMP":
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return decodeGeneric(raw)
}

func decodeGeneric(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
