// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package table holds the in-memory result of a query: an ordered list of column
// labels and the rows returned for them. A Table is produced fresh by every query
// execution and is treated as read-only once returned.
package table

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Table is a labeled result set.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// New returns a table with the given columns and no rows.
func New(columns ...string) *Table {
	return &Table{Columns: columns, Rows: [][]any{}}
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{Columns: []string{}, Rows: [][]any{}}
}

// IsEmpty reports whether the table has no rows. A nil table is empty.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row ...any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of the named column. An exact match wins;
// otherwise the first case-insensitive match is used, since stores differ in how
// they fold unquoted identifiers.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return -1, false
}

// Value returns the cell at row, col or nil when out of range.
func (t *Table) Value(row, col int) any {
	if t == nil || row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// String formats a cell for use as a label.
func (t *Table) String(row, col int) string {
	switch v := t.Value(row, col).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float converts a numeric cell to float64.
func (t *Table) Float(row, col int) (float64, bool) {
	switch v := t.Value(row, col).(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case *big.Float:
		f, _ := v.Float64()
		return f, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Equal reports whether two tables have the same columns and cell values.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t.Len() == other.Len() && len(t.columns()) == len(other.columns())
	}
	return reflect.DeepEqual(t.columns(), other.columns()) && reflect.DeepEqual(t.rows(), other.rows())
}

func (t *Table) columns() []string {
	if t == nil || t.Columns == nil {
		return []string{}
	}
	return t.Columns
}

func (t *Table) rows() [][]any {
	if t == nil || t.Rows == nil {
		return [][]any{}
	}
	return t.Rows
}

// MarshalJSON renders byte values as UUID or hex strings so that results coming
// from binary columns stay readable in the JSON API.
func (t Table) MarshalJSON() ([]byte, error) {
	type alias struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	a := alias{Columns: t.Columns, Rows: t.Rows}
	if a.Columns == nil {
		a.Columns = []string{}
	}
	if len(t.Rows) == 0 {
		a.Rows = [][]any{}
		return json.Marshal(a)
	}

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]any, len(row))
		for j, val := range row {
			switch v := val.(type) {
			case []byte:
				if id, err := uuid.FromBytes(v); err == nil {
					rows[i][j] = id.String()
				} else {
					rows[i][j] = fmt.Sprintf("\\x%x", v)
				}
			case [16]byte:
				rows[i][j] = uuid.UUID(v).String()
			default:
				rows[i][j] = v
			}
		}
	}
	a.Rows = rows
	return json.Marshal(a)
}
