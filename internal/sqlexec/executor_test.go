// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "pinotboard/cli/internal/errors"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
}

func TestOpenPinotRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: DriverPinot, BrokerURL: "ftp://nowhere"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ConfigInvalid))
}

func TestPinotExecutorQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = w.Write([]byte(`{
			  "resultTable": {
			    "dataSchema": {"columnNames": ["SEGMENT","GENDER","total_views"], "columnDataTypes": ["STRING","STRING","LONG"]},
			    "rows": [["premium","FEMALE",12],["basic","MALE",3]]
			  },
			  "exceptions": [], "numServersQueried": 1, "numServersResponded": 1}`))
		}
	}))
	defer srv.Close()

	exec, err := Open(context.Background(), Options{BrokerURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	defer exec.Close()

	tbl, err := exec.Query(context.Background(), "SELECT SEGMENT, GENDER, COUNT(*) AS total_views FROM Aggregate5 GROUP BY SEGMENT, GENDER")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEGMENT", "GENDER", "total_views"}, tbl.Columns)
	assert.Equal(t, [][]any{{"premium", "FEMALE", int64(12)}, {"basic", "MALE", int64(3)}}, tbl.Rows)

	assert.NoError(t, exec.Ping(context.Background()))
	assert.Contains(t, exec.Describe(), "/query/sql")
}

func TestPinotExecutorPingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	exec, err := NewPinot(Options{BrokerURL: srv.URL})
	require.NoError(t, err)
	err = exec.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.BrokerUnreachable))
}

func TestNormalizeValue(t *testing.T) {
	var num pgtype.Numeric
	require.NoError(t, num.Scan("412.5"))

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "numeric", in: num, want: 412.5},
		{name: "invalid numeric", in: pgtype.Numeric{}, want: nil},
		{name: "big int", in: big.NewInt(42), want: 42.0},
		{name: "int32", in: int32(7), want: int64(7)},
		{name: "float32", in: float32(1.5), want: 1.5},
		{name: "timestamp", in: ts, want: "2024-05-01T10:00:00Z"},
		{name: "string", in: "premium", want: "premium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.in))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t", preview("SELECT a\n\t FROM t"))
	long := preview("SELECT " + strings.Repeat("x", 200))
	assert.Len(t, long, 103)
}
