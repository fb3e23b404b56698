// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pinot

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker serves /query/sql with the given body and records the last request.
func fakeBroker(t *testing.T, status int, body string) (*httptest.Server, *http.Request, *queryRequest) {
	t.Helper()
	var lastReq http.Request
	var lastBody queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(status)
			_, _ = w.Write([]byte("OK"))
		case "/query/sql":
			lastReq = *r
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lastReq, &lastBody
}

func clientFor(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	ep, user, err := ParseEndpoint(srv.URL + "/query/sql")
	require.NoError(t, err)
	return New(ep, append([]Option{WithBasicAuth(user)}, opts...)...)
}

const okBody = `{
  "resultTable": {
    "dataSchema": {
      "columnNames": ["GENDER", "SEGMENT", "avg_viewtime"],
      "columnDataTypes": ["STRING", "STRING", "DOUBLE"]
    },
    "rows": [["FEMALE", "premium", 412.5], ["MALE", "basic", 97]]
  },
  "exceptions": [],
  "numServersQueried": 1,
  "numServersResponded": 1,
  "numSegmentsQueried": 4,
  "numSegmentsProcessed": 4,
  "numSegmentsMatched": 4,
  "totalDocs": 1200,
  "timeUsedMs": 8
}`

func TestParseEndpoint(t *testing.T) {
	ep, user, err := ParseEndpoint("http://47.129.163.101:8099/query/sql")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "http://47.129.163.101:8099/query/sql", ep.QueryURL())
	assert.Equal(t, "http://47.129.163.101:8099/health", ep.HealthURL())

	ep, user, err = ParseEndpoint("https://admin:pw@broker.example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "admin", user.Username())
	assert.Equal(t, "https://broker.example.com:8099/query/sql", ep.QueryURL())

	_, _, err = ParseEndpoint("ftp://broker")
	assert.Error(t, err)
}

func TestCursorExecute(t *testing.T) {
	srv, req, body := fakeBroker(t, http.StatusOK, okBody)
	c := clientFor(t, srv, WithToken("s3cret"), WithQueryOptions("timeoutMs=5000"), WithMultistage(true))

	cur, err := c.Cursor().Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)

	cols, err := cur.Description()
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "GENDER", Type: "STRING"},
		{Name: "SEGMENT", Type: "STRING"},
		{Name: "avg_viewtime", Type: "DOUBLE"},
	}, cols)

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"FEMALE", "premium", 412.5},
		{"MALE", "basic", 97.0},
	}, rows)

	stats, err := cur.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.SegmentsQueried)
	assert.Equal(t, int64(8), stats.TimeUsedMs)
	assert.NotEmpty(t, cur.RequestID())

	assert.Equal(t, "SELECT 1", body.SQL)
	assert.Equal(t, "timeoutMs=5000;useMultistageEngine=true", body.QueryOptions)
	assert.Equal(t, "Bearer s3cret", req.Header.Get("Authorization"))
	assert.Equal(t, cur.RequestID(), req.Header.Get("X-Request-Id"))
}

func TestCursorExecuteEmptyResult(t *testing.T) {
	srv, _, _ := fakeBroker(t, http.StatusOK, `{
	  "resultTable": {"dataSchema": {"columnNames": ["SEGMENT", "total_viewtime"], "columnDataTypes": ["STRING", "LONG"]}, "rows": []},
	  "exceptions": [], "numServersQueried": 1, "numServersResponded": 1}`)

	cur, err := clientFor(t, srv).Cursor().Execute(context.Background(), "SELECT SEGMENT")
	require.NoError(t, err)

	cols, _ := cur.Description()
	assert.Len(t, cols, 2)
	rows, _ := cur.FetchAll()
	assert.Empty(t, rows)
}

func TestCursorExecuteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "segments unavailable exception",
			status: http.StatusOK,
			body:   `{"exceptions":[{"errorCode":305,"message":"2 segments unavailable: [Aggregate5__0__1, Aggregate5__1__1]"}],"numServersQueried":1,"numServersResponded":1}`,
			check: func(t *testing.T, err error) {
				var qe *QueryError
				require.ErrorAs(t, err, &qe)
				assert.True(t, qe.HasCode(CodeSegmentsUnavailable))
				assert.Contains(t, err.Error(), "segments unavailable: [Aggregate5__0__1, Aggregate5__1__1]")
			},
		},
		{
			name:   "partial response",
			status: http.StatusOK,
			body:   `{"resultTable":{"dataSchema":{"columnNames":["a"],"columnDataTypes":["INT"]},"rows":[[1]]},"exceptions":[],"numServersQueried":3,"numServersResponded":2}`,
			check: func(t *testing.T, err error) {
				var pe *PartialResponseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, 3, pe.Queried)
				assert.Equal(t, 2, pe.Responded)
			},
		},
		{
			name:   "http status",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var he *HTTPError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, http.StatusInternalServerError, he.StatusCode)
				assert.Equal(t, "broker returned status 500: boom", err.Error())
			},
		},
		{
			name:   "long multibyte body",
			status: http.StatusBadRequest,
			body:   strings.Repeat("é", 400),
			check: func(t *testing.T, err error) {
				assert.Equal(t, "broker returned status 400: "+strings.Repeat("é", 400), err.Error())
				assert.True(t, utf8.ValidString(err.Error()))
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   "{not json",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := fakeBroker(t, tt.status, tt.body)
			cur, err := clientFor(t, srv).Cursor().Execute(context.Background(), "SELECT * FROM Aggregate5")
			require.Error(t, err)
			tt.check(t, err)

			_, err = cur.FetchAll()
			assert.ErrorIs(t, err, ErrNoResult)
		})
	}
}

func TestCursorExecuteRejectsEmptySQL(t *testing.T) {
	c := New(Endpoint{Scheme: "http", Host: "127.0.0.1", Port: "1"})
	_, err := c.Cursor().Execute(context.Background(), "   ")
	assert.Error(t, err)
}

func TestCursorExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := clientFor(t, srv, WithTimeout(20*time.Millisecond))
	_, err := c.Cursor().Execute(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, strings.Contains(strings.ToLower(err.Error()), "timeout") ||
		strings.Contains(err.Error(), "deadline exceeded"))
}

func TestHealth(t *testing.T) {
	srv, _, _ := fakeBroker(t, http.StatusOK, "")
	assert.NoError(t, clientFor(t, srv).Health(context.Background()))

	down, _, _ := fakeBroker(t, http.StatusServiceUnavailable, "")
	err := clientFor(t, down).Health(context.Background())
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)

	// The health body is read up to a limit that falls inside a two-byte rune.
	cut := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("x" + strings.Repeat("é", 2100)))
	}))
	t.Cleanup(cut.Close)
	err = clientFor(t, cut).Health(context.Background())
	require.True(t, errors.As(err, &he))
	assert.True(t, utf8.ValidString(he.Body))
	assert.Equal(t, "x"+strings.Repeat("é", 2047), he.Body)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw  string
		typ  string
		want any
	}{
		{`42`, "LONG", int64(42)},
		{`42`, "INT", int64(42)},
		{`1.5`, "DOUBLE", 1.5},
		{`"12345.678"`, "BIG_DECIMAL", 12345.678},
		{`"Infinity"`, "DOUBLE", math.Inf(1)},
		{`true`, "BOOLEAN", true},
		{`"premium"`, "STRING", "premium"},
		{`"2024-05-01 10:00:00.0"`, "TIMESTAMP", "2024-05-01 10:00:00.0"},
		{`[1,2]`, "INT_ARRAY", []any{int64(1), int64(2)}},
		{`null`, "STRING", nil},
		{`{"a":1}`, "UNKNOWN", map[string]any{"a": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, coerce(json.RawMessage(tt.raw), tt.typ))
		})
	}
}
