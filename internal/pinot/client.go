// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pinot is a small client for the Apache Pinot broker SQL endpoint.
// It posts SQL over HTTP to a fixed broker address and decodes the broker's
// result table, exceptions and execution statistics.
//
// A Client is constructed once by the entry point and shared by reference; it is
// safe for concurrent use. Each query runs on its own Cursor, which mirrors the
// DB-API style execute/fetch flow the dashboard was designed around.
package pinot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pinotboard/cli/internal/dsn"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single broker round trip.
const DefaultTimeout = 30 * time.Second

// Endpoint identifies a broker SQL endpoint.
type Endpoint struct {
	Scheme string
	Host   string
	Port   string
	Path   string
}

// ParseEndpoint parses a broker URL such as http://host:8099/query/sql. Missing
// port and path take the broker defaults. Credentials in the URL are returned
// separately so they never end up in logged URLs.
func ParseEndpoint(raw string) (Endpoint, *url.Userinfo, error) {
	info, err := dsn.NewBrokerResolver().Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, nil, err
	}
	ep := Endpoint{Scheme: info.Scheme, Host: info.Host, Port: info.Port, Path: info.Path}
	var user *url.Userinfo
	if info.User != "" {
		user = url.UserPassword(info.User, info.Password)
	}
	return ep, user, nil
}

func (e Endpoint) base() string {
	return e.Scheme + "://" + net.JoinHostPort(e.Host, e.Port)
}

// QueryURL returns the URL queries are posted to.
func (e Endpoint) QueryURL() string {
	path := e.Path
	if path == "" {
		path = dsn.DefaultBrokerPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.base() + path
}

// HealthURL returns the broker liveness URL.
func (e Endpoint) HealthURL() string {
	return e.base() + "/health"
}

func (e Endpoint) String() string { return e.QueryURL() }

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" with every request.
// A token that already carries a scheme ("Basic ...", "Bearer ...") is sent as is.
func WithToken(token string) Option {
	return func(c *Client) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		if strings.HasPrefix(token, "Bearer ") || strings.HasPrefix(token, "Basic ") {
			c.authorization = token
			return
		}
		c.authorization = "Bearer " + token
	}
}

// WithBasicAuth authenticates with a username and password.
func WithBasicAuth(user *url.Userinfo) Option {
	return func(c *Client) {
		if user == nil || user.Username() == "" {
			return
		}
		c.basicAuth = user
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithQueryOptions sets the broker queryOptions string, e.g. "timeoutMs=5000".
func WithQueryOptions(opts string) Option {
	return func(c *Client) { c.queryOptions = strings.TrimSpace(opts) }
}

// WithMultistage routes queries to the multi-stage query engine.
func WithMultistage(enabled bool) Option {
	return func(c *Client) { c.multistage = enabled }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to a single broker.
type Client struct {
	endpoint      Endpoint
	http          *http.Client
	authorization string
	basicAuth     *url.Userinfo
	queryOptions  string
	multistage    bool
	logger        *slog.Logger
}

// New creates a client for the given endpoint.
func New(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the broker endpoint the client was built for.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// Cursor returns a fresh cursor bound to this client.
func (c *Client) Cursor() *Cursor {
	return &Cursor{client: c}
}

// Health calls GET /health on the broker and returns nil when it answers 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.HealthURL(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("broker health: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		// The read limit may cut a multi-byte character in half.
		text := strings.ToValidUTF8(string(body), "")
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(text)}
	}
	return nil
}

type queryRequest struct {
	SQL          string `json:"sql"`
	QueryOptions string `json:"queryOptions,omitempty"`
}

func (c *Client) options() string {
	opts := c.queryOptions
	if c.multistage {
		if opts != "" {
			opts += ";"
		}
		opts += "useMultistageEngine=true"
	}
	return opts
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.authorization != "":
		req.Header.Set("Authorization", c.authorization)
	case c.basicAuth != nil:
		pass, _ := c.basicAuth.Password()
		req.SetBasicAuth(c.basicAuth.Username(), pass)
	}
}

// post sends one query and decodes the broker response. It does not interpret
// exceptions; the cursor does.
func (c *Client) post(ctx context.Context, sql string) (*Response, error) {
	payload, err := json.Marshal(queryRequest{SQL: sql, QueryOptions: c.options()})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.QueryURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pinotboard/1.0")
	req.Header.Set("X-Request-Id", requestID)
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "broker request failed", "request_id", requestID, "error", err)
		return nil, fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.DebugContext(ctx, "broker responded",
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out.RequestID = requestID
	return &out, nil
}
