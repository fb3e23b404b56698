// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBrokerPort is the port Pinot brokers listen on out of the box.
	DefaultBrokerPort = "8099"
	// DefaultBrokerPath is the broker's SQL endpoint.
	DefaultBrokerPath = "/query/sql"
)

// BrokerResolver handles Pinot broker URLs of the form scheme://host[:port][/path].
// A pinot:// scheme is accepted as an alias for http://.
type BrokerResolver struct{}

// NewBrokerResolver creates a new broker URL resolver.
func NewBrokerResolver() *BrokerResolver {
	return &BrokerResolver{}
}

// Parse splits a broker URL into scheme, host, port and path, applying the
// broker defaults for the missing parts.
func (r *BrokerResolver) Parse(dsn string) (*DSNInfo, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, NewParseError(dsn, err.Error(), "format should be http://host:8099/query/sql")
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https":
	case "pinot":
		scheme = "http"
	default:
		return nil, NewParseError(dsn, "unsupported scheme "+u.Scheme, "use http:// or https://")
	}

	info := &DSNInfo{
		Type:     DBTypePinot,
		Scheme:   scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Path:     u.Path,
		Params:   make(map[string]string),
		Original: dsn,
	}
	if u.User != nil {
		info.User = u.User.Username()
		info.Password, _ = u.User.Password()
	}
	for key, values := range u.Query() {
		if len(values) > 0 {
			info.Params[key] = values[0]
		}
	}

	if strings.TrimSpace(info.Host) == "" {
		return nil, NewParseError(dsn, "missing host", "format should be http://host:8099/query/sql")
	}
	if info.Port == "" {
		info.Port = DefaultBrokerPort
	}
	if info.Path == "" || info.Path == "/" {
		info.Path = DefaultBrokerPath
	}
	return info, nil
}

// Normalize builds the canonical broker URL. Credentials are carried over so
// that the normalized value can still be used for basic auth.
func (r *BrokerResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil broker info", "")
	}
	u := url.URL{
		Scheme: info.Scheme,
		Host:   net.JoinHostPort(info.Host, info.Port),
		Path:   info.Path,
	}
	if info.User != "" {
		if info.Password != "" {
			u.User = url.UserPassword(info.User, info.Password)
		} else {
			u.User = url.User(info.User)
		}
	}
	if len(info.Params) > 0 {
		q := url.Values{}
		for k, v := range info.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Validate checks that the broker URL parses and has a numeric port.
func (r *BrokerResolver) Validate(dsn string) error {
	info, err := r.Parse(dsn)
	if err != nil {
		return err
	}
	if p, err := strconv.Atoi(info.Port); err != nil || p <= 0 || p > 65535 {
		return NewParseError(dsn, "invalid port number: "+info.Port, "port must be between 1 and 65535")
	}
	return nil
}
