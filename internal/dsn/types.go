// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses and normalizes the connection strings pinotboard accepts:
// Pinot broker URLs (http://host:8099/query/sql) and PostgreSQL DSNs for the
// optional Postgres mirror.
package dsn

import "fmt"

// DBType represents the type of store behind a connection string.
type DBType string

const (
	DBTypePinot      DBType = "pinot"
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeUnknown    DBType = "unknown"
)

// DSNInfo contains parsed information from a connection string.
type DSNInfo struct {
	Type     DBType
	Scheme   string
	Host     string
	Port     string
	Path     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the connection string as it was given.
func (d *DSNInfo) String() string {
	return d.Original
}

// Resolver is an interface for store-specific connection string resolution.
type Resolver interface {
	// Parse parses a connection string and returns its components.
	Parse(dsn string) (*DSNInfo, error)

	// Normalize converts parsed info back into a canonical connection string.
	Normalize(info *DSNInfo) (string, error)

	// Validate checks if the connection string is usable for the store type.
	Validate(dsn string) error
}

// ParseError represents an error that occurred during parsing.
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid connection string: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid connection string: %s", e.Reason)
}

// NewParseError creates a new ParseError.
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
